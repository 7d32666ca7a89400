package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/aws"
	"github.com/twmb/franz-go/pkg/sasl/oauth"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/birdayz/rsv/pkg/config"
)

// mechanisms builds a SASL mechanism from an already validated config block,
// keyed by the upper-cased mechanism name.
var mechanisms = map[string]func(*config.SASL) sasl.Mechanism{
	"PLAIN": func(s *config.SASL) sasl.Mechanism {
		return plain.Auth{User: s.Username, Pass: s.Password}.AsMechanism()
	},
	"SCRAM-SHA-256": func(s *config.SASL) sasl.Mechanism {
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha256Mechanism()
	},
	"SCRAM-SHA-512": func(s *config.SASL) sasl.Mechanism {
		return scram.Auth{User: s.Username, Pass: s.Password}.AsSha512Mechanism()
	},
	"OAUTHBEARER": oauthMechanism,
	"AWS_MSK_IAM": func(*config.SASL) sasl.Mechanism {
		return aws.ManagedStreamingIAM(awsCredentials)
	},
}

// buildSASL returns nil when the cluster has no SASL block. A block missing
// credentials fails with config.ErrInvalidSASL, so flags or imports that
// bypassed ReadConfig are held to the same rules as the config file.
func buildSASL(cluster *config.Cluster) (sasl.Mechanism, error) {
	s := cluster.SASL
	if s == nil {
		return nil, nil
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("cluster %q: %w", cluster.Name, err)
	}
	build, ok := mechanisms[strings.ToUpper(s.Mechanism)]
	if !ok {
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", s.Mechanism)
	}
	mech := build(s)
	slog.Debug("using SASL", "cluster", cluster.Name, "mechanism", mech.Name())
	return mech, nil
}

func oauthMechanism(s *config.SASL) sasl.Mechanism {
	if s.Token != "" {
		return oauth.Auth{Token: s.Token}.AsMechanism()
	}

	tc := &tokenCache{
		cfg: &clientcredentials.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			TokenURL:     s.TokenURL,
			Scopes:       s.Scopes,
		},
		refreshBuffer: 20 * time.Second,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
	return oauth.Oauth(func(ctx context.Context) (oauth.Auth, error) {
		tok, err := tc.token(ctx)
		if err != nil {
			return oauth.Auth{}, fmt.Errorf("fetch OAuth token from %s: %w", s.TokenURL, err)
		}
		return oauth.Auth{Token: tok}, nil
	})
}

// awsCredentials resolves credentials from the default AWS chain on every
// authentication, so rotated session tokens are picked up.
func awsCredentials(ctx context.Context) (aws.Auth, error) {
	cfg, err := aws_config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Auth{}, fmt.Errorf("load AWS config: %w", err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Auth{}, fmt.Errorf("retrieve AWS credentials: %w", err)
	}
	return aws.Auth{
		AccessKey:    creds.AccessKeyID,
		SecretKey:    creds.SecretAccessKey,
		SessionToken: creds.SessionToken,
	}, nil
}

// tokenCache fetches client-credentials tokens and reuses one until
// refreshBuffer before it expires.
type tokenCache struct {
	cfg           *clientcredentials.Config
	refreshBuffer time.Duration
	httpClient    *http.Client

	mu        sync.Mutex
	cached    string
	replaceAt time.Time
}

func (tc *tokenCache) token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.cached != "" && time.Now().Before(tc.replaceAt) {
		return tc.cached, nil
	}

	if tc.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.httpClient)
	}
	tok, err := tc.cfg.Token(ctx)
	if err != nil {
		return "", err
	}

	tc.cached = tok.AccessToken
	tc.replaceAt = tok.Expiry.Add(-tc.refreshBuffer)
	slog.Debug("fetched OAuth token", "token_url", tc.cfg.TokenURL, "expires", tok.Expiry)
	return tc.cached, nil
}
