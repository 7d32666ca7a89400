package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/config"
)

func TestBuildTLS(t *testing.T) {
	tests := []struct {
		name     string
		cluster  *config.Cluster
		wantNil  bool
		insecure bool
	}{
		{name: "plaintext", cluster: &config.Cluster{}, wantNil: true},
		{name: "SASL_PLAINTEXT", cluster: &config.Cluster{SecurityProtocol: "SASL_PLAINTEXT"}, wantNil: true},
		{name: "SASL_SSL", cluster: &config.Cluster{SecurityProtocol: "SASL_SSL"}},
		{name: "SSL", cluster: &config.Cluster{SecurityProtocol: "SSL"}},
		{name: "TLS block", cluster: &config.Cluster{TLS: &config.TLS{Insecure: true}}, insecure: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildTLS(tt.cluster)
			require.NoError(t, err)
			if tt.wantNil {
				require.Nil(t, cfg)
				return
			}
			require.NotNil(t, cfg)
			require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
			require.Equal(t, tt.insecure, cfg.InsecureSkipVerify)
		})
	}
}

func TestBuildTLS_CAFileNotFound(t *testing.T) {
	_, err := buildTLS(&config.Cluster{
		TLS: &config.TLS{Cafile: filepath.Join(t.TempDir(), "missing.pem")},
	})
	require.ErrorContains(t, err, "read CA file")
}

func TestBuildSASL(t *testing.T) {
	tests := []struct {
		mechanism string
		want      string
	}{
		{"PLAIN", "PLAIN"},
		{"plain", "PLAIN"},
		{"SCRAM-SHA-256", "SCRAM-SHA-256"},
		{"SCRAM-SHA-512", "SCRAM-SHA-512"},
		{"OAUTHBEARER", "OAUTHBEARER"},
		{"AWS_MSK_IAM", "AWS_MSK_IAM"},
	}
	for _, tt := range tests {
		t.Run(tt.mechanism, func(t *testing.T) {
			mech, err := buildSASL(&config.Cluster{SASL: &config.SASL{
				Mechanism: tt.mechanism,
				Username:  "user",
				Password:  "pass",
				Token:     "token",
			}})
			require.NoError(t, err)
			require.Equal(t, tt.want, mech.Name())
		})
	}
}

func TestBuildSASL_None(t *testing.T) {
	mech, err := buildSASL(&config.Cluster{})
	require.NoError(t, err)
	require.Nil(t, mech)
}

func TestBuildSASL_Unsupported(t *testing.T) {
	_, err := buildSASL(&config.Cluster{SASL: &config.SASL{Mechanism: "GSSAPI"}})
	require.ErrorContains(t, err, "unsupported SASL mechanism: GSSAPI")
}

func TestOpts(t *testing.T) {
	_, err := Opts(&config.Cluster{Name: "empty"})
	require.ErrorContains(t, err, `cluster "empty" has no brokers`)

	_, err = Opts(&config.Cluster{Brokers: []string{"b:9092"}, SASL: &config.SASL{Mechanism: "nope"}})
	require.ErrorContains(t, err, "SASL config")

	opts, err := Opts(&config.Cluster{Brokers: []string{"b:9092"}, SecurityProtocol: "SSL"})
	require.NoError(t, err)
	require.NotEmpty(t, opts)
}

func TestNew(t *testing.T) {
	cl, err := New(&config.Cluster{Brokers: []string{"localhost:1"}})
	require.NoError(t, err)
	defer cl.Close()

	require.NotNil(t, cl.KGO)
	require.NotNil(t, cl.Admin)
	require.Equal(t, ClientID, cl.KGO.OptValue(kgo.ClientID))
}

func TestBuildSASL_MissingCredentials(t *testing.T) {
	tests := []*config.SASL{
		{Username: "user", Password: "pass"},
		{Mechanism: "SCRAM-SHA-256", Username: "user"},
		{Mechanism: "OAUTHBEARER", ClientID: "id"},
	}
	for _, s := range tests {
		_, err := buildSASL(&config.Cluster{Name: "prod", SASL: s})
		require.ErrorIs(t, err, config.ErrInvalidSASL)
		require.ErrorContains(t, err, `cluster "prod"`)
	}
}

func TestSCRAMClientFirstMessage(t *testing.T) {
	for _, mechanism := range []string{"SCRAM-SHA-256", "SCRAM-SHA-512"} {
		t.Run(mechanism, func(t *testing.T) {
			mech, err := buildSASL(&config.Cluster{SASL: &config.SASL{
				Mechanism: mechanism,
				Username:  "alice",
				Password:  "secret",
			}})
			require.NoError(t, err)

			session, first, err := mech.Authenticate(context.Background(), "broker:9092")
			require.NoError(t, err)
			require.NotNil(t, session)
			require.True(t, strings.HasPrefix(string(first), "n,,n=alice,r="), string(first))
		})
	}
}

func TestOAuthClientCredentials(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "unsupported grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fetched","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	mech, err := buildSASL(&config.Cluster{SASL: &config.SASL{
		Mechanism:    "OAUTHBEARER",
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL,
	}})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, msg, err := mech.Authenticate(context.Background(), "broker:9092")
		require.NoError(t, err)
		require.Contains(t, string(msg), "auth=Bearer fetched")
	}
	require.Equal(t, int32(1), hits.Load())
}

func TestOAuthTokenEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	mech := oauthMechanism(&config.SASL{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL})
	_, _, err := mech.Authenticate(context.Background(), "broker:9092")
	require.ErrorContains(t, err, "fetch OAuth token from "+srv.URL)
}

func TestBuildTLS_EmptyCAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))
	_, err := buildTLS(&config.Cluster{TLS: &config.TLS{Cafile: path}})
	require.ErrorContains(t, err, "contains no PEM certificates")
}

func TestStaticOAuthToken(t *testing.T) {
	mech := oauthMechanism(&config.SASL{Token: "abc"})
	_, msg, err := mech.Authenticate(context.Background(), "broker:9092")
	require.NoError(t, err)
	require.Contains(t, string(msg), "auth=Bearer abc")
}

func TestTokenCache_ReusesToken(t *testing.T) {
	tc := &tokenCache{cached: "cached", replaceAt: time.Now().Add(time.Minute)}
	tok, err := tc.token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached", tok)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	level := &slog.LevelVar{}
	level.Set(slog.LevelWarn)
	l := newLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))

	require.Equal(t, kgo.LogLevelWarn, l.Level())
	level.Set(slog.LevelDebug)
	require.Equal(t, kgo.LogLevelDebug, l.Level())

	l.Log(kgo.LogLevelInfo, "connected", "broker", "b1")
	require.Contains(t, buf.String(), "level=INFO")
	require.Contains(t, buf.String(), "msg=connected")
	require.Contains(t, buf.String(), "broker=b1")
	require.Contains(t, buf.String(), "component=kgo")
}
