package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/birdayz/rsv/pkg/config"
)

// Client wraps a franz-go kgo.Client and kadm.Client.
type Client struct {
	KGO   *kgo.Client
	Admin *kadm.Client
}

// Close closes both the admin and kgo clients.
func (c *Client) Close() {
	if c.Admin != nil {
		c.Admin.Close()
	}
	if c.KGO != nil {
		c.KGO.Close()
	}
}

// ClientID identifies rsv to brokers.
const ClientID = "rsv"

// Opts returns the connection options for cluster: seed brokers, timeouts,
// TLS, SASL and a logger forwarding franz-go logs to slog.
func Opts(cluster *config.Cluster) ([]kgo.Opt, error) {
	if len(cluster.Brokers) == 0 {
		return nil, fmt.Errorf("cluster %q has no brokers", cluster.Name)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cluster.Brokers...),
		kgo.ClientID(ClientID),
		kgo.DialTimeout(10 * time.Second),
		kgo.RequestTimeoutOverhead(10 * time.Second),
		kgo.ConnIdleTimeout(60 * time.Second),
		kgo.WithLogger(newLogger(slog.Default().With("cluster", cluster.Name))),
	}

	tlsCfg, err := buildTLS(cluster)
	if err != nil {
		return nil, fmt.Errorf("TLS config: %w", err)
	}
	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}

	mech, err := buildSASL(cluster)
	if err != nil {
		return nil, fmt.Errorf("SASL config: %w", err)
	}
	if mech != nil {
		if mech.Name() == "PLAIN" && tlsCfg == nil {
			slog.Warn("SASL PLAIN without TLS sends credentials in cleartext", "cluster", cluster.Name)
		}
		opts = append(opts, kgo.SASL(mech))
	}
	return opts, nil
}

// New creates a new Client from a Cluster config. opts are applied after
// the cluster options and can override them.
func New(cluster *config.Cluster, opts ...kgo.Opt) (*Client, error) {
	baseOpts, err := Opts(cluster)
	if err != nil {
		return nil, err
	}
	baseOpts = append(baseOpts, opts...)
	slog.Debug("creating kafka client", "cluster", cluster.Name, "brokers", cluster.Brokers)

	cl, err := kgo.NewClient(baseOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	return &Client{
		KGO:   cl,
		Admin: kadm.NewClient(cl),
	}, nil
}

// buildTLS returns nil for plaintext clusters. A TLS block or an SSL
// security protocol enables TLS 1.2 or later.
func buildTLS(cluster *config.Cluster) (*tls.Config, error) {
	switch {
	case cluster.TLS != nil:
	case cluster.SecurityProtocol == "SSL", cluster.SecurityProtocol == "SASL_SSL":
		return &tls.Config{MinVersion: tls.VersionTLS12}, nil
	default:
		return nil, nil
	}

	t := cluster.TLS
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: t.Insecure,
	}
	if t.Insecure {
		slog.Warn("TLS certificate verification is disabled", "cluster", cluster.Name)
	}
	if t.Cafile != "" {
		pool, err := loadCertPool(t.Cafile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if t.Clientfile != "" && t.Clientkeyfile != "" {
		cert, err := tls.LoadX509KeyPair(t.Clientfile, t.Clientkeyfile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA file %s contains no PEM certificates", path)
	}
	return pool, nil
}
