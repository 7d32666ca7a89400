package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	yaml "gopkg.in/yaml.v3"

	"github.com/birdayz/rsv/pkg/compress"
)

type SASL struct {
	Mechanism    string   `yaml:"mechanism"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret"`
	TokenURL     string   `yaml:"tokenURL"`
	Scopes       []string `yaml:"scopes"`
	Token        string   `yaml:"token"`
}

// ErrInvalidSASL is wrapped by SASL.Validate failures.
var ErrInvalidSASL = errors.New("invalid SASL config")

// Validate checks that s names a mechanism and carries the credentials that
// mechanism needs. Mechanisms it does not know are left to the client.
func (s *SASL) Validate() error {
	switch strings.ToUpper(s.Mechanism) {
	case "":
		return fmt.Errorf("%w: mechanism is required", ErrInvalidSASL)
	case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		if s.Username == "" || s.Password == "" {
			return fmt.Errorf("%w: %s requires username and password", ErrInvalidSASL, s.Mechanism)
		}
	case "OAUTHBEARER":
		if s.Token == "" && (s.ClientID == "" || s.ClientSecret == "" || s.TokenURL == "") {
			return fmt.Errorf("%w: OAUTHBEARER requires token, or clientID, clientSecret and tokenURL", ErrInvalidSASL)
		}
	}
	return nil
}

type TLS struct {
	Cafile        string
	Clientfile    string
	Clientkeyfile string
	Insecure      bool
}

// Cluster is a Kafka cluster that tables can be produced to and consumed
// from.
type Cluster struct {
	Name             string
	Brokers          []string `yaml:"brokers"`
	SASL             *SASL    `yaml:"SASL"`
	TLS              *TLS     `yaml:"TLS"`
	SecurityProtocol string   `yaml:"security-protocol"`
	// Topic used by produce and consume when none is given.
	Topic string `yaml:"topic,omitempty"`
}

type Config struct {
	// Strict rejects text values containing reserved bytes on encode.
	// Unset means true.
	Strict *bool `yaml:"strict,omitempty"`
	// Compression applied to produced records and to written files whose
	// name has no compression extension.
	Compression compress.Algorithm `yaml:"compression,omitempty"`
	// Format is the default --output format for printed tables.
	Format   string `yaml:"format,omitempty"`
	LogLevel string `yaml:"log-level,omitempty"`
	// Null is how the table renderer prints null cells.
	Null string `yaml:"null,omitempty"`

	CurrentCluster  string     `yaml:"current-cluster"`
	ClusterOverride string     `yaml:"-"`
	Clusters        []*Cluster `yaml:"clusters"`
	// configPath is the file path used for reading and writing this config.
	configPath string `yaml:"-"`
}

// StrictMode reports whether strict encoding is enabled.
func (c *Config) StrictMode() bool {
	return c.Strict == nil || *c.Strict
}

// DefaultFormat returns the configured format, falling back to json.
func (c *Config) DefaultFormat() string {
	if c.Format == "" {
		return "json"
	}
	return c.Format
}

// NullString returns the placeholder printed for null cells.
func (c *Config) NullString() string {
	if c.Null == "" {
		return "NULL"
	}
	return c.Null
}

// Level parses LogLevel. Unknown or empty values mean warn.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Path returns the file this config was read from.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) HasCluster(name string) bool {
	for _, cluster := range c.Clusters {
		if cluster.Name == name {
			return true
		}
	}
	return false
}

func (c *Config) SetCurrentCluster(name string) error {
	var oldCluster string
	if c.ActiveCluster() != nil {
		oldCluster = c.ActiveCluster().Name
	}
	for _, cluster := range c.Clusters {
		if cluster.Name == name {
			c.CurrentCluster = name

			if err := c.Write(); err != nil {
				// "Revert" change to the cluster struct, either
				// everything is successful or nothing.
				c.CurrentCluster = oldCluster
				return err

			}
			return nil

		}
	}
	return fmt.Errorf("could not find cluster with name %v", name)
}

func (c *Config) ActiveCluster() *Cluster {
	if c == nil {
		return nil
	}

	toSearch := c.ClusterOverride
	if c.ClusterOverride == "" {
		toSearch = c.CurrentCluster
	}

	if toSearch == "" {
		return nil
	}

	for _, cluster := range c.Clusters {
		if cluster.Name == toSearch {
			// Make copy of cluster struct, using a pointer leads to unintended
			// behavior where modifications on currentCluster are written back
			// into the config
			c := *cluster
			return &c
		}
	}
	return nil
}

func (c *Config) Write() error {
	configPath := c.configPath
	if configPath == "" {
		var err error
		configPath, err = getDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(configDir, "config.*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmpFile.Name()

	encoder := yaml.NewEncoder(tmpFile)
	if err := encoder.Encode(c); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp config file: %w", err)
	}
	c.configPath = configPath
	return nil
}

// Validate checks values that yaml decoding cannot and normalizes the
// compression name.
func (c *Config) Validate() error {
	a, err := compress.ParseAlgorithm(string(c.Compression))
	if err != nil {
		return err
	}
	c.Compression = a
	if c.CurrentCluster != "" && !c.HasCluster(c.CurrentCluster) {
		return fmt.Errorf("current-cluster %q is not defined", c.CurrentCluster)
	}
	for i, cl := range c.Clusters {
		if cl.SASL == nil {
			continue
		}
		if err := cl.SASL.Validate(); err != nil {
			return fmt.Errorf("clusters[%d] %q: %w", i, cl.Name, err)
		}
	}
	return nil
}

func ReadConfig(cfgPath string) (c Config, err error) {
	resolvedPath, err := resolveConfigPath(cfgPath)
	if err != nil {
		return Config{}, err
	}

	file, err := os.OpenFile(resolvedPath, os.O_RDONLY, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{configPath: resolvedPath}, nil
		}
		return Config{}, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	err = decoder.Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", resolvedPath, err)
	}
	c.configPath = resolvedPath
	return c, nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func resolveConfigPath(cfgPath string) (string, error) {
	if cfgPath == "" {
		return getDefaultConfigPath()
	}
	if !fileExists(cfgPath) {
		return "", fmt.Errorf("config file %q does not exist", cfgPath)
	}
	return cfgPath, nil
}

func getDefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	return filepath.Join(home, ".rsv", "config"), nil
}
