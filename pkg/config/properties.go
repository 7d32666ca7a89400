package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	homedir "github.com/mitchellh/go-homedir"
)

// Default confluent cloud config file path
var defaultCcloudSubpath = filepath.Join(".ccloud", "config")

var errUnsupportedProperties = errors.New("invalid or unsupported client properties")

func TryFindCcloudConfigFile() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	absoluteDefaultPath := filepath.Join(home, defaultCcloudSubpath)

	_, err = os.Stat(absoluteDefaultPath)
	if err == nil {
		return absoluteDefaultPath, nil
	}
	return "", os.ErrNotExist
}

func extractValue(key, input string) (unquoted string, ok bool) {
	if strings.HasPrefix(input, key+"=") {
		return strings.TrimRight(strings.ReplaceAll(strings.TrimPrefix(input, key+"="), "\"", ""), ";"), true
	}
	return
}

// ParseClientProperties reads a Java Kafka client properties file (the
// format written by the Confluent Cloud CLI) into a Cluster named name.
func ParseClientProperties(path, name string) (*Cluster, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	servers, ok := p.Get("bootstrap.servers")
	if !ok || servers == "" {
		return nil, fmt.Errorf("%w: bootstrap.servers is missing", errUnsupportedProperties)
	}

	cluster := &Cluster{
		Name:             name,
		SecurityProtocol: p.GetString("security.protocol", ""),
	}
	for _, b := range strings.Split(servers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cluster.Brokers = append(cluster.Brokers, b)
		}
	}

	jaas, ok := p.Get("sasl.jaas.config")
	if !ok {
		return cluster, nil
	}

	var username, password string
	var haveUser, havePass bool
	for _, word := range strings.Fields(jaas) {
		if result, ok := extractValue("username", word); ok {
			username, haveUser = result, true
		}
		if result, ok := extractValue("password", word); ok {
			password, havePass = result, true
		}
	}
	if !haveUser || !havePass {
		return nil, fmt.Errorf("%w: could not parse sasl.jaas.config", errUnsupportedProperties)
	}

	cluster.SASL = &SASL{
		Mechanism: p.GetString("sasl.mechanism", "PLAIN"),
		Username:  username,
		Password:  password,
	}
	if cluster.SecurityProtocol == "" {
		cluster.SecurityProtocol = "SASL_SSL"
	}
	return cluster, nil
}
