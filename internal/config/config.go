// Package config loads credentials and endpoints from an optional YAML file,
// with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names. They override the corresponding file values.
const (
	EnvUsername             = "STORECMD_USERNAME"
	EnvPassword             = "STORECMD_PASSWORD"
	EnvBaseURL              = "STORECMD_BASE_URL"
	EnvReleaseEventEndpoint = "STORECMD_RELEASE_EVENT_ENDPOINT"
)

// DefaultFile is the config file looked up in the working directory when no
// explicit path is given.
const DefaultFile = ".storecmd.yaml"

// Config carries everything the CLI needs to talk to the store.
type Config struct {
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	BaseURL              string `yaml:"base_url"`
	ReleaseEventEndpoint string `yaml:"release_event_endpoint"`
}

// Load reads the config file at path (or DefaultFile if path is empty) and
// applies environment overrides. A missing file is not an error; env vars
// alone can provide a complete configuration.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// fall through to env-only configuration
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvReleaseEventEndpoint); v != "" {
		cfg.ReleaseEventEndpoint = v
	}

	return cfg, nil
}

// Credentials validates that a username and password are present.
func (c *Config) Credentials() (username, password string, err error) {
	if c.Username == "" {
		return "", "", fmt.Errorf("no username configured (set %s or the config file)", EnvUsername)
	}
	if c.Password == "" {
		return "", "", fmt.Errorf("no password configured (set %s or the config file)", EnvPassword)
	}
	return c.Username, c.Password, nil
}
