// Package config loads the fedctl identity configuration from
// ~/.fedctl/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chukul/fedctl/federation"
)

// configPath is a variable so tests can point it at a temp dir.
var configPath = filepath.Join(os.Getenv("HOME"), ".fedctl", "config.toml")

const defaultDurationMinutes = 60

// Identity is one configured federated identity.
type Identity struct {
	RoleARN         string `toml:"role_arn"`
	TokenFile       string `toml:"token_file"`
	Region          string `toml:"region,omitempty"`
	SessionName     string `toml:"session_name,omitempty"`
	DurationMinutes int    `toml:"duration_minutes,omitempty"`
	QueueURL        string `toml:"queue_url,omitempty"`
}

// Config is the full configuration file.
type Config struct {
	DefaultRegion string              `toml:"default_region,omitempty"`
	Identities    map[string]Identity `toml:"identities"`
}

// Load reads and parses the config file.
func Load() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no config found at %s (run 'fedctl init' first)", configPath)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(configPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Identity returns the named identity with defaults applied, or an
// error if it is missing or incomplete.
func (c *Config) Identity(name string) (Identity, error) {
	id, ok := c.Identities[name]
	if !ok {
		return Identity{}, fmt.Errorf("identity '%s' not found in %s", name, configPath)
	}
	if id.RoleARN == "" {
		return Identity{}, fmt.Errorf("identity '%s' has no role_arn", name)
	}
	if id.TokenFile == "" {
		return Identity{}, fmt.Errorf("identity '%s' has no token_file", name)
	}
	if id.Region == "" {
		id.Region = c.DefaultRegion
	}
	if id.Region == "" {
		return Identity{}, fmt.Errorf("identity '%s' has no region and no default_region is set", name)
	}
	if id.SessionName == "" {
		id.SessionName = name
	}
	if id.DurationMinutes == 0 {
		id.DurationMinutes = defaultDurationMinutes
	}
	return id, nil
}

// Names returns all configured identity names.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Identities))
	for name := range c.Identities {
		names = append(names, name)
	}
	return names
}

// ExchangeRequest converts the identity into the request the session
// cache exchanges with.
func (i Identity) ExchangeRequest() federation.ExchangeRequest {
	return federation.ExchangeRequest{
		TokenFile:   i.TokenFile,
		RoleARN:     i.RoleARN,
		SessionName: i.SessionName,
		Region:      i.Region,
		Duration:    time.Duration(i.DurationMinutes) * time.Minute,
	}
}
