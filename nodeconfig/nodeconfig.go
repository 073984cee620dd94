// Package nodeconfig loads the node's TOML configuration file.
package nodeconfig

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds node-wide settings not specific to any one village.
type Config struct {
	DataDir              string `toml:"DataDir"`
	NodeSigningKeyEnvVar string `toml:"NodeSigningKeyEnvVar"`
	DefaultRateLimitPerMin int  `toml:"DefaultRateLimitPerMin"`
	QuarantineRetentionDays int `toml:"QuarantineRetentionDays"`
}

// Load reads cfg from path, creating a default file if none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.DefaultRateLimitPerMin <= 0 {
		cfg.DefaultRateLimitPerMin = 60
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:                 "./villages-data",
		NodeSigningKeyEnvVar:    "VILLAGES_NODE_SIGNING_KEY_B64",
		DefaultRateLimitPerMin:  60,
		QuarantineRetentionDays: 90,
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NodeSigningSeed reads and decodes the node signing key from the
// environment variable named by cfg.NodeSigningKeyEnvVar. It returns
// (nil, nil) when absent: signing is then disabled, not an error.
func (c *Config) NodeSigningSeed(lookup func(string) (string, bool)) ([]byte, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	val, ok := lookup(c.NodeSigningKeyEnvVar)
	if !ok || val == "" {
		return nil, nil
	}
	return decodeSeedB64(val)
}
