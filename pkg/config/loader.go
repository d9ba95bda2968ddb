package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the layered configuration:
//
//  1. <configDir>/base.yaml (required)
//  2. <configDir>/<env>.yaml (optional, overrides base)
//  3. <configDir>/secrets.env (optional, substitutes ${VAR} placeholders)
//  4. process environment variables (highest priority)
func Load(env, configDir string) (*Config, error) {
	if configDir == "" {
		configDir = "config"
	}

	secrets, err := loadSecrets(filepath.Join(configDir, "secrets.env"))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := decodeFile(filepath.Join(configDir, "base.yaml"), secrets, &cfg); err != nil {
		return nil, fmt.Errorf("load base.yaml: %w", err)
	}

	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, env+".yaml")
		if _, err := os.Stat(envFile); err == nil {
			// Decoding over the same struct keeps base values for keys the
			// env file does not set.
			if err := decodeFile(envFile, secrets, &cfg); err != nil {
				return nil, fmt.Errorf("load %s.yaml: %w", env, err)
			}
		}
	}

	cfg.OverrideFromEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Agent.TimeoutSeconds <= 0 {
		c.Agent.TimeoutSeconds = 10
	}
	if c.Search.KeywordWeight == 0 && c.Search.BM25Weight == 0 && c.Search.VectorWeight == 0 {
		c.Search.KeywordWeight = 0.25
		c.Search.BM25Weight = 0.35
		c.Search.VectorWeight = 0.40
	}
}

func decodeFile(path string, secrets map[string]string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal([]byte(substitute(string(data), secrets)), cfg)
}

// substitute replaces ${VAR} placeholders from the secrets file first, then
// from the process environment.
func substitute(s string, secrets map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(key string) string {
		if v, ok := secrets[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// loadSecrets parses a KEY=VALUE env file. A missing file is not an error.
func loadSecrets(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	env := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		env[key] = value
	}
	return env, nil
}
