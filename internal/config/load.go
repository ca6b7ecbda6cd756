package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, the config file and the
// PWASERVE_* environment.
//
// If path is empty, DefaultFile is read when it exists in the working
// directory; an explicit path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		if err := cfg.overlayFile(file); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s* environment: %w", EnvPrefix, err)
	}
	return cfg, nil
}

// overlayFile expands ${VAR} references in the file and decodes it over c.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded, err := envsubst.Bytes(data)
	if err != nil {
		return fmt.Errorf("failed to expand variables in %s: %w", path, err)
	}

	if err := yaml.Unmarshal(expanded, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes c as YAML to path, creating parent directories.
func Save(path string, c Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, DefaultDirPerms); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, DefaultFilePerms)
}
