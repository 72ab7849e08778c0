package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	storage "github.com/syntrixbase/sdastore/internal/core/storage/config"
	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is where LoadConfig looks for config.yml and config.local.yml
const DefaultConfigDir = "config"

// Config holds the application configuration
type Config struct {
	Storage storage.Config `yaml:"storage"`
	Logging LoggingConfig  `yaml:"logging"`
}

// LoadConfig loads configuration from files and environment variables
// Order: defaults -> config.yml -> config.local.yml -> ApplyEnvOverrides -> ResolvePaths -> Validate
func LoadConfig(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	// 1. Start with default values (so YAML can override them, including bool fields)
	cfg := &Config{
		Storage: storage.DefaultConfig(),
		Logging: DefaultLoggingConfig(),
	}

	// 2. Load config.yml (overrides defaults)
	loadFile(filepath.Join(configDir, "config.yml"), cfg)

	// 3. Load config.local.yml (overrides config.yml)
	loadFile(filepath.Join(configDir, "config.local.yml"), cfg)

	// 4. Apply configuration lifecycle
	if err := ApplyServiceConfigs(configDir, &cfg.Storage, &cfg.Logging); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}
