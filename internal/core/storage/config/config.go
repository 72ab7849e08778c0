package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Mongo  MongoConfig  `yaml:"mongo"`
	Agents AgentsConfig `yaml:"agents"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	DatabaseName   string        `yaml:"database_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type AgentsConfig struct {
	Collection string `yaml:"collection"`
}

func DefaultConfig() Config {
	return Config{
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			DatabaseName:   "sda",
			ConnectTimeout: 10 * time.Second,
		},
		Agents: AgentsConfig{
			Collection: "agents",
		},
	}
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("storage.mongo.uri is required")
	}
	if c.Mongo.DatabaseName == "" {
		return fmt.Errorf("storage.mongo.database_name is required")
	}
	if c.Mongo.ConnectTimeout < 0 {
		return fmt.Errorf("storage.mongo.connect_timeout must not be negative, got %s", c.Mongo.ConnectTimeout)
	}
	if c.Agents.Collection == "" {
		return fmt.Errorf("storage.agents.collection is required")
	}
	return nil
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Mongo.URI == "" {
		c.Mongo.URI = defaults.Mongo.URI
	}
	if c.Mongo.DatabaseName == "" {
		c.Mongo.DatabaseName = defaults.Mongo.DatabaseName
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = defaults.Mongo.ConnectTimeout
	}
	if c.Agents.Collection == "" {
		c.Agents.Collection = defaults.Agents.Collection
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.Mongo.URI = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Mongo.DatabaseName = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in storage config.
func (c *Config) ResolvePaths(_ string) { _ = c }
