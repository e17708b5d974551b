// Package config defines the GenoTasks node configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"genotasks/internal/models"
	"genotasks/internal/quota"
)

// Config is the top-level configuration of a node.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Replica  ReplicaConfig `yaml:"replica"`
	Quota    QuotaConfig   `yaml:"quota"`
	LogLevel string        `yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // listen address, e.g. ":8080"
	StaticDir string `yaml:"static_dir"` // built frontend, empty for API only
}

// StorageConfig controls the replica journal.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ReplicaConfig controls replication with other nodes.
type ReplicaConfig struct {
	NodeID       string        `yaml:"node_id"`
	Peers        []string      `yaml:"peers"` // base URLs of peer nodes
	SyncInterval time.Duration `yaml:"sync_interval"`
}

// QuotaConfig holds the per-tier caps of the priority quota. These values
// are business configuration and still need confirming with the team leads.
type QuotaConfig struct {
	Urgent int `yaml:"urgent"`
	High   int `yaml:"high"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "web/dist",
		},
		Storage: StorageConfig{
			DBPath: "data/genotasks.db",
		},
		Replica: ReplicaConfig{
			SyncInterval: 5 * time.Second,
		},
		Quota: QuotaConfig{
			Urgent: quota.UrgentCap,
			High:   quota.HighCap,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file on top of the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if cfg.Replica.NodeID == "" {
		cfg.Replica.NodeID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GENOTASKS_* environment variables.
func (c *Config) ApplyEnv() {
	c.Server.Addr = envOrDefault("GENOTASKS_ADDR", c.Server.Addr)
	c.Server.StaticDir = envOrDefault("GENOTASKS_STATIC_DIR", c.Server.StaticDir)
	c.Storage.DBPath = envOrDefault("GENOTASKS_DB_PATH", c.Storage.DBPath)
	c.Replica.NodeID = envOrDefault("GENOTASKS_NODE_ID", c.Replica.NodeID)
	c.LogLevel = envOrDefault("GENOTASKS_LOG_LEVEL", c.LogLevel)
	if peers := os.Getenv("GENOTASKS_PEERS"); peers != "" {
		c.Replica.Peers = nil
		for _, p := range strings.Split(peers, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Replica.Peers = append(c.Replica.Peers, p)
			}
		}
	}
}

// Validate checks the config for values the node cannot run with.
func (c *Config) Validate() error {
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path must not be empty")
	}
	if c.Quota.Urgent < 0 || c.Quota.High < 0 {
		return fmt.Errorf("quota caps must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// QuotaCaps returns the configured caps keyed by priority tier.
func (c *Config) QuotaCaps() quota.Caps {
	return quota.Caps{
		models.PriorityUrgent: c.Quota.Urgent,
		models.PriorityHigh:   c.Quota.High,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}

// envOrDefault returns the environment variable value or fallback when it is empty.
func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
