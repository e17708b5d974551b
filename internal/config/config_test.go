package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"genotasks/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Storage.DBPath != "data/genotasks.db" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Replica.NodeID == "" {
		t.Fatal("node id should be generated when unset")
	}
	caps := cfg.QuotaCaps()
	if caps[models.PriorityUrgent] != 1 || caps[models.PriorityHigh] != 2 {
		t.Fatalf("caps = %v", caps)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genotasks.yaml")
	data := []byte(`server:
  addr: ":9090"
storage:
  db_path: /tmp/board.db
replica:
  node_id: studio-1
  peers:
    - http://studio-2:8080
  sync_interval: 30s
quota:
  urgent: 2
  high: 3
log_level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Replica.NodeID != "studio-1" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Replica.Peers) != 1 || cfg.Replica.SyncInterval != 30*time.Second {
		t.Fatalf("replica = %+v", cfg.Replica)
	}
	if cfg.Quota.Urgent != 2 || cfg.Quota.High != 3 {
		t.Fatalf("quota = %+v", cfg.Quota)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level = %v", cfg.SlogLevel())
	}
	// Unset fields keep their defaults.
	if cfg.Server.StaticDir != "web/dist" {
		t.Fatalf("static dir = %q", cfg.Server.StaticDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GENOTASKS_ADDR", ":7070")
	t.Setenv("GENOTASKS_NODE_ID", "env-node")
	t.Setenv("GENOTASKS_PEERS", "http://a:8080, ,http://b:8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7070" || cfg.Replica.NodeID != "env-node" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.Replica.Peers) != 2 || cfg.Replica.Peers[1] != "http://b:8080" {
		t.Fatalf("peers = %v", cfg.Replica.Peers)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	t.Setenv("GENOTASKS_LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidateRejectsNegativeCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quota.Urgent = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative cap")
	}
}
