package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPPort != "3000" {
		t.Fatalf("http_port = %q, want 3000", cfg.Server.HTTPPort)
	}
	if cfg.Discovery.Port != 8888 || !cfg.Discovery.Enabled {
		t.Fatalf("discovery defaults = %+v", cfg.Discovery)
	}
	if cfg.Timers.OnlineThreshold != 180*time.Second {
		t.Fatalf("online_threshold = %v, want 180s", cfg.Timers.OnlineThreshold)
	}
	if cfg.Notify.DedupWindow != 2*time.Second {
		t.Fatalf("dedup_window = %v, want 2s", cfg.Notify.DedupWindow)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TIMERHUB_TIMERS_ONLINE_THRESHOLD", "10s")
	t.Setenv("TIMERHUB_SERVER_HTTP_PORT", "8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timers.OnlineThreshold != 10*time.Second {
		t.Fatalf("online_threshold = %v, want env override 10s", cfg.Timers.OnlineThreshold)
	}
	if cfg.Server.HTTPPort != "8080" {
		t.Fatalf("http_port = %q, want env override 8080", cfg.Server.HTTPPort)
	}
}
