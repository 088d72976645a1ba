package appconfig

import (
	"testing"
	"time"

	"pkt.systems/qult/schema"
)

func TestDefaultConfigShellSettings(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	shell := cfg.ShellSettings()
	if shell.Host != schema.DefaultHost {
		t.Fatalf("expected host %q, got %q", schema.DefaultHost, shell.Host)
	}
	if shell.Latency != schema.DefaultLatency {
		t.Fatalf("expected latency %s, got %s", schema.DefaultLatency, shell.Latency)
	}
	if shell.HistoryMax != schema.DefaultHistoryMax {
		t.Fatalf("expected history max %d, got %d", schema.DefaultHistoryMax, shell.HistoryMax)
	}
	if cfg.Content.Source != "embedded" || !cfg.Content.Sanitize {
		t.Fatalf("expected sanitized embedded content, got %+v", cfg.Content)
	}
}

func TestShellSettingsKeepsZeroLatency(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Shell.LatencyMS = 0
	if got := cfg.ShellSettings().Latency; got != 0 {
		t.Fatalf("expected zero latency, got %s", got)
	}
	cfg.Shell.LatencyMS = 25
	if got := cfg.ShellSettings().Latency; got != 25*time.Millisecond {
		t.Fatalf("expected 25ms, got %s", got)
	}
}
