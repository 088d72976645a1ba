package main

import (
	"testing"
	"time"

	"pkt.systems/qult/internal/appconfig"
	"pkt.systems/qult/internal/content"
	"pkt.systems/qult/schema"
)

func TestToServerConfigMapsSections(t *testing.T) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Shell.LatencyMS = 0
	cfg.Shell.Greeting = "<p>hello</p>"
	cfg.Content.Source = "dir"
	cfg.Content.Dir = "/srv/fragments"
	cfg.Content.TimeoutSeconds = 3
	cfg.Logging.DisableAuditTrails = true
	cfg.SSH.IdleTimeoutSeconds = 60
	cfg.Terminal.MaxBlocks = 42

	got := toServerConfig(cfg)
	if got.Engine.Shell.Latency != 0 {
		t.Fatalf("expected zero latency, got %s", got.Engine.Shell.Latency)
	}
	if got.Engine.Router.Greeting != "<p>hello</p>" {
		t.Fatalf("expected greeting to reach router, got %q", got.Engine.Router.Greeting)
	}
	if got.Engine.Router.FetchTimeout != 3*time.Second || !got.Engine.Router.DisableAuditLogging {
		t.Fatalf("unexpected router config %+v", got.Engine.Router)
	}
	if got.Content.Source != content.KindDir || got.Content.Dir != "/srv/fragments" {
		t.Fatalf("unexpected content config %+v", got.Content)
	}
	if got.HTTP.SessionCookie != cfg.HTTP.SessionCookie || got.HTTP.HubHistory != cfg.HTTP.HubHistory {
		t.Fatalf("unexpected http config %+v", got.HTTP)
	}
	if got.SSH.IdleTimeout != time.Minute || got.SSH.MaxBlocks != 42 || got.SSH.Theme != cfg.Terminal.Theme {
		t.Fatalf("unexpected ssh config %+v", got.SSH)
	}
}

func TestServerOptionsFollowEnabledFlags(t *testing.T) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	if got := len(serverOptions(cfg)); got != 2 {
		t.Fatalf("expected http and ssh, got %d options", got)
	}
	cfg.SSH.Enabled = false
	if got := len(serverOptions(cfg)); got != 1 {
		t.Fatalf("expected only http, got %d options", got)
	}
	cfg.HTTP.Enabled = false
	if got := len(serverOptions(cfg)); got != 0 {
		t.Fatalf("expected no options, got %d", got)
	}
}

func TestServeRejectsAllSurfacesDisabled(t *testing.T) {
	path := writeTestConfig(t, `
config_version: 1
http:
  enabled: false
ssh:
  enabled: false
`)
	if _, err := runRoot(t, "serve", "--no-banner", "-c", path); err == nil {
		t.Fatalf("expected serve to refuse with every surface disabled")
	}
}

func TestTraceTapDoesNotBlock(t *testing.T) {
	tap := traceTap(discardLogger())
	done := make(chan struct{})
	go func() {
		tap("s-1", "web", schema.Event{Type: schema.EventClear, Seq: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("trace tap blocked")
	}
}
