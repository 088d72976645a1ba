package schema

import (
	"errors"
	"time"
)

// ShellConfig defines per-session engine settings.
type ShellConfig struct {
	Host       string
	Latency    time.Duration
	HistoryMax int
	CatURL     string
	Greeting   string
}

const (
	// DefaultLatency is the simulated delay between echo and dispatch.
	DefaultLatency = 300 * time.Millisecond
	// DefaultHistoryMax bounds the per-session history log.
	DefaultHistoryMax = 500
	// DefaultCatURL is the image endpoint used by the cat command.
	DefaultCatURL = "https://cataas.com/cat"
	// DefaultGreeting is rendered before the message of the day.
	DefaultGreeting = "The rift is calling you…"
)

// NormalizeShellConfig applies defaults and validates the config.
// A negative latency is rejected; zero is kept so tests can dispatch immediately.
func NormalizeShellConfig(cfg ShellConfig) (ShellConfig, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Latency < 0 {
		return ShellConfig{}, errors.New("shell latency must not be negative")
	}
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.CatURL == "" {
		cfg.CatURL = DefaultCatURL
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	return cfg, nil
}
