package appconfig

import (
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"

	"pkt.systems/qult/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Shell         ShellConfig    `mapstructure:"shell" yaml:"shell"`
	Content       ContentConfig  `mapstructure:"content" yaml:"content"`
	HTTP          HTTPConfig     `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig      `mapstructure:"ssh" yaml:"ssh"`
	Terminal      TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Logging       LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ShellConfig controls per-session engine behavior.
type ShellConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	LatencyMS  int    `mapstructure:"latency_ms" yaml:"latency_ms"`
	HistoryMax int    `mapstructure:"history_max" yaml:"history_max"`
	CatURL     string `mapstructure:"cat_url" yaml:"cat_url"`
	Greeting   string `mapstructure:"greeting" yaml:"greeting"`
}

// ContentConfig selects where fragments come from.
type ContentConfig struct {
	Source         string `mapstructure:"source" yaml:"source"`
	Dir            string `mapstructure:"dir" yaml:"dir"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Sanitize       bool   `mapstructure:"sanitize" yaml:"sanitize"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr            string `mapstructure:"addr" yaml:"addr"`
	SessionCookie   string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	BasePath        string `mapstructure:"base_path" yaml:"base_path"`
	HubHistory      int    `mapstructure:"hub_history" yaml:"hub_history"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	IdleTimeoutSeconds int    `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	Banner             string `mapstructure:"banner" yaml:"banner"`
}

// TerminalConfig styles ANSI surfaces (SSH and the local shell).
type TerminalConfig struct {
	Theme     string `mapstructure:"theme" yaml:"theme"`
	Style     string `mapstructure:"style" yaml:"style"`
	MaxBlocks int    `mapstructure:"max_blocks" yaml:"max_blocks"`
}

// LoggingConfig controls log output and audit logging.
type LoggingConfig struct {
	File               string `mapstructure:"file" yaml:"file"`
	MaxSizeMB          int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups         int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays         int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress           bool   `mapstructure:"compress" yaml:"compress"`
	DisableAuditTrails bool   `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Shell: ShellConfig{
			Host:       schema.DefaultHost,
			LatencyMS:  int(schema.DefaultLatency / time.Millisecond),
			HistoryMax: schema.DefaultHistoryMax,
			CatURL:     schema.DefaultCatURL,
			Greeting:   schema.DefaultGreeting,
		},
		Content: ContentConfig{
			Source:         "embedded",
			TimeoutSeconds: 10,
			Sanitize:       true,
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            ":27580",
			SessionCookie:   "qult_session",
			SessionTTLHours: 24,
			HubHistory:      1000,
		},
		SSH: SSHConfig{
			Enabled:            true,
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(home, ".qult", "ssh_host_key"),
			IdleTimeoutSeconds: 1800,
		},
		Terminal: TerminalConfig{
			Theme:     "outrun",
			Style:     "dark",
			MaxBlocks: 1000,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".qult", "config.yaml"), nil
}

// ShellSettings converts the shell section for the engine.
func (c Config) ShellSettings() schema.ShellConfig {
	return schema.ShellConfig{
		Host:       c.Shell.Host,
		Latency:    time.Duration(c.Shell.LatencyMS) * time.Millisecond,
		HistoryMax: c.Shell.HistoryMax,
		CatURL:     c.Shell.CatURL,
		Greeting:   c.Shell.Greeting,
	}
}
