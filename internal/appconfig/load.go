package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath; a missing default file yields the defaults.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("shell.host", cfg.Shell.Host)
	v.SetDefault("shell.latency_ms", cfg.Shell.LatencyMS)
	v.SetDefault("shell.history_max", cfg.Shell.HistoryMax)
	v.SetDefault("shell.cat_url", cfg.Shell.CatURL)
	v.SetDefault("shell.greeting", cfg.Shell.Greeting)
	v.SetDefault("content.source", cfg.Content.Source)
	v.SetDefault("content.dir", cfg.Content.Dir)
	v.SetDefault("content.base_url", cfg.Content.BaseURL)
	v.SetDefault("content.timeout_seconds", cfg.Content.TimeoutSeconds)
	v.SetDefault("content.sanitize", cfg.Content.Sanitize)
	v.SetDefault("http.enabled", cfg.HTTP.Enabled)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.session_cookie", cfg.HTTP.SessionCookie)
	v.SetDefault("http.session_ttl_hours", cfg.HTTP.SessionTTLHours)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.hub_history", cfg.HTTP.HubHistory)
	v.SetDefault("ssh.enabled", cfg.SSH.Enabled)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.idle_timeout_seconds", cfg.SSH.IdleTimeoutSeconds)
	v.SetDefault("ssh.banner", cfg.SSH.Banner)
	v.SetDefault("terminal.theme", cfg.Terminal.Theme)
	v.SetDefault("terminal.style", cfg.Terminal.Style)
	v.SetDefault("terminal.max_blocks", cfg.Terminal.MaxBlocks)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("logging.disable_audit_trails", cfg.Logging.DisableAuditTrails)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := expandConfigPaths(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type-check.
func Validate(cfg Config) error {
	if cfg.Shell.LatencyMS < 0 {
		return errors.New("shell.latency_ms must not be negative")
	}
	if err := validateContentConfig(cfg.Content); err != nil {
		return err
	}
	return validateHTTPConfig(cfg.HTTP)
}

func validateContentConfig(cfg ContentConfig) error {
	switch strings.TrimSpace(cfg.Source) {
	case "", "embedded":
	case "dir":
		if strings.TrimSpace(cfg.Dir) == "" {
			return errors.New("content.dir is required when content.source is dir")
		}
	case "http":
		parsed, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("content.base_url must include scheme and host when content.source is http")
		}
	default:
		return fmt.Errorf("unsupported content.source %q", cfg.Source)
	}
	if cfg.TimeoutSeconds < 0 {
		return errors.New("content.timeout_seconds must not be negative")
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigPaths(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	for _, target := range []*string{&cfg.Content.Dir, &cfg.SSH.HostKeyPath, &cfg.Logging.File} {
		expanded, err := expandPath(*target)
		if err != nil {
			return err
		}
		*target = expanded
	}
	cfg.Content.BaseURL = expandEnv(cfg.Content.BaseURL)
	return nil
}

func expandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	return homedir.Expand(expandEnv(value))
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
