package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/qult"
	"pkt.systems/qult/httpapi"
	"pkt.systems/qult/internal/appconfig"
	"pkt.systems/qult/internal/command"
	"pkt.systems/qult/internal/content"
	"pkt.systems/qult/schema"
	"pkt.systems/qult/sshserver"
)

//go:embed assets/banner.txt
var serveBanner string

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var noBanner bool
	var traceEvents bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web and SSH shells",
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && serveBanner != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), serveBanner)
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			ctx, closeLog := withLogFile(cmd.Context(), cfg.Logging, os.Stderr)
			defer closeLog()
			logger := pslog.Ctx(ctx)

			serverCfg := toServerConfig(cfg)
			if traceEvents {
				serverCfg.Engine.Tap = traceTap(logger)
			}
			opts := serverOptions(cfg)
			if len(opts) == 0 {
				return errors.New("both http and ssh are disabled; enable at least one")
			}
			server, err := qult.New(serverCfg, qult.ServerDeps{}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	cmd.Flags().BoolVar(&traceEvents, "trace-events", false, "log every session event at debug level")
	return cmd
}

func serverOptions(cfg appconfig.Config) []qult.ServerOption {
	var opts []qult.ServerOption
	if cfg.HTTP.Enabled {
		opts = append(opts, qult.WithHTTP())
	}
	if cfg.SSH.Enabled {
		opts = append(opts, qult.WithSSH())
	}
	return opts
}

func toServerConfig(cfg appconfig.Config) qult.ServerConfig {
	return qult.ServerConfig{
		Engine:  toEngineConfig(cfg),
		Content: toContentConfig(cfg.Content),
		HTTP:    toHTTPConfig(cfg.HTTP),
		SSH:     toSSHConfig(cfg.SSH, cfg.Terminal),
	}
}

func toEngineConfig(cfg appconfig.Config) qult.EngineConfig {
	shell := cfg.ShellSettings()
	return qult.EngineConfig{
		Shell: shell,
		Router: command.RouterConfig{
			FetchTimeout:        time.Duration(cfg.Content.TimeoutSeconds) * time.Second,
			Greeting:            shell.Greeting,
			DisableAuditLogging: cfg.Logging.DisableAuditTrails,
		},
	}
}

func toContentConfig(cfg appconfig.ContentConfig) content.Config {
	return content.Config{
		Source:   content.Kind(strings.TrimSpace(cfg.Source)),
		Dir:      cfg.Dir,
		BaseURL:  cfg.BaseURL,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		Sanitize: cfg.Sanitize,
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:            cfg.Addr,
		SessionCookie:   cfg.SessionCookie,
		SessionTTLHours: cfg.SessionTTLHours,
		BaseURL:         cfg.BaseURL,
		BasePath:        cfg.BasePath,
		HubHistory:      cfg.HubHistory,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig, term appconfig.TerminalConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
		Theme:       term.Theme,
		Style:       term.Style,
		MaxBlocks:   term.MaxBlocks,
		IdleTimeout: time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
		Banner:      cfg.Banner,
	}
}

// traceTap logs each event without touching its payload.
func traceTap(logger pslog.Logger) qult.TapFunc {
	return func(id schema.SessionID, surface string, event schema.Event) {
		logger.Debug("session event", "session", id, "surface", surface, "type", event.Type, "seq", event.Seq)
	}
}
