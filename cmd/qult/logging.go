package main

import (
	"context"
	"io"
	"os"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/qult/internal/appconfig"
	"pkt.systems/qult/internal/logx"
)

// withLogFile rebuilds the context logger so it writes to console and to the
// rotating log file from cfg. Pass io.Discard as console when the terminal
// belongs to the UI.
func withLogFile(ctx context.Context, cfg appconfig.LoggingConfig, console io.Writer) (context.Context, func()) {
	path := strings.TrimSpace(cfg.File)
	if path == "" {
		if console == os.Stderr {
			return ctx, func() {}
		}
		return pslog.ContextWithLogger(ctx, newLogger(console)), func() {}
	}
	file := logx.FileWriter(logx.FileConfig{
		Path:       path,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	logger := newLogger(logx.Tee(console, file))
	logger.Debug("log file attached", "path", path)
	return pslog.ContextWithLogger(ctx, logger), func() { _ = file.Close() }
}

func newLogger(w io.Writer) pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvWriter(w),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
}
