package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/qult"
	"pkt.systems/qult/internal/appconfig"
	"pkt.systems/qult/internal/content"
	"pkt.systems/qult/internal/termui"
	"pkt.systems/qult/schema"
)

const resizePollInterval = 250 * time.Millisecond

func newShellCmd() *cobra.Command {
	var cfgPath string
	var plain bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run a shell session in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			in, out := os.Stdin, os.Stdout
			if !term.IsTerminal(int(in.Fd())) || !term.IsTerminal(int(out.Fd())) {
				return errors.New("qult shell needs an interactive terminal")
			}
			// The terminal belongs to the UI; logs only go to the configured file.
			ctx, closeLog := withLogFile(cmd.Context(), cfg.Logging, io.Discard)
			defer closeLog()
			return runLocalShell(ctx, cfg, in, out, plain)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&plain, "plain", false, "render without colour or styling")
	return cmd
}

func runLocalShell(ctx context.Context, cfg appconfig.Config, in, out *os.File, plain bool) error {
	log := pslog.Ctx(ctx)
	source, err := content.Open(toContentConfig(cfg.Content))
	if err != nil {
		return err
	}
	engine, err := qult.NewEngine(toEngineConfig(cfg), source)
	if err != nil {
		return err
	}
	defer engine.CloseAll()

	profile := termenv.NewOutput(out).EnvColorProfile()
	ui, err := termui.New(out, termui.Config{
		Theme:     cfg.Terminal.Theme,
		Style:     cfg.Terminal.Style,
		Plain:     plain,
		Profile:   profile,
		MaxBlocks: cfg.Terminal.MaxBlocks,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	session, err := engine.Open(ctx, schema.SessionID(uuid.NewString()), "tty", ui.Emit)
	if err != nil {
		return err
	}
	defer session.Close()
	go func() {
		select {
		case <-session.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, state) }()

	keys := make(chan schema.Key, 16)
	go termui.ReadKeys(in, keys)
	resize := make(chan termui.Size, 1)
	size := terminalSize(int(out.Fd()))
	go pollSize(ctx, int(out.Fd()), size, resize)

	log.Info("local shell start", "session", session.ID(), "width", size.Width, "height", size.Height)
	return ui.Run(ctx, session, keys, resize, size)
}

func terminalSize(fd int) termui.Size {
	width, height, err := term.GetSize(fd)
	if err != nil {
		return termui.Size{}
	}
	return termui.Size{Width: width, Height: height}
}

// pollSize reports terminal size changes.
func pollSize(ctx context.Context, fd int, last termui.Size, out chan<- termui.Size) {
	defer close(out)
	ticker := time.NewTicker(resizePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			size := terminalSize(fd)
			if size == last || size.Width == 0 {
				continue
			}
			last = size
			select {
			case out <- size:
			case <-ctx.Done():
				return
			}
		}
	}
}
