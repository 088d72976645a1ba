package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/muesli/termenv"

	"pkt.systems/pslog"
	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/internal/termui"
	"pkt.systems/qult/schema"
)

// SessionOpener starts a shell session whose events go to emit.
type SessionOpener interface {
	Open(ctx context.Context, id schema.SessionID, surface string, emit core.EmitFunc) (*core.Session, error)
}

// Server exposes the shell over SSH. Logins are anonymous; every PTY session
// gets its own shell session.
type Server struct {
	Addr        string
	HostKeyPath string
	Listener    net.Listener
	Sessions    SessionOpener
	Config      Config
	logger      pslog.Logger
}

// NewServer builds a server from cfg.
func NewServer(cfg Config, sessions SessionOpener) *Server {
	return &Server{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
		Sessions:    sessions,
		Config:      cfg,
	}
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Sessions == nil {
		return errors.New("session opener is required for SSH")
	}
	if _, err := termui.NewTheme(s.Config.Theme, termenv.Ascii); err != nil {
		return err
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:        s.Addr,
		Handler:     func(sess gliderssh.Session) { s.handleSession(ctx, sess) },
		IdleTimeout: s.Config.IdleTimeout,
		Banner:      s.Config.Banner,
	}
	server.AddHostKey(signer)
	s.logger.Info("ssh server listening", "addr", s.listenAddr(), "fingerprint", Fingerprint(signer))

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func remoteAddr(sess gliderssh.Session) string {
	if sess == nil || sess.RemoteAddr() == nil {
		return ""
	}
	return sess.RemoteAddr().String()
}

func (s *Server) handleSession(parent context.Context, sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	log = log.With("remote", remoteAddr(sess), "user", sess.User())
	if id := sess.Context().SessionID(); id != "" {
		log = log.With("ssh_session", id)
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	ctx, cancel := context.WithCancel(logx.ContextWithSurfaceLogger(sess.Context(), log, "ssh"))
	defer cancel()
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	term, err := termui.New(sess, termui.Config{
		Theme:     s.Config.Theme,
		Style:     s.Config.Style,
		Profile:   colorProfile(pty.Term, sess.Environ()),
		MaxBlocks: s.Config.MaxBlocks,
	})
	if err != nil {
		log.Warn("ssh terminal setup failed", "err", err)
		_ = sess.Exit(1)
		return
	}
	shell, err := s.Sessions.Open(ctx, schema.SessionID(uuid.NewString()), "ssh", term.Emit)
	if err != nil {
		log.Warn("ssh session open failed", "err", err)
		_, _ = io.WriteString(sess, "session unavailable\n")
		_ = sess.Exit(1)
		return
	}
	defer shell.Close()
	log = log.With("session", shell.ID())
	log.Info("ssh session opened", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)

	go func() {
		select {
		case <-shell.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	keys := make(chan schema.Key, 16)
	go termui.ReadKeys(sess, keys)
	resize := make(chan termui.Size, 1)
	go forwardWindows(ctx, winCh, resize)

	size := termui.Size{Width: pty.Window.Width, Height: pty.Window.Height}
	if err := term.Run(ctx, shell, keys, resize, size); err != nil {
		log.Warn("ssh terminal failed", "err", err)
	}
	_ = sess.Exit(0)
	log.Info("ssh session closed")
}

func forwardWindows(ctx context.Context, in <-chan gliderssh.Window, out chan<- termui.Size) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case win, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- termui.Size{Width: win.Width, Height: win.Height}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// colorProfile picks the richest profile the client advertises.
func colorProfile(term string, environ []string) termenv.Profile {
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, "COLORTERM="); ok && (v == "truecolor" || v == "24bit") {
			return termenv.TrueColor
		}
	}
	term = strings.ToLower(term)
	switch {
	case term == "" || term == "dumb":
		return termenv.Ascii
	case strings.Contains(term, "256color"):
		return termenv.ANSI256
	default:
		return termenv.ANSI
	}
}
