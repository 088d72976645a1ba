package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/qult/schema"
)

type contextKey int

const (
	sessionKey contextKey = iota
	surfaceKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session id if present.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithSurface annotates the logger with the front end serving a session
// ("web", "ssh", "tty").
func WithSurface(ctx context.Context, surface string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if surface != "" {
		if current, ok := ctx.Value(surfaceKey).(string); ok && current == surface {
			return log
		}
		log = log.With("surface", surface)
	}
	return log
}

// WithIdentity annotates the logger with the shell identity when it differs from the default.
func WithIdentity(log pslog.Logger, identity string) pslog.Logger {
	if identity != "" && identity != schema.DefaultIdentity {
		log = log.With("identity", identity)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithSurface stores the surface marker on the context for log de-duplication.
func ContextWithSurface(ctx context.Context, surface string) context.Context {
	if ctx == nil || surface == "" {
		return ctx
	}
	return context.WithValue(ctx, surfaceKey, surface)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}

// ContextWithSurfaceLogger attaches the logger and surface marker to the context.
func ContextWithSurfaceLogger(ctx context.Context, log pslog.Logger, surface string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSurface(ctx, surface)
}

// CopyContextFields copies session/surface markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if session, ok := src.Value(sessionKey).(schema.SessionID); ok && session != "" {
		dst = ContextWithSession(dst, session)
	}
	if surface, ok := src.Value(surfaceKey).(string); ok && surface != "" {
		dst = ContextWithSurface(dst, surface)
	}
	return dst
}
