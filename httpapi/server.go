package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/qult/core"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

// SessionOpener starts a shell session whose events go to emit.
type SessionOpener interface {
	Open(ctx context.Context, id schema.SessionID, surface string, emit core.EmitFunc) (*core.Session, error)
}

// Server serves the web UI and its API.
type Server struct {
	cfg      Config
	opener   SessionOpener
	sessions *sessionStore
	hub      *Hub
	mount    mount
	upgrader websocket.Upgrader
}

const maxKeyBatch = 256

// NewServer constructs an HTTP server. A nil hub gets a private one.
func NewServer(cfg Config, opener SessionOpener, hub *Hub) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultSessionTTL * time.Hour
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		cfg.SessionCookie = defaultSessionCookie
	}
	if hub == nil {
		hub = NewHub(cfg.HubHistory)
	}
	s := &Server{
		cfg:      cfg,
		opener:   opener,
		sessions: newSessionStore(ttl),
		hub:      hub,
		mount:    newMount(cfg.BaseURL, cfg.BasePath),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	s.sessions.onClose = hub.Forget
	return s
}

// SetBaseContext sets the parent context for session lifetimes.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.sessions.setBaseContext(ctx)
}

// Close ends every web session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

// Hub returns the event hub backing the streams.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", assetHandler())
	mux.HandleFunc("/healthz", s.handleHealth)

	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/ws", s.requireSession(s.handleWebSocket))
	mux.HandleFunc("/api/stream", s.requireSession(s.handleStream))
	mux.HandleFunc("/api/keys", s.requireSession(s.handleKeys))

	return s.mount.wrap(withRequestLogging(mux, s.lookupSession))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, modTime, err := indexPage()
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "index.html", modTime, bytes.NewReader(s.mount.rewriteIndex(data)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.len()})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodDelete:
		s.requireSession(s.handleDeleteSession)(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context()).With("remote", clientIP(r))
	if s.opener == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sessions unavailable"))
		return
	}
	if n := s.sessions.sweep(); n > 0 {
		log.Debug("http sessions swept", "expired", n)
	}
	id := schema.SessionID(uuid.NewString())
	base := s.sessions.baseContext()
	ctx := logx.ContextWithSurfaceLogger(base, logx.Ctx(base).With("remote", clientIP(r)), "web")
	shell, err := s.opener.Open(ctx, id, "web", s.hub.Emitter(id))
	if err != nil {
		log.Warn("http session open failed", "err", err)
		s.hub.Forget(id)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entry := s.sessions.add(shell)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    string(entry.id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  entry.expiresAt,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"session": entry.id,
		"expires": entry.expiresAt.Format(time.RFC3339),
	})
	log.Info("http session opened", "session", entry.id)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, sess session) {
	s.sessions.delete(sess.id)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	logx.Ctx(r.Context()).Info("http session closed")
}

// keyBatch is the body of POST /api/keys.
type keyBatch struct {
	Keys []schema.Key `json:"keys"`
	Page *pageClick   `json:"page,omitempty"`
}

type pageClick struct {
	Block     schema.BlockID `json:"block"`
	Direction int            `json:"direction"`
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request, sess session) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload keyBatch
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http keys decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(payload.Keys) > maxKeyBatch {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: more than %d keys", schema.ErrInvalidRequest, maxKeyBatch))
		return
	}
	for _, key := range payload.Keys {
		if err := key.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	accepted := 0
	for _, key := range payload.Keys {
		if err := sess.shell.HandleKey(key); err != nil {
			s.writeShellError(w, log, err)
			return
		}
		accepted++
	}
	if payload.Page != nil {
		if err := sess.shell.ClickPage(payload.Page.Block, payload.Page.Direction); err != nil {
			s.writeShellError(w, log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": accepted})
	log.Debug("http keys ok", "accepted", accepted)
}

func (s *Server) writeShellError(w http.ResponseWriter, log pslog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schema.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, schema.ErrInvalidKey), errors.Is(err, schema.ErrInvalidRequest):
		status = http.StatusBadRequest
	}
	log.Warn("http shell input failed", "err", err)
	writeError(w, status, err)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sess session) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(r.URL.Query().Get("last_event_id"))
	}

	var (
		ch      <-chan schema.Event
		unsub   func()
		initial []schema.Event
		mode    = "snapshot"
	)
	if lastID > 0 {
		c, u, seq, history := s.hub.Subscribe(sess.id)
		if replay, ok := replayAfter(history, seq, lastID); ok {
			ch, unsub, initial, mode = c, u, replay, "replay"
		} else {
			u()
		}
	}
	if ch == nil {
		err := sess.shell.Attach(r.Context(), func(snapshot []schema.Event) {
			var seq uint64
			ch, unsub, seq, _ = s.hub.Subscribe(sess.id)
			initial = markSnapshot(snapshot, seq)
		})
		if err != nil {
			s.writeShellError(w, log, err)
			return
		}
	}
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	for _, event := range initial {
		_ = writeSSEvent(w, event)
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "mode", mode, "events", len(initial))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case <-sess.shell.Done():
			log.Info("http stream ended", "reason", "session closed")
			return
		case event, ok := <-ch:
			if !ok {
				log.Info("http stream ended", "reason", "subscriber dropped")
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

// markSnapshot stamps the last snapshot event with seq so a reconnecting
// stream resumes after it.
func markSnapshot(events []schema.Event, seq uint64) []schema.Event {
	out := make([]schema.Event, len(events))
	for i, event := range events {
		event.Seq = 0
		out[i] = event
	}
	if len(out) > 0 && seq > 0 {
		out[len(out)-1].Seq = seq
	}
	return out
}

func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logx.Ctx(r.Context()).With("remote", clientIP(r))
		id := s.sessionID(r)
		if id == "" {
			log.Warn("http session missing")
			writeError(w, http.StatusUnauthorized, errors.New("missing session"))
			return
		}
		entry, ok := s.sessions.get(id)
		if !ok {
			log.Warn("http session invalid")
			writeError(w, http.StatusNotFound, schema.ErrSessionNotFound)
			return
		}
		log = log.With("session", entry.id)
		ctx := logx.ContextWithSessionLogger(r.Context(), log, entry.id)
		next(w, r.WithContext(ctx), entry)
	}
}

// sessionID reads the session from the query string, falling back to the cookie.
func (s *Server) sessionID(r *http.Request) schema.SessionID {
	if id := strings.TrimSpace(r.URL.Query().Get("session")); id != "" {
		return schema.SessionID(id)
	}
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return schema.SessionID(strings.TrimSpace(cookie.Value))
}

func (s *Server) lookupSession(r *http.Request) schema.SessionID {
	if s == nil || r == nil {
		return ""
	}
	id := s.sessionID(r)
	if id == "" {
		return ""
	}
	if _, ok := s.sessions.get(id); !ok {
		return ""
	}
	return id
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event schema.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
