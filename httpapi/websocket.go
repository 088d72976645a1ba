package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 * 1024
)

// safeConn serialises writes to a websocket connection.
type safeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func newSafeConn(conn *websocket.Conn) *safeConn {
	return &safeConn{conn: conn}
}

func (sc *safeConn) WriteJSON(v any) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if sc.closed {
		return nil
	}
	_ = sc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return sc.conn.WriteJSON(v)
}

func (sc *safeConn) Ping() error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if sc.closed {
		return nil
	}
	return sc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (sc *safeConn) CloseWith(code int, text string) {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if sc.closed {
		return
	}
	_ = sc.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
}

func (sc *safeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

// clientMessage is a message sent by the browser.
type clientMessage struct {
	Type      string         `json:"type"`
	Key       *schema.Key    `json:"key,omitempty"`
	Block     schema.BlockID `json:"block,omitempty"`
	Direction int            `json:"direction,omitempty"`
}

// controlMessage is a non-event message sent to the browser.
type controlMessage struct {
	Type      string    `json:"type"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, sess session) {
	log := logx.Ctx(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	sc := newSafeConn(conn)
	defer sc.Close()

	var (
		initial []schema.Event
		events  <-chan schema.Event
		unsub   func()
	)
	if err := sess.shell.Attach(r.Context(), func(snapshot []schema.Event) {
		initial = snapshot
		events, unsub, _, _ = s.hub.Subscribe(sess.id)
	}); err != nil {
		log.Warn("websocket attach failed", "err", err)
		sc.CloseWith(websocket.CloseGoingAway, "session closed")
		return
	}
	defer unsub()

	for _, event := range initial {
		if err := sc.WriteJSON(event); err != nil {
			log.Warn("websocket write failed", "err", err)
			return
		}
	}
	log.Info("websocket opened", "snapshot", len(initial))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readWebSocket(ctx, log, sc, sess)
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			log.Info("websocket closed")
			return
		case <-sess.shell.Done():
			endClosed(log, sc)
			return
		case event, ok := <-events:
			if !ok {
				select {
				case <-sess.shell.Done():
					endClosed(log, sc)
				default:
					// The hub dropped us; the client reconnects and resyncs from a snapshot.
					sc.CloseWith(websocket.CloseTryAgainLater, "resync")
					log.Warn("websocket ended", "reason", "subscriber dropped")
				}
				return
			}
			if err := sc.WriteJSON(event); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := sc.Ping(); err != nil {
				log.Debug("websocket ping failed", "err", err)
				return
			}
		}
	}
}

func endClosed(log pslog.Logger, sc *safeConn) {
	_ = sc.WriteJSON(controlMessage{Type: "closed", Timestamp: time.Now()})
	sc.CloseWith(websocket.CloseNormalClosure, "session closed")
	log.Info("websocket ended", "reason", "session closed")
}

func (s *Server) readWebSocket(ctx context.Context, log pslog.Logger, sc *safeConn, sess session) {
	conn := sc.conn
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if ctx.Err() != nil {
			return
		}
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("websocket read failed", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if !s.handleClientMessage(log, sc, sess, msg) {
			return
		}
	}
}

// handleClientMessage applies one browser message. It reports false when the
// connection should close.
func (s *Server) handleClientMessage(log pslog.Logger, sc *safeConn, sess session, msg clientMessage) bool {
	var err error
	switch msg.Type {
	case "key":
		if msg.Key == nil {
			err = schema.ErrInvalidKey
			break
		}
		err = sess.shell.HandleKey(*msg.Key)
	case "page":
		err = sess.shell.ClickPage(msg.Block, msg.Direction)
	case "ping":
		return sc.WriteJSON(controlMessage{Type: "pong", Timestamp: time.Now()}) == nil
	default:
		err = errors.New("unknown message type")
	}
	if err == nil {
		return true
	}
	if errors.Is(err, schema.ErrSessionClosed) {
		return false
	}
	log.Debug("websocket message rejected", "type", msg.Type, "err", err)
	return sc.WriteJSON(controlMessage{Type: "error", Error: err.Error(), Timestamp: time.Now()}) == nil
}
