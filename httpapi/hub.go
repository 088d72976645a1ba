package httpapi

import (
	"context"
	"sync"

	"pkt.systems/qult/internal/logx"
	"pkt.systems/qult/schema"
)

const subscriberBuffer = 256

// Hub sequences and broadcasts events per session.
type Hub struct {
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		sessions:    make(map[schema.SessionID]*sessionHub),
		historySize: historySize,
	}
}

// Emitter returns an emit callback publishing into the session's stream.
func (h *Hub) Emitter(id schema.SessionID) func(schema.Event) {
	return func(event schema.Event) { h.Publish(id, event) }
}

// Subscribe registers a subscriber for a session. It returns the channel, an
// unsubscribe func, the last assigned seq and a copy of the retained history.
// The channel is closed when the subscriber falls behind or the session is
// forgotten.
func (h *Hub) Subscribe(id schema.SessionID) (<-chan schema.Event, func(), uint64, []schema.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateLocked(id)
	ch := make(chan schema.Event, subscriberBuffer)
	sh.subs[ch] = struct{}{}
	history := append([]schema.Event(nil), sh.history...)
	seq := sh.seq
	log := logx.WithSession(context.Background(), id)
	log.Debug("hub subscribe", "subs", len(sh.subs), "history", len(history))
	unsub := func() {
		h.mu.Lock()
		if _, ok := sh.subs[ch]; ok {
			delete(sh.subs, ch)
			close(ch)
		}
		remaining := len(sh.subs)
		h.mu.Unlock()
		log.Debug("hub unsubscribe", "subs", remaining)
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq. ok is false when the retained
// history no longer reaches back to after.
func (h *Hub) Replay(id schema.SessionID, after uint64) ([]schema.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[id]
	if sh == nil {
		return nil, false
	}
	return replayAfter(sh.history, sh.seq, after)
}

func replayAfter(history []schema.Event, seq, after uint64) ([]schema.Event, bool) {
	if after > seq {
		return nil, false
	}
	if after == seq {
		return nil, true
	}
	if len(history) == 0 || history[0].Seq > after+1 {
		return nil, false
	}
	events := make([]schema.Event, 0, len(history))
	for _, event := range history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	return events, true
}

// Publish assigns the next seq to event and hands it to every subscriber.
// It never blocks: a subscriber whose buffer is full is dropped so it can
// resync from a snapshot.
func (h *Hub) Publish(id schema.SessionID, event schema.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateLocked(id)
	sh.seq++
	event.Seq = sh.seq
	sh.history = append(sh.history, event)
	if len(sh.history) > h.historySize {
		sh.history = sh.history[len(sh.history)-h.historySize:]
	}
	dropped := 0
	for sub := range sh.subs {
		select {
		case sub <- event:
		default:
			delete(sh.subs, sub)
			close(sub)
			dropped++
		}
	}
	if dropped > 0 {
		logx.WithSession(context.Background(), id).Warn("hub subscriber dropped", "type", event.Type, "dropped", dropped)
	}
}

// Forget drops a session's history and closes its subscribers.
func (h *Hub) Forget(id schema.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[id]
	if sh == nil {
		return
	}
	for sub := range sh.subs {
		delete(sh.subs, sub)
		close(sub)
	}
	delete(h.sessions, id)
}

func (h *Hub) getOrCreateLocked(id schema.SessionID) *sessionHub {
	sh := h.sessions[id]
	if sh == nil {
		sh = &sessionHub{
			subs: make(map[chan schema.Event]struct{}),
		}
		h.sessions[id] = sh
	}
	return sh
}

type sessionHub struct {
	seq     uint64
	history []schema.Event
	subs    map[chan schema.Event]struct{}
}
