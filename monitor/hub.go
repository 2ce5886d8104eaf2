// Package monitor streams envelope activity to websocket clients.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/envelope"
)

const flushInterval = time.Second / 30

// Event is a single envelope update. Phase events carry the phase the
// envelope entered; value events carry the phase the value belongs to.
type Event struct {
	Voice string  `json:"voice"`
	Kind  string  `json:"kind"` // "phase" | "value"
	Phase string  `json:"phase"`
	Value float64 `json:"value"`
}

// Hub fans envelope events out to websocket clients. Publish never
// blocks, so it is safe to call from the audio callback. Value events are
// coalesced per voice and flushed at a fixed rate; phase events are sent
// as they arrive.
type Hub struct {
	interval time.Duration
	events   chan Event
	dropped  atomic.Uint64
	started  time.Time

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	pending map[string]Event
}

func NewHub() *Hub {
	return &Hub{
		interval: flushInterval,
		events:   make(chan Event, 1024),
		started:  time.Now(),
		clients:  map[*websocket.Conn]bool{},
		pending:  map[string]Event{},
	}
}

func (h *Hub) Publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Watch publishes the phase and value changes of v. It has to be called
// before v is processed.
func (h *Hub) Watch(v *audio.Voice) {
	name := v.Name()
	v.OnPhaseChange(func(p envelope.Phase, e *envelope.Envelope) {
		h.Publish(Event{Voice: name, Kind: "phase", Phase: p.String(), Value: e.Value()})
	})
	v.OnValueChange(func(value float64, p envelope.Phase) {
		h.Publish(Event{Voice: name, Kind: "value", Phase: p.String(), Value: value})
	})
}

// Run dispatches published events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.events:
			if ev.Kind == "value" {
				h.mu.Lock()
				h.pending[ev.Voice] = ev
				h.mu.Unlock()
				continue
			}
			// flush the value that led up to the transition first
			h.flush(ev.Voice)
			h.broadcast(ev)
		case <-ticker.C:
			h.flush("")
		}
	}
}

// flush sends pending value events, for one voice or all of them when
// voice is empty.
func (h *Hub) flush(voice string) {
	h.mu.Lock()
	var out []Event
	for name, ev := range h.pending {
		if voice == "" || voice == name {
			out = append(out, ev)
			delete(h.pending, name)
		}
	}
	h.mu.Unlock()
	for _, ev := range out {
		h.broadcast(ev)
	}
}

func (h *Hub) broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("marshal event")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("remote", c.RemoteAddr().String()).Msg("dropping monitor client")
			delete(h.clients, c)
			c.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.Close()
		delete(h.clients, c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("monitor client connected")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(h.started).Seconds(),
		"clients":  h.Clients(),
		"dropped":  h.dropped.Load(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler serves /ws and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}
