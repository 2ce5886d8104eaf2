package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrdg/adsr/audio"
	"github.com/mrdg/adsr/envelope"
)

func startHub(t *testing.T, interval time.Duration) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	hub.interval = interval
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubCoalescesValues(t *testing.T) {
	// values only go out ahead of a phase change
	hub, srv := startHub(t, time.Hour)
	conn := dial(t, hub, srv)

	hub.Publish(Event{Voice: "v1", Kind: "value", Phase: "attack", Value: 0.1})
	hub.Publish(Event{Voice: "v1", Kind: "value", Phase: "attack", Value: 0.2})
	hub.Publish(Event{Voice: "v1", Kind: "phase", Phase: "decay", Value: 1})

	assert.Equal(t, Event{Voice: "v1", Kind: "value", Phase: "attack", Value: 0.2}, readEvent(t, conn))
	assert.Equal(t, Event{Voice: "v1", Kind: "phase", Phase: "decay", Value: 1}, readEvent(t, conn))

	hub.Publish(Event{Voice: "v2", Kind: "value", Phase: "attack", Value: 0.5})
	hub.Publish(Event{Voice: "v1", Kind: "value", Phase: "decay", Value: 0.9})
	hub.Publish(Event{Voice: "v1", Kind: "phase", Phase: "sustain", Value: 0.9})
	assert.Equal(t, Event{Voice: "v1", Kind: "value", Phase: "decay", Value: 0.9}, readEvent(t, conn))
	assert.Equal(t, Event{Voice: "v1", Kind: "phase", Phase: "sustain", Value: 0.9}, readEvent(t, conn))
}

func TestHubWatch(t *testing.T) {
	hub, srv := startHub(t, flushInterval)
	conn := dial(t, hub, srv)

	v := audio.NewVoice("v1", envelope.DefaultConfig(), audio.NewTimings(), 1000)
	hub.Watch(v)
	instrument := audio.NewInstrument(audio.NewProps(), v)
	v.PlayNote(0, 0, 0)
	instrument.Process([][]float32{make([]float32, 16)})

	ev := readEvent(t, conn)
	assert.Equal(t, "v1", ev.Voice)
	assert.Equal(t, "phase", ev.Kind)
	assert.Equal(t, "attack", ev.Phase)

	ev = readEvent(t, conn)
	assert.Equal(t, "value", ev.Kind)
	assert.InDelta(t, 0.16, ev.Value, 1e-9)
}

func TestHealth(t *testing.T) {
	hub, srv := startHub(t, flushInterval)
	_ = dial(t, hub, srv)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1.0, body["clients"])
	assert.Equal(t, 0.0, body["dropped"])
}
