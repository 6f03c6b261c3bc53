package api

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/alauto/internal/automation"
)

// dialWS connects to the test server and waits for the hub to register it.
func dialWS(t *testing.T, s *Server, query string) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return ev
}

func TestWebSocket_SelectedChannelOnly(t *testing.T) {
	s := testServer(t, Deps{})
	conn := dialWS(t, s, "?channels=task.run")

	s.hub.Broadcast(automation.ChannelStats, map[string]int{"combat_done": 1})
	s.hub.Broadcast(automation.ChannelTaskRun, map[string]string{"task": "combat"})

	ev := readEvent(t, conn)
	if ev.Channel != automation.ChannelTaskRun {
		t.Errorf("event = %+v, want task.run", ev)
	}
}

func TestWebSocket_AllChannelsByDefault(t *testing.T) {
	s := testServer(t, Deps{})
	conn := dialWS(t, s, "")

	s.hub.Broadcast(automation.ChannelStats, map[string]int{"combat_done": 3})
	ev := readEvent(t, conn)
	if ev.Channel != automation.ChannelStats || ev.Timestamp == "" {
		t.Fatalf("event = %+v", ev)
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil || !strings.Contains(string(payload), `"combat_done":3`) {
		t.Errorf("payload = %s", payload)
	}

	// Client messages are ignored; the stream keeps flowing.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	s.hub.Broadcast(automation.ChannelTaskRun, map[string]string{"task": "missions"})
	if ev := readEvent(t, conn); ev.Channel != automation.ChannelTaskRun {
		t.Errorf("event = %+v, want task.run", ev)
	}
}

func TestWebSocket_UnknownChannelRejected(t *testing.T) {
	s := testServer(t, Deps{})
	rec := get(t, s, "/api/v1/ws?channels=task.run,devices")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if s.hub.ClientCount() != 0 {
		t.Error("rejected client registered")
	}
}

func TestParseChannels(t *testing.T) {
	tests := []struct {
		raw     string
		want    []string
		wantErr bool
	}{
		{"", []string{"stats", "task.run"}, false},
		{"stats", []string{"stats"}, false},
		{" task.run , stats ,", []string{"stats", "task.run"}, false},
		{"metrics", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseChannels(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseChannels(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			keys := slices.Sorted(maps.Keys(got))
			if !slices.Equal(keys, tt.want) {
				t.Errorf("parseChannels(%q) = %v, want %v", tt.raw, keys, tt.want)
			}
		})
	}
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := NewHub(testLogger())
	client := newWSClient(hub, nil, map[string]struct{}{automation.ChannelStats: {}})
	hub.Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel still open")
	}

	// Unregister and Broadcast after shutdown must not panic.
	hub.Unregister(client)
	hub.Broadcast(automation.ChannelStats, nil)
}

func TestHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewHub(testLogger())
	client := newWSClient(hub, nil, map[string]struct{}{automation.ChannelTaskRun: {}})
	hub.Register(client)

	for range wsSendBufferSize + 10 {
		hub.Broadcast(automation.ChannelTaskRun, "run")
	}
	if got := len(client.send); got != wsSendBufferSize {
		t.Errorf("buffered = %d, want %d", got, wsSendBufferSize)
	}
}
