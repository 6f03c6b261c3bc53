package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/alauto/internal/automation"
	"github.com/nerrad567/alauto/internal/infrastructure/logging"
)

const (
	// wsSendBufferSize is the per-client outbound event buffer.
	wsSendBufferSize = 64

	wsPingInterval   = 30 * time.Second
	wsPongWait       = 60 * time.Second
	wsMaxMessageSize = 512
)

// eventChannels are the streams a client may select with ?channels=.
var eventChannels = []string{automation.ChannelTaskRun, automation.ChannelStats}

// Event is one message on the stream.
type Event struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// Hub fans task-run and stats events out to WebSocket clients.
// It satisfies automation.WSHub.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected stream. Its channel set is fixed at connect
// time; anything the client sends is discarded.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsMaxMessageSize,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// Read-only event stream bound to localhost by default.
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("event stream client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that removes the client from the map closes its send
// channel, so shutdown and disconnect cannot double-close.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("event stream client disconnected", "clients", h.ClientCount())
}

// Broadcast sends an event to every client streaming channel. Slow clients
// miss events rather than stall the control loop.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(Event{
		Channel:   channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if _, ok := client.channels[channel]; !ok {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// parseChannels turns a comma-separated ?channels= value into a channel
// set. Empty selects every channel.
func parseChannels(raw string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, ch := range strings.Split(raw, ",") {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		if !slices.Contains(eventChannels, ch) {
			return nil, fmt.Errorf("unknown channel %q (known: %s)", ch, strings.Join(eventChannels, ", "))
		}
		set[ch] = struct{}{}
	}
	if len(set) == 0 {
		for _, ch := range eventChannels {
			set[ch] = struct{}{}
		}
	}
	return set, nil
}

func newWSClient(hub *Hub, conn *websocket.Conn, channels map[string]struct{}) *WSClient {
	return &WSClient{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: channels,
	}
}

// handleWebSocket upgrades the connection after validating ?channels=.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	channels, err := parseChannels(r.URL.Query().Get("channels"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, channels)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump keeps the read deadline alive on pongs and notices when the
// peer goes away.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
