// Package relay broadcasts events as JSON to WebSocket clients.
package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

// Defaults.
const (
	DefaultSendBuffer = 64
	DefaultMaxClients = 32
	writeTimeout      = 10 * time.Second
)

// ErrTooManyClients is returned when the client limit is reached.
var ErrTooManyClients = errors.New("too many relay clients")

// Config configures a Hub.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Requests
	// without an Origin header (non-browser clients) are always allowed;
	// an empty list allows only same-host origins.
	AllowedOrigins []string
	// SendBuffer is the per-client queue length. A client whose queue is
	// full is disconnected.
	SendBuffer int
	// MaxClients caps concurrent connections.
	MaxClients int
	Logger     *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump(h *Hub) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Hub fans events out to connected clients.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NewHub creates a hub. Zero config values use the defaults.
func NewHub(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	log := cfg.Logger
	if log == nil {
		log = discardLogger
	}
	h := &Hub{
		cfg:     cfg,
		log:     log,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && len(h.cfg.AllowedOrigins) == 0 && u.Host == r.Host
}

// ServeHTTP upgrades the request and registers the connection. Incoming
// messages are read and discarded so close frames are noticed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("relay upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c, err := h.add(conn)
	if err != nil {
		h.log.Warn("relay client rejected", "remote", r.RemoteAddr, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	h.log.Debug("relay client connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c)
			h.log.Debug("relay client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) add(conn *websocket.Conn) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, http.ErrServerClosed
	}
	if len(h.clients) >= h.cfg.MaxClients {
		return nil, ErrTooManyClients
	}
	c := &client{conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	h.clients[c] = struct{}{}
	go c.writePump(h)
	return c, nil
}

// remove unregisters c and ends its write pump. Safe to call repeatedly.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish encodes ev and queues it for every client. Clients that cannot
// keep up are disconnected.
func (h *Hub) Publish(ev event.Event) {
	data, err := json.Marshal(event.Wrap(ev))
	if err != nil {
		h.log.Warn("relay encode failed", "event_type", ev.EventType(), "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !h.trySend(c, data) {
			h.log.Warn("relay client too slow, disconnecting")
			h.remove(c)
		}
	}
}

// trySend queues data without blocking. It holds the read lock so a
// concurrent remove cannot close the channel mid-send.
func (h *Hub) trySend(c *client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
