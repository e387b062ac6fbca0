package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/cameroncuttingedge/tic_tac_toe_online/gateway"
	"github.com/cameroncuttingedge/tic_tac_toe_online/utils"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Dispatcher runs client commands. *gateway.Gateway implements it.
type Dispatcher interface {
	Handle(connID string, req gateway.Request) (gateway.Ack, bool)
	Disconnect(connID string)
}

type Options struct {
	// AllowedOrigin is the browser origin allowed to connect; "" or "*" allows any.
	AllowedOrigin     string
	MaxMessageBytes   int64
	PongWait          time.Duration
	WriteWait         time.Duration
	CommandsPerSecond float64
	Burst             int
	SendBuffer        int
}

func DefaultOptions() Options {
	return Options{
		AllowedOrigin:     "*",
		MaxMessageBytes:   4096,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		CommandsPerSecond: 20,
		Burst:             40,
		SendBuffer:        64,
	}
}

// Hub tracks live connections and delivers room events to them.
type Hub struct {
	opts     Options
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

// Client is one live websocket connection.
type Client struct {
	ID string

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	limiter   *rate.Limiter
	closeOnce sync.Once
}

// frame is the envelope of every server-to-client message.
type frame struct {
	Event string `json:"event"`
	ID    *int64 `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

const ackEvent = "ack"

func NewHub(opts Options, logger zerolog.Logger) *Hub {
	h := &Hub{
		opts:    opts,
		logger:  logger,
		clients: make(map[string]*Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Handler upgrades the request and serves the connection until it closes.
func (h *Hub) Handler(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error().Err(err).Msg("WebSocket upgrade error")
			return
		}

		c := &Client{
			ID:      utils.NewConnectionID(),
			hub:     h,
			conn:    conn,
			send:    make(chan []byte, h.opts.SendBuffer),
			limiter: rate.NewLimiter(rate.Limit(h.opts.CommandsPerSecond), h.opts.Burst),
		}
		h.register(c)

		go c.writePump()
		c.readPump(d)
	}
}

// Publish implements events.Publisher. It never blocks; a client whose
// buffer is full is disconnected.
func (h *Hub) Publish(ev events.Event) {
	msg, err := json.Marshal(frame{Event: string(ev.Name), Data: ev.Data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.Name)).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range ev.Recipients {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		if !c.enqueue(msg) {
			h.logger.Warn().Str("conn", id).Str("code", ev.RoomCode).Msg("Send buffer full, dropping connection")
			go c.conn.Close()
		}
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every connection. Their read loops run the disconnect path.
func (h *Hub) Stop() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.logger.Info().Int("connections", len(h.clients)).Msg("WebSocket hub stopped")
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.logger.Info().Str("conn", c.ID).Int("connectionsCount", len(h.clients)).Msg("WebSocket connection registered")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.ID] != c {
		return
	}
	delete(h.clients, c.ID)
	c.closeOnce.Do(func() { close(c.send) })
	h.logger.Info().Str("conn", c.ID).Int("remainingConnections", len(h.clients)).Msg("WebSocket connection deregistered")
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.opts.AllowedOrigin == "" || h.opts.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == h.opts.AllowedOrigin
}

// enqueue must be called with the hub lock held or from the client's own
// read loop, so it never races with close(c.send).
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) readPump(d Dispatcher) {
	logger := c.hub.logger.With().Str("conn", c.ID).Logger()
	defer func() {
		c.hub.unregister(c)
		d.Disconnect(c.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait)); err != nil {
		logger.Error().Err(err).Msg("Failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handleFrame(d, data, logger)
	}
}

func (c *Client) handleFrame(d Dispatcher, data []byte, logger zerolog.Logger) {
	req, err := gateway.Decode(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected malformed frame")
		c.ack(nil, gateway.Fail(gateway.CodeBadRequest), logger)
		return
	}
	if !c.limiter.Allow() {
		logger.Warn().Str("event", string(req.Event)).Msg("Command rate limit exceeded")
		if req.Event != gateway.Leave {
			c.ack(req.ID, gateway.Fail(gateway.CodeRateLimited), logger)
		}
		return
	}

	ack, ok := d.Handle(c.ID, req)
	if ok {
		c.ack(req.ID, ack, logger)
	}
}

func (c *Client) ack(id *int64, ack gateway.Ack, logger zerolog.Logger) {
	msg, err := json.Marshal(frame{Event: ackEvent, ID: id, Data: ack})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal ack")
		return
	}
	if !c.enqueue(msg) {
		logger.Warn().Msg("Send buffer full, dropping ack")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Error().Err(err).Str("conn", c.ID).Msg("Failed to write message")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
