// Package ws maintains the WebSocket connection to the matchmaker feed:
// JSON text frames in both directions, application-level heartbeats, and
// reconnection with exponential backoff.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ConnectionState is the client's connection lifecycle state.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// MessageHandler receives every inbound text frame. The slice is only
// valid for the duration of the call.
type MessageHandler func(data []byte) error

// ReconnectedHandler runs after a dropped connection is re-established.
type ReconnectedHandler func()

// Client is the feed connection.
type Client interface {
	// Connect establishes the connection.
	Connect(ctx context.Context) error
	// Close closes the connection and stops all background work.
	Close() error
	// Send writes one text frame.
	Send(data []byte) error
	// SetMessageHandler sets the inbound frame callback.
	SetMessageHandler(handler MessageHandler)
	// SetReconnectedHandler sets the reconnection callback.
	SetReconnectedHandler(handler ReconnectedHandler)
	// IsConnected reports whether the connection is up.
	IsConnected() bool
	// State returns the current connection state.
	State() ConnectionState
	// TriggerReconnect tears down the connection and reconnects.
	TriggerReconnect()
}

// Config is the connection configuration.
type Config struct {
	ServerURL            string        // matchmaker feed address
	APIToken             string        // bearer token for authentication
	ReconnectInterval    time.Duration // base reconnection interval
	MaxReconnectAttempts int           // 0 = unlimited
	HeartbeatInterval    time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() *Config {
	return &Config{
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 0,
		HeartbeatInterval:    30 * time.Second,
		ReadTimeout:          90 * time.Second,
		WriteTimeout:         10 * time.Second,
	}
}

type client struct {
	config *Config
	conn   *websocket.Conn
	state  atomic.Int32
	logger *slog.Logger

	handler            MessageHandler
	reconnectedHandler ReconnectedHandler
	mu                 sync.RWMutex
	writeMu            sync.Mutex

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closeCh    chan struct{}
	reconnectC chan struct{}

	reconnector *Reconnector
	heartbeat   *Heartbeat
	isReconnect bool

	heartbeatCtx    context.Context
	heartbeatCancel context.CancelFunc
}

// NewClient creates a feed client.
func NewClient(config *Config, logger *slog.Logger) Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &client{
		config:     config,
		logger:     logger.With("component", "FeedClient"),
		closeCh:    make(chan struct{}),
		reconnectC: make(chan struct{}, 1),
	}
	c.state.Store(int32(StateDisconnected))

	c.reconnector = NewReconnector(&ReconnectConfig{
		InitialInterval: config.ReconnectInterval,
		MaxInterval:     config.ReconnectInterval * 32,
		MaxAttempts:     config.MaxReconnectAttempts,
	})

	return c
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.State() != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("client already connected or connecting")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.closeCh = make(chan struct{})
	c.mu.Unlock()

	return c.doConnect()
}

func (c *client) doConnect() error {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := http.Header{}
	if c.config.APIToken != "" {
		header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	conn, resp, err := dialer.DialContext(c.ctx, c.config.ServerURL, header)
	if err != nil {
		c.setState(StateDisconnected)
		if resp != nil {
			c.logger.Error("WebSocket dial failed",
				"status", resp.StatusCode,
				"url", c.config.ServerURL,
				"error", err)
		} else {
			c.logger.Error("WebSocket dial failed",
				"url", c.config.ServerURL,
				"error", err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected)
	c.logger.Info("WebSocket connected", "url", c.config.ServerURL)

	c.stopHeartbeat()
	c.heartbeat = NewHeartbeat(c, &HeartbeatConfig{
		Interval:    c.config.HeartbeatInterval,
		ReadTimeout: c.config.ReadTimeout,
	}, c.logger)
	c.heartbeatCtx, c.heartbeatCancel = context.WithCancel(c.ctx)

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.heartbeat.Start(c.heartbeatCtx, &c.wg)

	c.reconnector.Reset()

	if c.isReconnect {
		c.mu.RLock()
		handler := c.reconnectedHandler
		c.mu.RUnlock()

		if handler != nil {
			c.logger.Info("WebSocket reconnected, invoking reconnected handler")
			go handler()
		}
		c.isReconnect = false
	}

	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	if c.State() == StateDisconnected {
		c.mu.Unlock()
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.stopHeartbeat()

	select {
	case <-c.closeCh:
	default:
		close(c.closeCh)
	}
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
		c.conn = nil
	}

	c.setState(StateDisconnected)
	c.logger.Info("WebSocket connection closed")

	return nil
}

func (c *client) Send(data []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("websocket not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("websocket connection is nil")
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		c.TriggerReconnect()
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.TriggerReconnect()
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (c *client) SetMessageHandler(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

func (c *client) SetReconnectedHandler(handler ReconnectedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectedHandler = handler
}

func (c *client) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *client) setState(state ConnectionState) {
	old := ConnectionState(c.state.Swap(int32(state)))
	if old != state {
		c.logger.Info("WebSocket state changed", "from", old.String(), "to", state.String())
	}
}

func (c *client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.closeCh:
			return
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			c.logger.Error("Failed to set read deadline", "error", err)
			c.TriggerReconnect()
			return
		}

		wsMsgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("WebSocket closed by server")
			} else {
				c.logger.Error("WebSocket read error", "error", err)
			}
			c.TriggerReconnect()
			return
		}

		// The feed speaks JSON text frames only.
		if wsMsgType != websocket.TextMessage {
			c.logger.Warn("Received non-text message", "type", wsMsgType)
			continue
		}

		if c.heartbeat != nil {
			c.heartbeat.OnMessageReceived()
		}

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()

		if handler != nil {
			if err := handler(data); err != nil {
				c.logger.Error("Message handler error", "error", err)
			}
		}
	}
}

func (c *client) TriggerReconnect() {
	select {
	case c.reconnectC <- struct{}{}:
		go c.reconnectLoop()
	default:
		// Reconnection already in progress
	}
}

func (c *client) reconnectLoop() {
	c.stopHeartbeat()
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.setState(StateDisconnected)

	for {
		select {
		case <-c.closeCh:
			return
		case <-c.ctx.Done():
			return
		default:
		}

		if !c.reconnector.ShouldReconnect() {
			c.logger.Error("Max reconnect attempts reached, giving up")
			return
		}

		interval := c.reconnector.NextInterval()
		c.logger.Info("Reconnecting",
			"interval", interval,
			"attempt", c.reconnector.Attempts())

		select {
		case <-time.After(interval):
		case <-c.closeCh:
			return
		case <-c.ctx.Done():
			return
		}

		c.isReconnect = true

		if err := c.doConnect(); err != nil {
			c.logger.Error("Reconnect failed", "error", err)
			c.isReconnect = false
			continue
		}

		select {
		case <-c.reconnectC:
		default:
		}
		return
	}
}

func (c *client) stopHeartbeat() {
	if c.heartbeatCancel != nil {
		c.heartbeatCancel()
		c.heartbeatCancel = nil
	}
	c.heartbeat = nil
}
