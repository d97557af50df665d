package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgmodels "meeting-assistant/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 10
	DefaultBackoff     = time.Second

	// retryLogCap bounds how many "connection failed" lines reach the log.
	// It only bites when MaxAttempts is above it.
	retryLogCap = 10

	disconnectedLine = "连接已断开，正在尝试重新连接..."
)

var (
	ErrNotConnected = errors.New("WebSocket 未连接")
	ErrGaveUp       = errors.New("reconnection attempts exhausted")
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// Entry is one line of the local chat log.
type Entry struct {
	Type         string    `json:"type"` // user, assistant, system
	Event        string    `json:"event,omitempty"`
	Message      string    `json:"message"`
	TargetUserID string    `json:"target_user_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Options struct {
	URL         string
	MaxAttempts int
	Backoff     time.Duration
	Dialer      *websocket.Dialer
	Logger      *zap.Logger
	// OnEvent receives every inbound frame after it is logged.
	OnEvent func(eventType string, data json.RawMessage)
	// OnChange is called whenever the log or the connection state changes.
	OnChange func()
}

// Client keeps a duplex channel to the hub open and mirrors the traffic
// into an ordered log.
type Client struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	state   State
	attempt int // consecutive failed dials
	entries []Entry
}

func New(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{opts: opts, log: log, state: StateConnecting}
}

// Run connects and keeps reconnecting with a fixed backoff until ctx is
// done or MaxAttempts consecutive dials fail.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected, 0)
				return nil
			}
			if gaveUp := c.connectFailed(err); gaveUp {
				return errors.Wrapf(ErrGaveUp, "dial %s", c.opts.URL)
			}
			if !sleep(ctx, c.opts.Backoff) {
				c.setState(StateDisconnected, 0)
				return nil
			}
			continue
		}

		c.connected(conn)
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		c.readLoop(conn)
		stop()
		conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		if ctx.Err() != nil {
			c.setState(StateDisconnected, 0)
			return nil
		}
		c.appendSystem(disconnectedLine)
		c.setState(StateReconnecting, 0)
	}
}

func (c *Client) connected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.attempt = 0
	c.mu.Unlock()
	c.log.Info("WebSocket 连接已建立", zap.String("url", c.opts.URL))
	c.changed()
}

// connectFailed records a failed dial and reports whether to give up.
func (c *Client) connectFailed(err error) bool {
	c.mu.Lock()
	c.attempt++
	n := c.attempt
	gaveUp := n >= c.opts.MaxAttempts
	if gaveUp {
		c.state = StateDisconnected
	} else {
		c.state = StateReconnecting
	}
	c.mu.Unlock()

	c.log.Warn("WebSocket 连接错误", zap.Int("attempt", n), zap.Error(err))
	if n <= retryLogCap {
		c.appendSystem(fmt.Sprintf("连接失败 (%d/%d)，正在重试...", n, retryLogCap))
	} else {
		c.changed()
	}
	return gaveUp
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("Ignoring malformed frame", zap.Error(err))
			continue
		}
		c.receive(env.Type, env.Data)
	}
}

func (c *Client) receive(eventType string, data json.RawMessage) {
	switch eventType {
	case pkgmodels.EventMessage:
		var m pkgmodels.ChannelMessage
		if err := json.Unmarshal(data, &m); err == nil {
			c.append(Entry{Type: m.Type, Event: eventType, Message: m.Message, Timestamp: parseTimestamp(m.Timestamp)})
		}
	case pkgmodels.EventCoordinationMessage:
		var m pkgmodels.CoordinationMessage
		if err := json.Unmarshal(data, &m); err == nil {
			c.append(Entry{Type: m.Type, Event: eventType, Message: m.Message, TargetUserID: m.TargetUserID, Timestamp: time.Now()})
		}
	}
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(eventType, data)
	}
}

// Send emits user text as chat_message and logs it locally.
func (c *Client) Send(message string) error {
	if err := c.emit(pkgmodels.EventChatMessage, pkgmodels.ChatMessagePayload{Message: message}); err != nil {
		return err
	}
	c.append(Entry{Type: pkgmodels.MessageUser, Event: pkgmodels.EventChatMessage, Message: message, Timestamp: time.Now()})
	return nil
}

// SendMockUser emits a reply on behalf of a simulated participant.
func (c *Client) SendMockUser(userID, message string) error {
	return c.emit(pkgmodels.EventMockUserMessage, pkgmodels.MockUserMessagePayload{UserID: userID, Message: message})
}

func (c *Client) emit(eventType string, data interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(pkgmodels.Envelope{Type: eventType, Data: data}); err != nil {
		return errors.Wrapf(err, "send %s", eventType)
	}
	return nil
}

// State returns the connection state and the current reconnect attempt.
func (c *Client) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.attempt
}

// StatusText renders the state for display.
func (c *Client) StatusText() string {
	state, attempt := c.State()
	switch state {
	case StateConnected:
		return "已连接"
	case StateReconnecting:
		if attempt == 0 {
			return "连接中..."
		}
		return fmt.Sprintf("重新连接中 (%d/%d)", attempt, c.opts.MaxAttempts)
	case StateDisconnected:
		return "未连接"
	default:
		return "连接中..."
	}
}

func (c *Client) Log() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

func (c *Client) appendSystem(message string) {
	c.append(Entry{Type: pkgmodels.MessageSystem, Message: message, Timestamp: time.Now()})
}

func (c *Client) append(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
	c.changed()
}

func (c *Client) setState(s State, attempt int) {
	c.mu.Lock()
	c.state = s
	c.attempt = attempt
	c.mu.Unlock()
	c.changed()
}

func (c *Client) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
