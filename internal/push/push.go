// Package push maintains the websocket subscription to call-record change
// events and hands each event to a Handler.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event names exchanged with the push server.
const (
	EventSubscribe     = "subscribe:call-records"
	EventUnsubscribe   = "unsubscribe:call-records"
	EventCreated       = "call-record:created"
	EventUpdated       = "call-record:updated"
	EventStatusChanged = "call-status:changed"
)

const (
	// baseBackoff is the initial reconnect delay.
	baseBackoff = time.Second
	// maxBackoff caps the exponential reconnect delay.
	maxBackoff = time.Minute
	// stableAfter is how long a session must last before backoff resets.
	stableAfter = 30 * time.Second
	writeWait   = 5 * time.Second
)

// Message is one frame on the push channel.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives routed push events. HandlePush is called from the read
// goroutine and must not block for long.
type Handler interface {
	HandlePush(event string, data json.RawMessage)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(event string, data json.RawMessage)

func (f HandlerFunc) HandlePush(event string, data json.RawMessage) { f(event, data) }

// Opts configures a Client.
type Opts struct {
	URL     string
	Token   string // sent as a bearer credential on the upgrade request
	Handler Handler
	// For testing: shorter backoff and a custom dialer.
	Dialer      *websocket.Dialer
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Client is a reconnecting push-channel subscriber.
type Client struct {
	url         string
	header      http.Header
	dialer      *websocket.Dialer
	handler     Handler
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu        sync.Mutex
	connected bool
}

// New creates a Client. It does not dial until Run.
func New(opts Opts) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("push: url is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("push: handler is required")
	}
	c := &Client{
		url:         opts.URL,
		header:      http.Header{},
		dialer:      opts.Dialer,
		handler:     opts.Handler,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
	}
	if opts.Token != "" {
		c.header.Set("Authorization", "Bearer "+opts.Token)
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.baseBackoff <= 0 {
		c.baseBackoff = baseBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = maxBackoff
	}
	return c, nil
}

// Connected reports whether a session is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Run keeps a session open until ctx is cancelled, reconnecting with
// exponential backoff. It always returns nil once ctx is done.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		started := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) >= stableAfter {
			attempt = 0
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * c.baseBackoff
		if wait > c.maxBackoff || wait <= 0 {
			wait = c.maxBackoff
		}
		attempt++
		if err == nil {
			err = errors.New("closed by server")
		}
		log.Printf("push: disconnected (attempt %d): %v; reconnecting in %v", attempt, err, wait)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// session dials, subscribes and pumps frames until the connection drops or
// ctx is cancelled.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("push: dial: %w", err)
	}
	defer conn.Close()

	if err := writeEvent(conn, EventSubscribe); err != nil {
		return fmt.Errorf("push: subscribe: %w", err)
	}
	c.setConnected(true)
	defer c.setConnected(false)
	log.Printf("push: subscribed to %s", c.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			writeEvent(conn, EventUnsubscribe)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("push: read: %w", err)
		}
		c.dispatch(data)
	}
}

func writeEvent(conn *websocket.Conn, event string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Message{Event: event})
}

// dispatch routes one frame. Unknown events and undecodable frames are
// dropped.
func (c *Client) dispatch(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		log.Printf("push: dropping frame: %v", err)
		return
	}
	switch msg.Event {
	case EventCreated, EventUpdated:
		c.handler.HandlePush(msg.Event, msg.Data)
	case EventStatusChanged:
		c.handler.HandlePush(msg.Event, unwrapRecord(msg.Data))
	}
}

// ErrFrame is returned by Decode for frames that are neither an event
// object nor an [event, data] pair.
var ErrFrame = errors.New("malformed frame")

// Decode parses a frame in either {"event":…,"data":…} or ["event", data]
// form.
func Decode(frame []byte) (Message, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return Message{}, ErrFrame
	}
	if frame[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(frame, &pair); err != nil || len(pair) == 0 {
			return Message{}, ErrFrame
		}
		var m Message
		if err := json.Unmarshal(pair[0], &m.Event); err != nil {
			return Message{}, ErrFrame
		}
		if len(pair) > 1 {
			m.Data = pair[1]
		}
		return m, nil
	}
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil || m.Event == "" {
		return Message{}, ErrFrame
	}
	return m, nil
}

// unwrapRecord returns data.record when it is an object, else data.
func unwrapRecord(data json.RawMessage) json.RawMessage {
	var env struct {
		Record json.RawMessage `json:"record"`
	}
	if json.Unmarshal(data, &env) == nil {
		if r := bytes.TrimSpace(env.Record); len(r) > 0 && r[0] == '{' {
			return r
		}
	}
	return data
}
