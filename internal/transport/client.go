// Package transport is the realtime event channel to the chat server: one
// websocket carrying {"event","data"} frames, reconnected with backoff.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/goopchat/internal/proto"
)

var ErrNotConnected = errors.New("transport: not connected")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 20
	sendBuffer = 256
)

type Options struct {
	URL          string
	Token        string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	Dialer       *websocket.Dialer
}

// Client keeps one websocket open to the server and fans inbound events out
// to subscribers in arrival order.
type Client struct {
	opts Options

	mu   sync.RWMutex
	conn *websocket.Conn
	send chan []byte

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	done      chan struct{}
	closeOnce sync.Once
}

type subscriber struct {
	ch   chan proto.Event
	quit chan struct{}
}

func New(opts Options) *Client {
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = time.Second
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		opts: opts,
		subs: make(map[int]*subscriber),
		done: make(chan struct{}),
	}
}

// Run connects and reconnects until ctx is cancelled or Close is called.
// Each successful connection is announced with a synthetic connect event
// and each loss with disconnect.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.opts.ReconnectMin
	for {
		conn, err := c.dial(ctx)
		if err == nil {
			backoff = c.opts.ReconnectMin
			c.serve(conn)
		} else {
			log.Printf("WS: dial %s: %v", c.opts.URL, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// serve runs the pumps for one connection and returns when it drops.
func (c *Client) serve(conn *websocket.Conn) {
	send := make(chan []byte, sendBuffer)
	connDone := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.send = send
	c.mu.Unlock()

	log.Printf("WS: connected to %s", c.opts.URL)
	c.deliver(proto.Event{Name: proto.EventConnect})

	go c.writePump(conn, send, connDone)
	c.readPump(conn)
	close(connDone)

	c.mu.Lock()
	c.conn = nil
	c.send = nil
	c.mu.Unlock()
	_ = conn.Close()

	log.Printf("WS: disconnected from %s", c.opts.URL)
	c.deliver(proto.Event{Name: proto.EventDisconnect})
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS: read error: %v", err)
			}
			return
		}
		var f proto.Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			log.Printf("WS: dropping malformed frame: %v", err)
			continue
		}
		c.deliver(proto.Event{Name: f.Event, Data: f.Data})
	}
}

func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("WS: write error: %v", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-connDone:
			return
		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
			return
		}
	}
}

// Emit queues one outbound frame. It fails fast while disconnected.
func (c *Client) Emit(event string, payload any) error {
	data, err := proto.Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.send == nil {
		return ErrNotConnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("transport: send buffer full, dropped %s", event)
	}
}

func (c *Client) JoinChannel(channelID string) error {
	return c.Emit(proto.EventJoinChannel, channelID)
}

func (c *Client) LeaveChannel(channelID string) error {
	return c.Emit(proto.EventLeaveChannel, channelID)
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Subscribe returns a channel of inbound events and a cancel func. The
// channel is never closed; stop reading after cancel.
func (c *Client) Subscribe() (<-chan proto.Event, func()) {
	sub := &subscriber{ch: make(chan proto.Event, sendBuffer), quit: make(chan struct{})}
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.subMu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(sub.quit)
		})
	}
}

// deliver hands evt to every subscriber, blocking on a full one so events
// are never reordered or silently lost.
func (c *Client) deliver(evt proto.Event) {
	c.subMu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subMu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- evt:
		case <-s.quit:
		case <-c.done:
			return
		}
	}
}

// Close stops reconnecting and closes the live connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			_ = conn.SetReadDeadline(time.Now())
		}
	})
}
