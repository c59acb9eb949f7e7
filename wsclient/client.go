// Package wsclient implements the long-lived WebSocket client process spec
// §4.6 describes: a queue of buffered inbound frames and a queue of
// awaiting readers, built on github.com/gorilla/websocket the way
// itsneelabh-gomind/ui/transports/websocket/websocket.go uses it for the
// server side (channel-fed send loop, mutex-guarded closed flag).
package wsclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameType distinguishes the two gorilla/websocket message kinds the
// driver cares about; spec §4.6 Send picks Text when the body is JSON.
type FrameType int

const (
	Text FrameType = iota
	Binary
)

// Frame is one inbound or outbound WebSocket message.
type Frame struct {
	Type FrameType
	Data []byte
}

// ErrTimeout is returned by Recv when no frame arrives within the bound.
var ErrTimeout = fmt.Errorf("wsclient: receive timeout")

// ErrClosed is returned by Send/Recv once the client has been closed,
// locally or by the remote peer.
var ErrClosed = fmt.Errorf("wsclient: connection closed")

type reader struct {
	deliver chan Frame
	err     chan error
}

// Client is the long-lived process spec §4.6 names: "on inbound frame, if
// readers waiting, deliver to the head reader; else enqueue. On reader
// request with timeout, deliver head frame if any; else block until a
// frame arrives or timeout."
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	queue   []Frame
	readers []*reader
	closed  bool
	closeErr error

	writeMu sync.Mutex
	done    chan struct{}
}

// Dial connects to url, mirroring spec §4.6 Connect's "derives ws(s)://...
// from the HTTP URL scheme, spawns a client process". Callers are expected
// to have already rewritten the scheme; Dial itself just opens the socket
// and starts the read pump.
func Dial(ctx context.Context, url string, headers map[string][]string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn, done: make(chan struct{})}
	go c.readPump()
	return c, nil
}

func (c *Client) readPump() {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		ft := Text
		if msgType == websocket.BinaryMessage {
			ft = Binary
		}
		c.deliver(Frame{Type: ft, Data: data})
	}
}

// deliver implements the inbound-frame half of the client contract: hand
// off to the oldest waiting reader if any, else buffer.
func (c *Client) deliver(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.readers) > 0 {
		r := c.readers[0]
		c.readers = c.readers[1:]
		r.deliver <- f
		return
	}
	c.queue = append(c.queue, f)
}

// fail marks the client closed due to a remote-initiated condition (close
// frame, transport error) and wakes every waiting reader with the error,
// the "remote close escalates" half of spec §4.6 Connect.
func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	for _, r := range c.readers {
		r.err <- err
	}
	c.readers = nil
	close(c.done)
}

// Recv blocks up to timeout for the next frame, delivering the oldest
// buffered frame immediately if one is queued. timeout <= 0 means wait
// indefinitely (the caller is expected to bound it with the session
// timeout per spec §4.6).
func (c *Client) Recv(ctx context.Context, timeout time.Duration) (Frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Frame{}, ErrClosed
	}
	if len(c.queue) > 0 {
		f := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return f, nil
	}
	r := &reader{deliver: make(chan Frame, 1), err: make(chan error, 1)}
	c.readers = append(c.readers, r)
	c.mu.Unlock()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case f := <-r.deliver:
		return f, nil
	case err := <-r.err:
		return Frame{}, err
	case <-timer:
		c.dropReader(r)
		return Frame{}, ErrTimeout
	case <-ctx.Done():
		c.dropReader(r)
		return Frame{}, ctx.Err()
	}
}

func (c *Client) dropReader(target *reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.readers {
		if r == target {
			c.readers = append(c.readers[:i], c.readers[i+1:]...)
			return
		}
	}
}

// Send writes a frame. JSON bodies are sent as Text frames per spec §4.6.
func (c *Client) Send(f Frame) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msgType := websocket.TextMessage
	if f.Type == Binary {
		msgType = websocket.BinaryMessage
	}
	return c.conn.WriteMessage(msgType, f.Data)
}

// Ping sends a ping control frame; gorilla/websocket answers inbound pings
// with pongs automatically, matching spec §4.6's "Ping -> Pong".
func (c *Client) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// Close terminates the connection locally — "local close is a normal
// termination" per spec §4.6 — and releases every waiting reader with
// ErrClosed rather than a transport error.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, r := range c.readers {
		r.err <- ErrClosed
	}
	c.readers = nil
	close(c.done)
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	c.writeMu.Unlock()

	return c.conn.Close()
}

// Done is closed once the client has terminated, locally or remotely.
func (c *Client) Done() <-chan struct{} { return c.done }
