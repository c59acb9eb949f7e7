package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stormforge/stormforge/core"
	"github.com/stormforge/stormforge/metrics"
	"github.com/stormforge/stormforge/session"
	"github.com/stormforge/stormforge/wsclient"
)

// wsSlot is what session.Assigned holds at websocket.connection (anonymous
// slot) or websocket.named_connections.<slot> (see slotKey): the live
// client plus the URL it connected to, per spec §4.6 ("stores (connection,
// url) in the session slot").
type wsSlot struct {
	conn *wsclient.Client
	url  string
}

func slotKey(slot string) []string {
	if slot == "" {
		return []string{"websocket", "connection"}
	}
	return []string{"websocket", "named_connections", slot}
}

func getSlot(s *session.Session, slot string) (*wsSlot, bool) {
	v, err := s.Assign(slotKey(slot))
	if err != nil {
		return nil, false
	}
	ws, ok := v.(*wsSlot)
	return ws, ok
}

// wsScheme rewrites an http(s) URL to its ws(s) counterpart, spec §4.6
// Connect's "derives ws(s)://... from the HTTP URL scheme".
func wsScheme(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		return "wss://" + strings.TrimPrefix(rawURL, "https://")
	case strings.HasPrefix(rawURL, "http://"):
		return "ws://" + strings.TrimPrefix(rawURL, "http://")
	default:
		return rawURL
	}
}

// Connect implements spec §4.6 Connect. On transport timeout it waits a
// bounded random delay and retries indefinitely (bounded overall by the
// session timeout enforced by the caller's context); on protocol-level
// failure it returns a session error; on remote close before
// establishment it returns ws_closed.
type Connect struct {
	URL  string
	Slot string // "" selects the anonymous slot

	RetryDelay time.Duration // default 3s, spec's ws.connect_timeout
}

func (c *Connect) Name() string { return "ws.connect" }

func (c *Connect) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	target := wsScheme(c.URL)

	for {
		conn, err := wsclient.Dial(ctx, target, nil)
		if err == nil {
			slot := &wsSlot{conn: conn, url: c.URL}
			return s.SetAssign(slotKey(c.Slot), slot), nil
		}

		switch classifyDialErr(err) {
		case dialErrProtocol:
			return s, core.NewSessionError(c.Name(), s.ID, fmt.Errorf("ws_failed: %s: %w", c.URL, err))
		case dialErrRemoteClosed:
			return s, core.NewSessionError(c.Name(), s.ID, fmt.Errorf("ws_closed: %w", err))
		}

		if ctx.Err() != nil {
			return s, core.NewSessionError(c.Name(), s.ID, fmt.Errorf("ws_closed: %w", ctx.Err()))
		}

		select {
		case <-time.After(time.Duration(core.RandomDuration(1, retryDelay.Milliseconds())) * time.Millisecond):
			continue
		case <-ctx.Done():
			return s, core.NewSessionError(c.Name(), s.ID, fmt.Errorf("ws_failed: %s: %w", c.URL, ctx.Err()))
		}
	}
}

// dialErrClass classifies a wsclient.Dial failure so Connect.Run can tell
// a fast-fail condition from one worth retrying, spec §4.6's "on protocol-
// level failure ... ; on remote close before establishment ... ; on
// transport timeout, retry".
type dialErrClass int

const (
	dialErrTransient dialErrClass = iota
	dialErrProtocol
	dialErrRemoteClosed
)

// classifyDialErr inspects a dial error the way the gorilla/websocket
// dialer surfaces it: websocket.ErrBadHandshake means the server answered
// but rejected the upgrade (fail fast), io.EOF/net.ErrClosed mean the
// peer closed the connection before a handshake response arrived (fail
// fast with ws_closed), and everything else — including a net.Error with
// Timeout() true — is treated as transient and left to the retry loop.
func classifyDialErr(err error) dialErrClass {
	if errors.Is(err, websocket.ErrBadHandshake) {
		return dialErrProtocol
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return dialErrRemoteClosed
	}
	return dialErrTransient
}

// Send implements spec §4.6 Send: a JSON body is framed as Text; a raw
// []byte body is sent as-is with the configured frame type.
type Send struct {
	Slot string
	JSON interface{} // mutually exclusive with Raw
	Raw  []byte
	Type wsclient.FrameType
}

func (a *Send) Name() string { return "ws.send" }

func (a *Send) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	slot, ok := getSlot(s, a.Slot)
	if !ok {
		return s, core.NewActionError(a.Name(), s.ID, fmt.Errorf("no websocket connection named %q", a.Slot))
	}

	frame := wsclient.Frame{Type: a.Type}
	if a.JSON != nil {
		data, err := json.Marshal(a.JSON)
		if err != nil {
			return s, core.NewActionError(a.Name(), s.ID, fmt.Errorf("encode json frame: %w", err))
		}
		frame.Type = wsclient.Text
		frame.Data = data
	} else {
		frame.Data = a.Raw
	}

	if err := slot.conn.Send(frame); err != nil {
		return s, core.NewActionError(a.Name(), s.ID, err)
	}
	return s, nil
}

// Recv implements spec §4.6 Recv: blocks up to Timeout, records a sample
// under (ws_recv, url), stores the result if enabled, and invokes
// WithResult with the decoded payload.
type Recv struct {
	Slot       string
	Timeout    time.Duration
	DecodeJSON bool
	WithResult func(s *session.Session, payload interface{}) *session.Session
	OnError    func(s *session.Session, err error) *session.Session
}

func (a *Recv) Name() string { return "ws.recv" }

func (a *Recv) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	slot, ok := getSlot(s, a.Slot)
	if !ok {
		return s, core.NewActionError(a.Name(), s.ID, fmt.Errorf("no websocket connection named %q", a.Slot))
	}

	key := metrics.ActionURLKey("ws_recv", slot.url)
	start := core.Timestamp()
	frame, err := slot.conn.Recv(ctx, a.Timeout)
	elapsed := core.Elapsed(start)
	if err != nil {
		return s, core.NewActionError(a.Name(), s.ID, err)
	}

	out := s.RecordMetric(key, elapsed)

	var payload interface{} = frame.Data
	if a.DecodeJSON {
		var decoded interface{}
		if jsonErr := json.Unmarshal(frame.Data, &decoded); jsonErr != nil {
			wrapped := core.NewActionError(a.Name(), s.ID, fmt.Errorf("decode json frame: %w", jsonErr))
			out = out.RecordError(key, wrapped)
			if a.OnError != nil {
				return a.OnError(out, wrapped), nil
			}
			return out, nil
		}
		payload = decoded
	}

	if out.StoreResultsEnabled() {
		out = out.RecordResult(key, payload)
	}
	if a.WithResult != nil {
		out = a.WithResult(out, payload)
	}
	return out, nil
}

// AwaitRecv implements spec §4.6 Await-recv: repeatedly receives,
// comparing each frame against Match, until a match is found or the
// context (carrying the overall session timeout) is done.
type AwaitRecv struct {
	Slot           string
	Match          func(payload interface{}) bool
	DecodeJSON     bool
	PerRecvTimeout time.Duration
	WithResult     func(s *session.Session, payload interface{}) *session.Session
}

func (a *AwaitRecv) Name() string { return "ws.await_recv" }

func (a *AwaitRecv) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	cur := s
	for {
		if ctx.Err() != nil {
			return cur, core.NewSessionError(a.Name(), s.ID, ctx.Err())
		}

		var latest interface{}
		recv := &Recv{
			Slot:       a.Slot,
			Timeout:    a.PerRecvTimeout,
			DecodeJSON: a.DecodeJSON,
			WithResult: func(s *session.Session, payload interface{}) *session.Session {
				latest = payload
				return s
			},
		}
		next, err := recv.Run(ctx, cur)
		if err != nil {
			return cur, err
		}
		cur = next

		if a.Match == nil || a.Match(latest) {
			if a.WithResult != nil {
				cur = a.WithResult(cur, latest)
			}
			return cur, nil
		}
	}
}

// Close implements spec §4.6 Close: closes the socket and removes the slot.
type Close struct {
	Slot string
}

func (a *Close) Name() string { return "ws.close" }

func (a *Close) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	slot, ok := getSlot(s, a.Slot)
	if !ok {
		return s, nil
	}
	_ = slot.conn.Close()
	return s.DeleteAssign(slotKey(a.Slot)), nil
}
