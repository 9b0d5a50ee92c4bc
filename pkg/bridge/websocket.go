package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morezero/zeroframe/pkg/reply"
)

const wsLogPrefix = "bridge:websocket"

const (
	cmdResponse = "response"
	cmdPing     = "ping"
)

// WSOptions configures a connection to ZeroNet's UiWebsocket endpoint.
type WSOptions struct {
	// URL is the websocket endpoint, e.g. ws://127.0.0.1:43110/Websocket.
	URL string
	// WrapperKey authorizes the connection for one site.
	WrapperKey string
	// Origin is sent as the Origin header; ZeroNet rejects cross-origin sockets.
	// Empty derives http://<host> from URL.
	Origin           string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// wsRequest is an outbound command, or a response to a host command.
type wsRequest struct {
	Cmd    string `json:"cmd"`
	Params []any  `json:"params,omitempty"`
	ID     int64  `json:"id,omitempty"`
	To     int64  `json:"to,omitempty"`
	Result any    `json:"result,omitempty"`
}

// wsInbound is anything the host sends: replies carry "to", pushes carry "id".
type wsInbound struct {
	Cmd    string          `json:"cmd"`
	ID     int64           `json:"id"`
	To     int64           `json:"to"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
}

type wsResult struct {
	reply reply.Reply
	err   error
}

// WSBridge multiplexes concurrent commands over one websocket. Each command gets a
// unique id; a single read loop routes replies to the waiting caller by id.
type WSBridge struct {
	opts WSOptions

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu      sync.Mutex
	pending map[int64]chan wsResult
	closed  bool
	done    chan struct{}

	nextID   atomic.Int64
	handlers handlerSet

	// Host pushes are queued in arrival order and run off the read loop, so a
	// handler may itself issue commands through the bridge.
	pushMu    sync.Mutex
	pushes    []wsInbound
	pushReady chan struct{}
}

// DialWS connects to the UiWebsocket endpoint and starts the read loop.
func DialWS(ctx context.Context, opts WSOptions) (*WSBridge, error) {
	endpoint, err := websocketURL(opts.URL, opts.WrapperKey)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid websocket URL: %w", wsLogPrefix, err)
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	header := http.Header{}
	origin := opts.Origin
	if origin == "" {
		origin = originFor(endpoint)
	}
	header.Set("Origin", origin)

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s - handshake failed with HTTP %d: %w", wsLogPrefix, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%s - failed to connect to %s%s: %w", wsLogPrefix, endpoint.Host, endpoint.Path, err)
	}

	b := newWSBridge(conn, opts)
	slog.Info(fmt.Sprintf("%s - Connected to %s%s", wsLogPrefix, endpoint.Host, endpoint.Path))
	return b, nil
}

func newWSBridge(conn *websocket.Conn, opts WSOptions) *WSBridge {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	b := &WSBridge{
		opts:      opts,
		conn:      conn,
		pending:   make(map[int64]chan wsResult),
		done:      make(chan struct{}),
		pushReady: make(chan struct{}, 1),
	}
	go b.readLoop()
	go b.pushLoop()
	return b
}

// Invoke sends a command and waits for its reply.
func (b *WSBridge) Invoke(ctx context.Context, cmd string, params []any) (reply.Reply, error) {
	id := b.nextID.Add(1)
	ch := make(chan wsResult, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return reply.Null(), ErrClosed
	}
	b.pending[id] = ch
	b.mu.Unlock()

	if err := b.write(wsRequest{Cmd: cmd, Params: normalizeParams(params), ID: id}); err != nil {
		b.forget(id)
		return reply.Null(), err
	}

	select {
	case res := <-ch:
		return res.reply, res.err
	case <-ctx.Done():
		b.forget(id)
		return reply.Null(), ctx.Err()
	}
}

// Send dispatches a command without registering for its reply.
func (b *WSBridge) Send(cmd string, params []any) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return b.write(wsRequest{Cmd: cmd, Params: normalizeParams(params), ID: b.nextID.Add(1)})
}

// OnCommand registers a handler for host pushes such as setSiteInfo.
func (b *WSBridge) OnCommand(cmd string, h Handler) {
	b.handlers.add(cmd, h)
}

// IsFalsy applies the UiWebsocket server's truthiness rule.
func (b *WSBridge) IsFalsy(r reply.Reply) bool { return reply.PyFalsy(r) }

// Connected reports whether the read loop is still running.
func (b *WSBridge) Connected() bool {
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// Done is closed when the connection is gone.
func (b *WSBridge) Done() <-chan struct{} { return b.done }

// Close closes the connection and fails every pending call with ErrClosed.
func (b *WSBridge) Close() error {
	b.shutdown(ErrClosed)
	return nil
}

func (b *WSBridge) write(msg wsRequest) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s - failed to encode %s: %w", wsLogPrefix, msg.Cmd, err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%s - failed to send %s: %w", wsLogPrefix, msg.Cmd, err)
	}
	return nil
}

func (b *WSBridge) forget(id int64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *WSBridge) readLoop() {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			b.shutdown(fmt.Errorf("%s - connection lost: %w", wsLogPrefix, err))
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn(fmt.Sprintf("%s - dropping undecodable frame: %v", wsLogPrefix, err))
			continue
		}

		if msg.Cmd == cmdResponse {
			b.mu.Lock()
			ch := b.pending[msg.To]
			delete(b.pending, msg.To)
			b.mu.Unlock()
			if ch != nil {
				ch <- wsResult{reply: reply.FromJSON(msg.Result)}
			}
			continue
		}

		b.handleHostCommand(msg)
	}
}

func (b *WSBridge) handleHostCommand(msg wsInbound) {
	if msg.Cmd == cmdPing {
		if err := b.write(wsRequest{Cmd: cmdResponse, To: msg.ID, Result: "pong"}); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to answer ping: %v", wsLogPrefix, err))
		}
	}

	b.pushMu.Lock()
	b.pushes = append(b.pushes, msg)
	b.pushMu.Unlock()
	select {
	case b.pushReady <- struct{}{}:
	default:
	}
}

func (b *WSBridge) pushLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.pushReady:
		}

		for {
			b.pushMu.Lock()
			if len(b.pushes) == 0 {
				b.pushMu.Unlock()
				break
			}
			msg := b.pushes[0]
			b.pushes = b.pushes[1:]
			b.pushMu.Unlock()

			if !b.handlers.dispatch(msg.Cmd, reply.FromJSON(msg.Params)) && msg.Cmd != cmdPing {
				slog.Debug(fmt.Sprintf("%s - no handler for host command %s", wsLogPrefix, msg.Cmd))
			}
		}
	}
}

func (b *WSBridge) shutdown(cause error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pending := b.pending
	b.pending = make(map[int64]chan wsResult)
	close(b.done)
	b.mu.Unlock()

	b.writeMu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = b.conn.Close()
	b.writeMu.Unlock()

	for _, ch := range pending {
		ch <- wsResult{reply: reply.Null(), err: cause}
	}
}

func websocketURL(raw, wrapperKey string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if wrapperKey != "" {
		q := u.Query()
		q.Set("wrapper_key", wrapperKey)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func originFor(u *url.URL) string {
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}
