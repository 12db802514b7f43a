// Package cdp binds the browser-facing ports to a real browser over the
// DevTools protocol: data removal, window enumeration and window-close
// events, all on one websocket connection to the browser endpoint.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// maxMessageSize bounds a single protocol message. Cookie dumps from a
// well-used profile run to several megabytes.
const maxMessageSize = 64 << 20

// EventHandler receives protocol events (messages without an id).
type EventHandler func(method string, params json.RawMessage)

// Client is a DevTools protocol client attached to the browser target.
type Client struct {
	conn   *websocket.Conn
	logger log.Logger

	nextID  atomic.Int64
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan rpcResponse
	onEvent EventHandler
	closed  bool
	done    chan struct{}
}

type rpcRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("devtools: %s (code %d)", e.Message, e.Code)
}

type versionInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Dial discovers the browser's websocket endpoint via debugURL (the
// http://host:port DevTools address) and attaches to it. The returned
// client is ready for calls; its read loop runs until Close or a transport
// failure.
func Dial(ctx context.Context, debugURL string, logger log.Logger) (*Client, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, debugURL+"/json/version", nil)
	if err != nil {
		return nil, fmt.Errorf("devtools version request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("devtools version query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devtools version query: unexpected status %d", resp.StatusCode)
	}

	var version versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return nil, fmt.Errorf("devtools version decode: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("devtools version response carries no websocket endpoint")
	}

	conn, _, err := websocket.Dial(ctx, version.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("devtools dial: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]chan rpcResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SetEventHandler installs the handler for protocol events. Install before
// enabling event-producing domains; a nil handler drops events.
func (c *Client) SetEventHandler(fn EventHandler) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// Call invokes a protocol method and decodes its result into out (out may
// be nil when the result is irrelevant). It fails with the browser's error
// for protocol failures, with ctx's error on cancellation, and with
// domain.ErrNotConnected once the connection is gone.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	id := c.nextID.Add(1)
	ch := make(chan rpcResponse, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(rpcRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	c.writeMu.Lock()
	err = c.conn.Write(ctx, websocket.MessageText, payload)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return domain.ErrNotConnected
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// Close tears down the connection. In-flight calls fail with
// domain.ErrNotConnected.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "shutting down")
}

// Done is closed when the connection is gone, whether through Close or a
// transport failure such as the browser exiting.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.teardown(err)
			return
		}

		var msg rpcResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("devtools: undecodable message", log.Err(err))
			continue
		}

		if msg.ID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		c.mu.Lock()
		handler := c.onEvent
		c.mu.Unlock()
		if handler != nil && msg.Method != "" {
			handler(msg.Method, msg.Params)
		}
	}
}

// teardown marks the client closed and releases all waiters.
func (c *Client) teardown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	if websocket.CloseStatus(cause) == -1 {
		c.logger.Debug("devtools connection closed", log.Err(cause))
	}
}
