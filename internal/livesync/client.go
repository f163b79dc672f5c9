// Package livesync keeps a local copy of the tally in step with a running server.
package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"votetally/internal/broadcast"
	"votetally/internal/domain/option"
)

const DefaultReconnectDelay = 10 * time.Second

type Client struct {
	WSURL          string
	APIURL         string
	ReconnectDelay time.Duration

	// OnSnapshot is called with every tally that replaces the local state.
	OnSnapshot func([]option.Count)

	Dialer     *websocket.Dialer
	HTTPClient *http.Client

	mu      sync.Mutex
	tally   []option.Count
	conn    *websocket.Conn
	stopped bool
	stopCh  chan struct{}
}

// NewClient derives the live channel and fallback URLs from the server's base URL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return &Client{
		WSURL:  ws.String() + "/ws",
		APIURL: u.String() + "/api/options",
	}, nil
}

// Tally returns the last snapshot received.
func (c *Client) Tally() []option.Count {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]option.Count(nil), c.tally...)
}

// Run keeps the client connected until ctx is canceled or Stop is called. When
// the channel fails it fetches the tally once over HTTP and schedules a single
// reconnect after ReconnectDelay.
func (c *Client) Run(ctx context.Context) error {
	stop := c.stopChan()
	for {
		err := c.session(ctx)
		if c.isStopped() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("live channel lost", "url", c.WSURL, "error", err)

		if err := c.fetch(ctx); err != nil {
			slog.Error("fallback fetch failed", "url", c.APIURL, "error", err)
		}

		timer := time.NewTimer(c.reconnectDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stop:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop closes the channel intentionally. No reconnect follows.
func (c *Client) Stop() {
	stop := c.stopChan()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(stop)
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.conn.Close()
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer().DialContext(ctx, c.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	// Unblock the read when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := broadcast.Decode(data)
		if err != nil {
			slog.Warn("ignoring malformed message", "error", err)
			continue
		}
		if msg.Type != broadcast.TypeOptions {
			continue
		}
		c.apply(msg.Data)
	}
}

func (c *Client) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var counts []option.Count
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return fmt.Errorf("decode tally: %w", err)
	}
	if counts == nil {
		counts = []option.Count{}
	}
	c.apply(counts)
	return nil
}

func (c *Client) apply(counts []option.Count) {
	c.mu.Lock()
	c.tally = counts
	cb := c.OnSnapshot
	c.mu.Unlock()
	if cb != nil {
		cb(append([]option.Count(nil), counts...))
	}
}

func (c *Client) stopChan() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh == nil {
		c.stopCh = make(chan struct{})
	}
	return c.stopCh
}

func (c *Client) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Client) reconnectDelay() time.Duration {
	if c.ReconnectDelay > 0 {
		return c.ReconnectDelay
	}
	return DefaultReconnectDelay
}

func (c *Client) dialer() *websocket.Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return websocket.DefaultDialer
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
