package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrSuperseded is returned by StreamClient.Run when the host replaced this
// client with a newer subscriber.
var ErrSuperseded = errors.New("transport: superseded by another subscriber")

// StreamClient receives frames from a host's /stream WebSocket endpoint.
type StreamClient struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.RWMutex
	onFrame func(data []byte)
}

var _ FrameReceiver = (*StreamClient)(nil)

// NewStreamClient creates a client for url.
func NewStreamClient(url string, logger *slog.Logger) *StreamClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamClient{url: url, dialer: websocket.DefaultDialer, logger: logger}
}

func (c *StreamClient) OnFrame(cb func(data []byte)) {
	c.mu.Lock()
	c.onFrame = cb
	c.mu.Unlock()
}

// Run dials the host and delivers binary messages until ctx is cancelled or
// the connection ends. It returns nil on cancellation.
func (c *StreamClient) Run(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("stream dial: %w", err)
	}
	c.logger.Info("stream connected", "url", c.url)

	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				return ErrSuperseded
			}
			return fmt.Errorf("stream read: %w", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		c.mu.RLock()
		cb := c.onFrame
		c.mu.RUnlock()
		if cb != nil {
			cb(data)
		}
	}
}
