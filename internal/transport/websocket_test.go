package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/Backdrop/internal/logger"
)

func streamServer(t *testing.T, handle func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestStreamClientDeliversBinaryFrames(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("one"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("two"))
		_, _, _ = conn.ReadMessage()
	})

	got := make(chan string, 4)
	c := NewStreamClient(url, logger.Discard())
	c.OnFrame(func(data []byte) { got <- string(data) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Equal(t, "one", <-got)
	assert.Equal(t, "two", <-got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStreamClientSuperseded(t *testing.T) {
	url := streamServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "superseded")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	err := NewStreamClient(url, logger.Discard()).Run(context.Background())
	assert.ErrorIs(t, err, ErrSuperseded)
}

func TestStreamClientDialError(t *testing.T) {
	err := NewStreamClient("ws://127.0.0.1:1/stream", logger.Discard()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream dial")
}
