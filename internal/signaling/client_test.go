package signaling

import (
	"context"
	"encoding/json"
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

// fakeServer answers register with registered, then forwards an offer and
// reports every message it received on got.
func fakeServer(t *testing.T, got chan<- Message) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			got <- msg
			if msg.Type == TypeRegister {
				_ = conn.WriteJSON(Message{Type: TypeRegistered})
				_ = conn.WriteJSON(Message{Type: TypeOffer, From: "viewer-1", Payload: json.RawMessage(`{"sdp":"x"}`)})
				_ = conn.WriteJSON(Message{Type: TypePublishers, List: []PeerInfo{{ID: msg.ID, Online: true}}})
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestPublisherClientRegistersAndAnswers(t *testing.T) {
	got := make(chan Message, 8)
	ts := fakeServer(t, got)

	registered := make(chan struct{}, 1)
	offers := make(chan string, 1)

	c := NewPublisherClient(wsURL(ts), "pub-1", PublisherHandler{
		OnRegistered: func() { registered <- struct{}{} },
		OnOffer: func(viewer string, payload json.RawMessage) {
			offers <- viewer + " " + string(payload)
		},
	}, logger.Discard())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	msg := recv(t, got, "register")
	assert.Equal(t, TypeRegister, msg.Type)
	assert.Equal(t, "pub-1", msg.ID)
	assert.Equal(t, ClientTypePublisher, msg.ClientType)

	recv(t, registered, "OnRegistered")
	assert.Equal(t, `viewer-1 {"sdp":"x"}`, recv(t, offers, "OnOffer"))

	require.NoError(t, c.SendAnswer("viewer-1", json.RawMessage(`{"sdp":"y"}`)))
	msg = recv(t, got, "answer")
	assert.Equal(t, TypeAnswer, msg.Type)
	assert.Equal(t, "viewer-1", msg.Target)
	assert.JSONEq(t, `{"sdp":"y"}`, string(msg.Payload))
	assert.NotZero(t, msg.Timestamp)
}

func TestViewerClientReceivesPublisherList(t *testing.T) {
	got := make(chan Message, 8)
	ts := fakeServer(t, got)

	lists := make(chan []PeerInfo, 1)
	c := NewViewerClient(wsURL(ts), "viewer-1", ViewerHandler{
		OnPublishers: func(p []PeerInfo) { lists <- p },
	}, logger.Discard())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	// The offer the fake server pushes is not for viewers and is dropped.
	assert.Equal(t, []PeerInfo{{ID: "viewer-1", Online: true}}, recv(t, lists, "OnPublishers"))

	require.NoError(t, c.RequestPublisherList())
	recv(t, got, "register")
	assert.Equal(t, TypeListPublishers, recv(t, got, "list request").Type)
}

func TestSendsOutsideRoleAreRejected(t *testing.T) {
	pub := NewPublisherClient("ws://unused", "p", PublisherHandler{}, logger.Discard())
	assert.ErrorIs(t, pub.SendOffer("v", nil), ErrWrongRole)
	assert.ErrorIs(t, pub.RequestPublisherList(), ErrWrongRole)

	viewer := NewViewerClient("ws://unused", "v", ViewerHandler{}, logger.Discard())
	assert.ErrorIs(t, viewer.SendAnswer("p", nil), ErrWrongRole)
}

func TestSendBeforeConnect(t *testing.T) {
	c := NewViewerClient("ws://unused", "v", ViewerHandler{}, logger.Discard())
	assert.ErrorIs(t, c.SendOffer("p", nil), ErrNotConnected)
}

func TestCloseIsIdempotent(t *testing.T) {
	got := make(chan Message, 8)
	ts := fakeServer(t, got)
	c := NewViewerClient(wsURL(ts), "v", ViewerHandler{}, logger.Discard())
	require.NoError(t, c.Connect(context.Background()))

	c.Close()
	c.Close()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
	assert.ErrorIs(t, c.RequestPublisherList(), ErrNotConnected)
}
