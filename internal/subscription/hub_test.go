package subscription

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/Backdrop/internal/logger"
	"github.com/junsooki/Backdrop/internal/transport"
)

type fakeTarget struct {
	mu           sync.Mutex
	sink         transport.FrameSender
	subscribes   int
	unsubscribes int
}

func (f *fakeTarget) Subscribe(sink transport.FrameSender) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
	f.subscribes++
}

func (f *fakeTarget) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = nil
	f.unsubscribes++
}

func nopSink() transport.FrameSender {
	return transport.FrameSenderFunc(func([]byte) error { return nil })
}

func TestAttachSubscribesTarget(t *testing.T) {
	target := &fakeTarget{}
	hub := NewHub(target, logger.Discard())

	hub.Attach("a", "websocket", nopSink(), nil)

	id, tr, ok := hub.Current()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, "websocket", tr)
	assert.Equal(t, 1, target.subscribes)
	assert.NotNil(t, target.sink)
}

func TestAttachSupersedesPrevious(t *testing.T) {
	target := &fakeTarget{}
	hub := NewHub(target, logger.Discard())

	superseded := false
	var first string
	first = hub.Attach("a", "websocket", nopSink(), func() {
		superseded = true
		// A superseded transport typically detaches itself.
		assert.False(t, hub.Detach(first))
	})
	hub.Attach("b", "webrtc", nopSink(), nil)

	assert.True(t, superseded)
	peer, _, _ := hub.Current()
	assert.Equal(t, "b", peer)
	assert.Equal(t, 2, target.subscribes)
	assert.Zero(t, target.unsubscribes)
}

func TestDetachOnlyCurrent(t *testing.T) {
	target := &fakeTarget{}
	hub := NewHub(target, logger.Discard())

	assert.False(t, hub.Detach("nobody"))

	session := hub.Attach("a", "websocket", nopSink(), nil)
	assert.False(t, hub.Detach("a"))
	assert.True(t, hub.Detach(session))
	assert.False(t, hub.Detach(session))

	_, _, ok := hub.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, target.unsubscribes)
	assert.Nil(t, target.sink)
}

func TestLateDetachOfSamePeerKeepsNewSession(t *testing.T) {
	target := &fakeTarget{}
	hub := NewHub(target, logger.Discard())

	old := hub.Attach("viewer-1", "webrtc", nopSink(), nil)
	renewed := hub.Attach("viewer-1", "webrtc", nopSink(), nil)
	require.NotEqual(t, old, renewed)

	// The old connection's close notification arrives after the re-offer.
	assert.False(t, hub.Detach(old))

	peer, tr, ok := hub.Current()
	assert.True(t, ok)
	assert.Equal(t, "viewer-1", peer)
	assert.Equal(t, "webrtc", tr)
	assert.Zero(t, target.unsubscribes)
	assert.NotNil(t, target.sink)
}
