package peer

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/Backdrop/internal/logger"
	"github.com/junsooki/Backdrop/internal/transport"
)

type recordingSignaler struct {
	mu      sync.Mutex
	offers  []string
	answers []string
}

func (s *recordingSignaler) SendOffer(target string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = append(s.offers, target)
	return nil
}

func (s *recordingSignaler) SendAnswer(target string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, target)
	return nil
}

func (s *recordingSignaler) SendICECandidate(string, json.RawMessage) error {
	return nil
}

func TestPublisherRejectsBadOffer(t *testing.T) {
	sig := &recordingSignaler{}
	p, err := NewPublisher(sig, logger.Discard())
	require.NoError(t, err)
	defer p.Close()

	err = p.HandleOffer("viewer-1", json.RawMessage(`not json`))
	assert.Error(t, err)
	assert.Equal(t, "viewer-1", p.ViewerID())
	assert.Empty(t, sig.answers)
}

func TestPublisherTransportClosedUntilOpen(t *testing.T) {
	p, err := NewPublisher(&recordingSignaler{}, logger.Discard())
	require.NoError(t, err)
	defer p.Close()

	assert.ErrorIs(t, p.Transport().SendFrame([]byte("frame")), transport.ErrClosed)
}

func TestViewerAnswersPublisherOffer(t *testing.T) {
	viewerSig := &recordingSignaler{}
	v, err := NewViewer(viewerSig, "pub-1", logger.Discard())
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.Connect())
	require.Equal(t, []string{"pub-1"}, viewerSig.offers)

	offer, err := json.Marshal(v.pc.LocalDescription())
	require.NoError(t, err)

	pubSig := &recordingSignaler{}
	p, err := NewPublisher(pubSig, logger.Discard())
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.HandleOffer("viewer-1", offer))
	assert.Equal(t, []string{"viewer-1"}, pubSig.answers)

	answer, err := json.Marshal(p.pc.LocalDescription())
	require.NoError(t, err)
	require.NoError(t, v.HandleAnswer(answer))
}
