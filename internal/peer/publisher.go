package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/Backdrop/internal/transport"
)

// Publisher is the frame-sending side of a WebRTC session with one viewer.
type Publisher struct {
	pc        *webrtc.PeerConnection
	sig       AnswerSignaler
	transport *transport.DataChannelTransport
	logger    *slog.Logger

	mu       sync.Mutex
	viewerID string
	onOpen   func()
	onClose  func()
	closed   bool
}

// NewPublisher creates a Publisher with a reliable, ordered frames channel.
// Each message is a complete PNG, so nothing may be dropped or reordered.
func NewPublisher(sig AnswerSignaler, logger *slog.Logger) (*Publisher, error) {
	pc, err := NewPeerConnection(logger)
	if err != nil {
		return nil, err
	}

	p := &Publisher{
		pc:     pc,
		sig:    sig,
		logger: logger,
	}

	ordered := true
	framesDC, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	p.transport = transport.NewDataChannelTransport(framesDC)

	framesDC.OnOpen(func() {
		logger.Info("frames data channel open")
		p.mu.Lock()
		cb := p.onOpen
		p.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
	framesDC.OnClose(p.fireClose)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("publisher connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			p.fireClose()
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		p.mu.Lock()
		viewerID := p.viewerID
		p.mu.Unlock()
		if c == nil || viewerID == "" {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", "error", err)
			return
		}
		_ = sig.SendICECandidate(viewerID, data)
	})

	return p, nil
}

// Transport returns the frames sink.
func (p *Publisher) Transport() *transport.DataChannelTransport {
	return p.transport
}

// ViewerID returns the viewer this publisher answered.
func (p *Publisher) ViewerID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewerID
}

// OnOpen is called once the frames channel can carry data.
func (p *Publisher) OnOpen(cb func()) {
	p.mu.Lock()
	p.onOpen = cb
	p.mu.Unlock()
}

// OnClose is called once when the channel or connection goes away.
func (p *Publisher) OnClose(cb func()) {
	p.mu.Lock()
	p.onClose = cb
	p.mu.Unlock()
}

// HandleOffer processes an incoming offer from a viewer.
func (p *Publisher) HandleOffer(from string, payload json.RawMessage) error {
	p.mu.Lock()
	p.viewerID = from
	p.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}

	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}

	if err := p.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	return p.sig.SendAnswer(from, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (p *Publisher) HandleICECandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return p.pc.AddICECandidate(candidate)
}

// Close shuts down the peer connection.
func (p *Publisher) Close() {
	if p.pc != nil {
		p.pc.Close()
	}
}

func (p *Publisher) fireClose() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cb := p.onClose
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}
