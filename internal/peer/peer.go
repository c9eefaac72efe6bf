package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// AnswerSignaler is what a Publisher needs from the signaling channel.
type AnswerSignaler interface {
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// OfferSignaler is what a Viewer needs from the signaling channel.
type OfferSignaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection.
func NewPeerConnection(logger *slog.Logger) (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{
		ICEServers: ICEServers,
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", "state", state.String())
	})
	return pc, nil
}
