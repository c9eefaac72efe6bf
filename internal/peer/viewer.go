package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/Backdrop/internal/transport"
)

// Viewer is the receiving side of a WebRTC session with a publisher.
type Viewer struct {
	pc          *webrtc.PeerConnection
	sig         OfferSignaler
	transport   *transport.DataChannelTransport
	publisherID string
}

// NewViewer creates a Viewer that will connect to publisherID.
func NewViewer(sig OfferSignaler, publisherID string, logger *slog.Logger) (*Viewer, error) {
	pc, err := NewPeerConnection(logger)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		pc:          pc,
		sig:         sig,
		transport:   transport.NewDataChannelTransport(nil),
		publisherID: publisherID,
	}

	// The publisher creates the channel; accept it here.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		logger.Info("data channel received", "label", dc.Label())
		if dc.Label() != transport.FramesLabel {
			return
		}
		dc.OnOpen(func() {
			logger.Info("frames data channel open")
		})
		v.transport.SetFramesChannel(dc)
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", "error", err)
			return
		}
		_ = sig.SendICECandidate(publisherID, data)
	})

	return v, nil
}

// Transport returns the frames receiver.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect initiates the WebRTC connection by creating and sending an offer.
// The offer needs an application section for the publisher's frames channel
// to ride on, hence the control channel.
func (v *Viewer) Connect() error {
	if _, err := v.pc.CreateDataChannel("control", nil); err != nil {
		return err
	}

	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}

	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}

	return v.sig.SendOffer(v.publisherID, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return v.pc.AddICECandidate(candidate)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		v.pc.Close()
	}
}
