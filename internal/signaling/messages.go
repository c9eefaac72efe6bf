package signaling

import "encoding/json"

// Message types for signaling protocol.
const (
	TypeRegister          = "register"
	TypeRegistered        = "registered"
	TypeListPublishers    = "list-publishers"
	TypePublishers        = "publishers"
	TypePublishersUpdated = "publishers-updated"
	TypeOffer             = "offer"
	TypeAnswer            = "answer"
	TypeICECandidate      = "ice-candidate"
	TypePing              = "ping"
	TypePong              = "pong"
	TypeError             = "error"
	TypePeerDisconnected  = "peer-disconnected"
)

// ClientType distinguishes the frame publisher from viewers.
const (
	ClientTypePublisher = "publisher"
	ClientTypeViewer    = "viewer"
)

// Message is the envelope for all signaling messages.
type Message struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	From       string          `json:"from,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	List       []PeerInfo      `json:"list,omitempty"`
	PeerID     string          `json:"peerId,omitempty"`
	Msg        string          `json:"message,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
}

// PeerInfo describes a publisher in the publisher list.
type PeerInfo struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}
