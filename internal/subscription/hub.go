// Package subscription arbitrates the single active subscriber of a pipeline
// across transports. Attaching a new subscriber supersedes the previous one.
package subscription

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/junsooki/Backdrop/internal/transport"
)

// Target is the pipeline side of a subscription.
type Target interface {
	Subscribe(sink transport.FrameSender)
	Unsubscribe()
}

type entry struct {
	session   string
	peer      string
	transport string
	sink      transport.FrameSender
	supersede func()
}

// Hub owns the current subscriber.
type Hub struct {
	target Target
	logger *slog.Logger

	mu      sync.Mutex
	current *entry
}

// NewHub creates a Hub feeding target.
func NewHub(target Target, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{target: target, logger: logger}
}

// Attach makes sink the active subscriber and returns a session key for
// Detach. peer names the remote end for logs and health. If another
// subscriber was active its supersede callback runs after the switch,
// outside the hub lock.
func (h *Hub) Attach(peer, transportName string, sink transport.FrameSender, supersede func()) string {
	session := uuid.NewString()

	h.mu.Lock()
	prev := h.current
	h.current = &entry{session: session, peer: peer, transport: transportName, sink: sink, supersede: supersede}
	h.target.Subscribe(sink)
	h.mu.Unlock()

	h.logger.Info("subscriber active", "peer", peer, "session", session, "transport", transportName)
	if prev != nil {
		h.logger.Info("subscriber superseded", "peer", prev.peer, "session", prev.session, "transport", prev.transport)
		if prev.supersede != nil {
			prev.supersede()
		}
	}
	return session
}

// Detach unsubscribes session if it is still the active one.
// It reports whether anything changed.
func (h *Hub) Detach(session string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current == nil || h.current.session != session {
		return false
	}
	h.logger.Info("subscriber gone", "peer", h.current.peer, "session", session)
	h.current = nil
	h.target.Unsubscribe()
	return true
}

// Current returns the active subscriber's peer and transport, if any.
func (h *Hub) Current() (peer, transportName string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return "", "", false
	}
	return h.current.peer, h.current.transport, true
}
