package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/junsooki/Backdrop/internal/peer"
	"github.com/junsooki/Backdrop/internal/signaling"
	"github.com/junsooki/Backdrop/internal/subscription"
)

// rtcPublisher answers viewer offers and hands open frame channels to the hub.
type rtcPublisher struct {
	hub    *subscription.Hub
	logger *slog.Logger
	sig    *signaling.Client

	mu    sync.Mutex
	peers map[string]*peer.Publisher
}

func newRTCPublisher(hub *subscription.Hub, logger *slog.Logger) *rtcPublisher {
	return &rtcPublisher{hub: hub, logger: logger, peers: make(map[string]*peer.Publisher)}
}

func (r *rtcPublisher) connect(ctx context.Context, url, id string) (*signaling.Client, error) {
	r.sig = signaling.NewPublisherClient(url, id, signaling.PublisherHandler{
		OnRegistered: func() {
			r.logger.Info("registered with signaling server", "id", id)
		},
		OnOffer:        r.handleOffer,
		OnICECandidate: r.handleCandidate,
		OnViewerLeft:   r.drop,
		OnError: func(msg string) {
			r.logger.Warn("signaling error", "message", msg)
		},
	}, r.logger)
	if err := r.sig.Connect(ctx); err != nil {
		return nil, err
	}
	return r.sig, nil
}

func (r *rtcPublisher) handleOffer(from string, payload json.RawMessage) {
	r.logger.Info("offer received", "viewer", from)
	r.drop(from)

	pub, err := peer.NewPublisher(r.sig, r.logger)
	if err != nil {
		r.logger.Error("create publisher", "viewer", from, "error", err)
		return
	}
	// A viewer that re-offers gets a new hub session, so a late close of the
	// old connection cannot detach the new one.
	var (
		sessionMu sync.Mutex
		session   string
	)
	pub.OnOpen(func() {
		s := r.hub.Attach(from, "webrtc", pub.Transport(), pub.Close)
		sessionMu.Lock()
		session = s
		sessionMu.Unlock()
	})
	pub.OnClose(func() {
		sessionMu.Lock()
		s := session
		sessionMu.Unlock()
		if s != "" {
			r.hub.Detach(s)
		}
		r.mu.Lock()
		if r.peers[from] == pub {
			delete(r.peers, from)
		}
		r.mu.Unlock()
	})

	r.mu.Lock()
	r.peers[from] = pub
	r.mu.Unlock()

	if err := pub.HandleOffer(from, payload); err != nil {
		r.logger.Error("handle offer", "viewer", from, "error", err)
		r.drop(from)
	}
}

func (r *rtcPublisher) handleCandidate(from string, payload json.RawMessage) {
	r.mu.Lock()
	pub := r.peers[from]
	r.mu.Unlock()
	if pub == nil {
		return
	}
	if err := pub.HandleICECandidate(payload); err != nil {
		r.logger.Warn("handle ICE candidate", "viewer", from, "error", err)
	}
}

// drop closes the session with viewer id, if any.
func (r *rtcPublisher) drop(id string) {
	r.mu.Lock()
	pub := r.peers[id]
	delete(r.peers, id)
	r.mu.Unlock()
	if pub != nil {
		pub.Close()
	}
}

func (r *rtcPublisher) closeAll() {
	r.mu.Lock()
	peers := r.peers
	r.peers = make(map[string]*peer.Publisher)
	r.mu.Unlock()
	for _, pub := range peers {
		pub.Close()
	}
}
