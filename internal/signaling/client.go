package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

var (
	// ErrNotConnected is returned by sends before Connect or after Close.
	ErrNotConnected = errors.New("signaling: not connected")

	// ErrWrongRole is returned when a client sends a message its role
	// never sends, such as a publisher asking for the publisher list.
	ErrWrongRole = errors.New("signaling: message not valid for this role")
)

// PublisherHandler receives the messages addressed to a frame publisher.
type PublisherHandler struct {
	OnRegistered   func()
	OnOffer        func(viewer string, payload json.RawMessage)
	OnICECandidate func(viewer string, payload json.RawMessage)
	OnViewerLeft   func(viewer string)
	OnError        func(msg string)
}

// ViewerHandler receives the messages addressed to a viewer.
type ViewerHandler struct {
	OnRegistered    func()
	OnAnswer        func(publisher string, payload json.RawMessage)
	OnICECandidate  func(publisher string, payload json.RawMessage)
	OnPublishers    func(publishers []PeerInfo)
	OnPublisherLeft func(publisher string)
	OnError         func(msg string)
}

// Client is a WebSocket signaling client registered in one role. Incoming
// messages the role does not expect are logged and dropped.
type Client struct {
	url    string
	id     string
	role   string
	sends  map[string]bool
	routes map[string]func(Message)
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewPublisherClient creates a client that registers as the publisher id.
func NewPublisherClient(url, id string, h PublisherHandler, logger *slog.Logger) *Client {
	c := newClient(url, id, ClientTypePublisher, logger, TypeAnswer, TypeICECandidate)
	c.route(TypeRegistered, func(Message) { call(h.OnRegistered) })
	c.route(TypeOffer, func(m Message) { relay(h.OnOffer, m) })
	c.route(TypeICECandidate, func(m Message) { relay(h.OnICECandidate, m) })
	c.route(TypePeerDisconnected, func(m Message) { peerGone(h.OnViewerLeft, m) })
	c.route(TypeError, func(m Message) { report(h.OnError, m) })
	return c
}

// NewViewerClient creates a client that registers as the viewer id.
func NewViewerClient(url, id string, h ViewerHandler, logger *slog.Logger) *Client {
	c := newClient(url, id, ClientTypeViewer, logger, TypeOffer, TypeICECandidate, TypeListPublishers)
	c.route(TypeRegistered, func(Message) { call(h.OnRegistered) })
	c.route(TypeAnswer, func(m Message) { relay(h.OnAnswer, m) })
	c.route(TypeICECandidate, func(m Message) { relay(h.OnICECandidate, m) })
	publishers := func(m Message) {
		if h.OnPublishers != nil {
			h.OnPublishers(m.List)
		}
	}
	c.route(TypePublishers, publishers)
	c.route(TypePublishersUpdated, publishers)
	c.route(TypePeerDisconnected, func(m Message) { peerGone(h.OnPublisherLeft, m) })
	c.route(TypeError, func(m Message) { report(h.OnError, m) })
	return c
}

func newClient(url, id, role string, logger *slog.Logger, sends ...string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:    url,
		id:     id,
		role:   role,
		sends:  map[string]bool{TypeRegister: true, TypePing: true},
		routes: make(map[string]func(Message)),
		logger: logger.With("signaling", role),
		done:   make(chan struct{}),
	}
	for _, t := range sends {
		c.sends[t] = true
	}
	c.route(TypePong, func(Message) {})
	return c
}

func (c *Client) route(msgType string, fn func(Message)) {
	c.routes[msgType] = fn
}

// ID returns the id this client registers with.
func (c *Client) ID() string {
	return c.id
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Connect dials the signaling server, registers and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(Message{Type: TypeRegister, ID: c.id, ClientType: c.role}); err != nil {
		conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	go c.readLoop(conn)
	go c.pingLoop()
	return nil
}

// Close shuts down the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendOffer sends an SDP offer to a publisher. Viewers only.
func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, Payload: payload})
}

// SendAnswer sends an SDP answer to a viewer. Publishers only.
func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeAnswer, Target: target, Payload: payload})
}

// SendICECandidate sends a trickled ICE candidate to target.
func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// RequestPublisherList asks the server for available publishers. Viewers only.
func (c *Client) RequestPublisherList() error {
	return c.send(Message{Type: TypeListPublishers})
}

func (c *Client) send(msg Message) error {
	if !c.sends[msg.Type] {
		return fmt.Errorf("%w: %s as %s", ErrWrongRole, msg.Type, c.role)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ErrNotConnected
	}
	msg.Timestamp = time.Now().UnixMilli()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.Close()
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("read", "error", err)
			}
			return
		}
		fn, ok := c.routes[msg.Type]
		if !ok {
			c.logger.Debug("message ignored", "type", msg.Type, "from", msg.From)
			continue
		}
		fn(msg)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: TypePing}); err != nil {
				return
			}
		}
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func relay(fn func(string, json.RawMessage), m Message) {
	if fn != nil {
		fn(m.From, m.Payload)
	}
}

func peerGone(fn func(string), m Message) {
	if fn != nil {
		fn(m.PeerID)
	}
}

func report(fn func(string), m Message) {
	if fn != nil {
		fn(m.Msg)
	}
}
