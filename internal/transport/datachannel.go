package transport

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// FramesLabel is the label of the DataChannel that carries frames.
const FramesLabel = "frames"

// DataChannelTransport carries encoded frames over a WebRTC DataChannel.
type DataChannelTransport struct {
	mu       sync.RWMutex
	framesDC *webrtc.DataChannel
	onFrame  func(data []byte)
}

// NewDataChannelTransport wraps the frames DataChannel. dc may be nil on the
// receiving side until the remote channel arrives.
func NewDataChannelTransport(dc *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{}
	if dc != nil {
		t.SetFramesChannel(dc)
	}
	return t
}

func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.RLock()
	dc := t.framesDC
	t.mu.RUnlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrClosed
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.mu.RLock()
		cb := t.onFrame
		t.mu.RUnlock()
		if cb != nil {
			cb(msg.Data)
		}
	})
}
