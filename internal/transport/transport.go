package transport

import "errors"

// ErrClosed is returned by senders whose underlying channel is gone.
var ErrClosed = errors.New("transport: closed")

// FrameSender delivers encoded frames to a subscriber.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver receives encoded frames from a publisher.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}

// FrameSenderFunc adapts a function to FrameSender.
type FrameSenderFunc func(data []byte) error

func (f FrameSenderFunc) SendFrame(data []byte) error {
	return f(data)
}
