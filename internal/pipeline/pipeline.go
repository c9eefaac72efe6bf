// Package pipeline polls a capture source, keeps the last emitted frame and
// pushes PNG bytes to the active subscriber whenever the desktop changes.
//
// A Pipeline is Idle until Subscribe is called. While Polling, a ticker fires
// every Interval and each tick runs capture → transform → compare → encode →
// send in its own goroutine. Ticks are not serialized by default: compare and
// update of the retained frame happen under one lock, but a slow capture may
// complete after a newer one and still be emitted (at-least-once).
// WithSkipOverlapping turns on a single-slot guard that drops a tick while the
// previous one is in flight.
//
// Encoding and sending run outside the state lock, so a slow sink never
// delays Subscribe, Unsubscribe or State. Sends are serialized in the order
// frames were accepted; a frame overtaken by a newer one is not sent.
//
// Unsubscribe bumps a generation counter; results of ticks started under an
// older generation are discarded instead of emitted.
package pipeline

import (
	"context"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/junsooki/Backdrop/internal/capture"
	"github.com/junsooki/Backdrop/internal/compare"
	"github.com/junsooki/Backdrop/internal/encoder"
	"github.com/junsooki/Backdrop/internal/transform"
	"github.com/junsooki/Backdrop/internal/transport"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = time.Second

// State is the subscription state of a Pipeline.
type State int

const (
	StateIdle State = iota
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	default:
		return "unknown"
	}
}

// Transformer normalizes raw captures.
type Transformer interface {
	Transform(frame *capture.Frame) (*image.RGBA, error)
}

// Comparator decides whether two normalized frames are the same picture.
type Comparator interface {
	Equivalent(a, b *image.RGBA) bool
}

// Pipeline is the capture-diff-emit loop.
type Pipeline struct {
	source      capture.Source
	transformer Transformer
	comparator  Comparator
	encoder     encoder.Encoder
	interval    time.Duration
	skipOverlap bool
	slot        *semaphore.Weighted
	logger      *slog.Logger
	observer    Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sendMu serializes delivery. sentSeq is the last sequence handed to a sink.
	sendMu  sync.Mutex
	sentSeq uint64

	mu          sync.Mutex
	sink        transport.FrameSender
	generation  uint64
	stop        chan struct{}
	lastEmitted *image.RGBA
	emitSeq     uint64
	closed      bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInterval overrides the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithSkipOverlapping drops a tick when the previous tick has not finished.
func WithSkipOverlapping() Option {
	return func(p *Pipeline) {
		p.skipOverlap = true
	}
}

// WithTransformer replaces the default transformer.
func WithTransformer(t Transformer) Option {
	return func(p *Pipeline) {
		p.transformer = t
	}
}

// WithComparator replaces the default comparator.
func WithComparator(c Comparator) Option {
	return func(p *Pipeline) {
		p.comparator = c
	}
}

// WithEncoder replaces the default PNG encoder.
func WithEncoder(e encoder.Encoder) Option {
	return func(p *Pipeline) {
		p.encoder = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithObserver receives tick outcomes.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New creates an idle Pipeline reading from source.
func New(source capture.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:      source,
		transformer: transform.New(),
		comparator:  compare.NewComparator(),
		encoder:     encoder.NewPNGEncoder(png.DefaultCompression),
		interval:    DefaultInterval,
		logger:      slog.Default(),
		observer:    nopObserver{},
		slot:        semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// Subscribe makes sink the only recipient of frames and (re)starts polling.
// A previous subscriber is superseded.
func (p *Pipeline) Subscribe(sink transport.FrameSender) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Debug("subscribe after close ignored")
		return
	}

	p.stopLoopLocked()
	p.generation++
	p.sink = sink
	p.stop = make(chan struct{})

	p.wg.Add(1)
	go p.loop(p.stop, p.generation)

	p.logger.Info("subscriber attached", "generation", p.generation, "interval", p.interval)
}

// Unsubscribe stops polling and drops the sink. In-flight captures finish
// but their results are discarded. The retained frame is kept.
func (p *Pipeline) Unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sink == nil && p.stop == nil {
		return
	}
	p.stopLoopLocked()
	p.generation++
	p.sink = nil

	p.logger.Info("subscriber detached", "generation", p.generation)
}

// State reports whether the pipeline currently has a subscriber.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sink != nil {
		return StatePolling
	}
	return StateIdle
}

// LastFrame returns the retained normalized frame, or nil before the first
// emission. The image must not be modified.
func (p *Pipeline) LastFrame() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEmitted
}

// Close stops polling, cancels outstanding captures and waits for every tick
// to return. Further calls to Subscribe are ignored.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stopLoopLocked()
	p.generation++
	p.sink = nil
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Pipeline) stopLoopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *Pipeline) loop(stop <-chan struct{}, gen uint64) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.dispatch(gen)
		}
	}
}

func (p *Pipeline) dispatch(gen uint64) {
	if p.skipOverlap && !p.slot.TryAcquire(1) {
		p.observer.TickSkipped(StageOverlap, nil)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.skipOverlap {
			defer p.slot.Release(1)
		}
		p.runTick(gen)
	}()
}

func (p *Pipeline) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation == gen && p.sink != nil
}

// runTick performs one capture attempt on behalf of subscription gen.
func (p *Pipeline) runTick(gen uint64) {
	if !p.current(gen) {
		p.skip(StageStale, nil)
		return
	}
	p.observer.TickStarted()

	frame, err := p.source.Capture(p.ctx)
	if err != nil {
		p.skip(StageCapture, err)
		return
	}

	normalized, err := p.transformer.Transform(frame)
	if err != nil {
		p.skip(StageTransform, err)
		return
	}

	p.mu.Lock()
	// The subscription may have changed while capture was outstanding.
	if p.generation != gen || p.sink == nil {
		p.mu.Unlock()
		p.skip(StageStale, nil)
		return
	}
	if p.lastEmitted != nil && p.comparator.Equivalent(p.lastEmitted, normalized) {
		p.mu.Unlock()
		p.observer.FrameUnchanged()
		return
	}
	p.lastEmitted = normalized
	p.emitSeq++
	seq := p.emitSeq
	sink := p.sink
	p.mu.Unlock()

	data, err := p.encoder.Encode(normalized)
	if err != nil {
		p.skip(StageEncode, err)
		return
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if seq < p.sentSeq || !p.current(gen) {
		p.skip(StageStale, nil)
		return
	}
	p.sentSeq = seq
	if err := sink.SendFrame(data); err != nil {
		p.skip(StageSend, err)
		return
	}

	b := normalized.Bounds()
	p.logger.Debug("frame emitted", "width", b.Dx(), "height", b.Dy(), "bytes", len(data))
	p.observer.FrameEmitted(len(data))
}

func (p *Pipeline) skip(stage Stage, err error) {
	if err != nil {
		p.logger.Debug("tick skipped", "stage", stage, "error", err)
	}
	p.observer.TickSkipped(stage, err)
}
