// Package metrics exports pipeline tick outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/junsooki/Backdrop/internal/pipeline"
)

const namespace = "backdrop"

// Collector implements pipeline.Observer with Prometheus instruments.
type Collector struct {
	ticks     prometheus.Counter
	skipped   *prometheus.CounterVec
	unchanged prometheus.Counter
	emitted   prometheus.Counter
	bytes     prometheus.Counter
	lastSize  prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks that started a capture.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks abandoned without emitting, by stage.",
		}, []string{"stage"}),
		unchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_unchanged_total",
			Help:      "Captures equivalent to the last emitted frame.",
		}),
		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_emitted_total",
			Help:      "Frames delivered to the subscriber.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emitted_bytes_total",
			Help:      "Encoded bytes delivered to the subscriber.",
		}),
		lastSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_frame_bytes",
			Help:      "Size of the most recently emitted frame.",
		}),
	}
	reg.MustRegister(c.ticks, c.skipped, c.unchanged, c.emitted, c.bytes, c.lastSize)
	return c
}

func (c *Collector) TickStarted() {
	c.ticks.Inc()
}

func (c *Collector) TickSkipped(stage pipeline.Stage, _ error) {
	c.skipped.WithLabelValues(string(stage)).Inc()
}

func (c *Collector) FrameUnchanged() {
	c.unchanged.Inc()
}

func (c *Collector) FrameEmitted(size int) {
	c.emitted.Inc()
	c.bytes.Add(float64(size))
	c.lastSize.Set(float64(size))
}

var _ pipeline.Observer = (*Collector)(nil)
