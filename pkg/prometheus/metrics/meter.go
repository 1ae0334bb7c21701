package metrics

import (
	"github.com/Borislavv/purgeable-shm/pkg/prometheus/metrics/keyword"
	"github.com/VictoriaMetrics/metrics"
)

// Meter is the command-surface telemetry: counters for pin/unpin traffic and
// purge results. The gauges (reclaimable bytes, queue length, open regions)
// are registered as callbacks at app wiring, they read live state directly.
type Meter interface {
	IncPins()
	IncUnpins()
	IncPinStatusChecks()
	IncErrored()
	IncPurgePasses()
	AddPurgedBytes(n int64)
}

type Metrics struct{}

func New() *Metrics { return &Metrics{} }

func (m *Metrics) IncPins() {
	metrics.GetOrCreateCounter(keyword.Pins).Inc()
}

func (m *Metrics) IncUnpins() {
	metrics.GetOrCreateCounter(keyword.Unpins).Inc()
}

func (m *Metrics) IncPinStatusChecks() {
	metrics.GetOrCreateCounter(keyword.PinStatusChecks).Inc()
}

func (m *Metrics) IncErrored() {
	metrics.GetOrCreateCounter(keyword.Errored).Inc()
}

func (m *Metrics) IncPurgePasses() {
	metrics.GetOrCreateCounter(keyword.PurgePasses).Inc()
}

func (m *Metrics) AddPurgedBytes(n int64) {
	if n > 0 {
		metrics.GetOrCreateCounter(keyword.PurgedBytes).Add(int(n))
	}
}
