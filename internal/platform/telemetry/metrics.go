package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the appliance's Prometheus collectors.
// The registry is flushed to a node-exporter textfile after every cycle;
// nothing listens on a socket. A nil *Metrics discards everything.
type Metrics struct {
	registry *prometheus.Registry
	textfile string

	commands            *prometheus.CounterVec
	dialogRounds        prometheus.Histogram
	quotes              prometheus.Gauge
	persistenceFailures *prometheus.CounterVec
	recognitionFailures prometheus.Counter
}

// NewMetrics registers collectors on a private registry.
// An empty textfile keeps metrics in memory only.
func NewMetrics(textfile string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		textfile: textfile,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotebox",
			Name:      "commands_total",
			Help:      "Utterances routed, by command.",
		}, []string{"command"}),
		dialogRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quotebox",
			Name:      "dialog_rounds",
			Help:      "Questions asked before an answer was confirmed or abandoned.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		quotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quotebox",
			Name:      "quotes",
			Help:      "Quotes currently stored.",
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quotebox",
			Name:      "persistence_failures_total",
			Help:      "Failed loads and saves of the quote library.",
		}, []string{"op"}),
		recognitionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quotebox",
			Name:      "recognition_failures_total",
			Help:      "Transcriptions that failed and were treated as silence.",
		}),
	}

	m.registry.MustRegister(m.commands, m.dialogRounds, m.quotes, m.persistenceFailures, m.recognitionFailures)

	return m
}

// CommandRouted counts one dispatched utterance.
func (m *Metrics) CommandRouted(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}

// DialogFinished observes how many rounds a confirmation dialog took.
func (m *Metrics) DialogFinished(rounds int) {
	if m == nil {
		return
	}
	m.dialogRounds.Observe(float64(rounds))
}

// SetQuotes records the library size.
func (m *Metrics) SetQuotes(n int) {
	if m == nil {
		return
	}
	m.quotes.Set(float64(n))
}

// PersistenceFailed counts a failed "load" or "save".
func (m *Metrics) PersistenceFailed(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}

// RecognitionFailed counts a transcription error.
func (m *Metrics) RecognitionFailed() {
	if m == nil {
		return
	}
	m.recognitionFailures.Inc()
}

// Registry exposes the registry for gathering in tests and tools.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Flush writes the current values to the textfile, if one is configured.
func (m *Metrics) Flush() error {
	if m == nil || m.textfile == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}

	return nil
}
