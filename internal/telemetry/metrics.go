// Package telemetry holds the Prometheus metrics and the tracer used by
// indexing runs.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/abramin/symgraph/internal/graph"
)

const (
	namespace  = "symgraph"
	tracerName = "symgraph.index"
)

// Metrics groups every collector symgraph exports. Each instance owns its
// registry so tests and embedded uses never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	// EventsTotal counts replayed events. Labels: event.
	EventsTotal *prometheus.CounterVec
	// SkippedTotal counts undecodable or unknown event log lines.
	SkippedTotal prometheus.Counter
	// DroppedTotal counts malformed events rejected by the builder.
	DroppedTotal prometheus.Counter
	// DiagnosticsTotal counts diagnostics. Labels: code.
	DiagnosticsTotal *prometheus.CounterVec

	// Symbols, Edges and DanglingEdges describe the last finalized graph.
	Symbols       *prometheus.GaugeVec
	Edges         *prometheus.GaugeVec
	DanglingEdges prometheus.Gauge

	// RunDuration measures whole indexing runs. Labels: status.
	RunDuration *prometheus.HistogramVec

	// HTTPRequests counts API requests. Labels: method, route, status.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration measures API request latency. Labels: method, route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total events replayed into the graph builder by event name.",
		}, []string{"event"}),
		SkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "skipped_lines_total",
			Help:      "Total event log lines that could not be decoded or named an unknown event.",
		}),
		DroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "dropped_events_total",
			Help:      "Total malformed events dropped by the graph builder.",
		}),
		DiagnosticsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "diagnostics_total",
			Help:      "Total ingest diagnostics by code.",
		}, []string{"code"}),
		Symbols: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "symbols",
			Help:      "Symbols in the last finalized graph by kind.",
		}, []string{"kind"}),
		Edges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "edges",
			Help:      "Edges in the last finalized graph by kind.",
		}, []string{"kind"}),
		DanglingEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "dangling_edges",
			Help:      "Edges whose target was never declared in the last finalized graph.",
		}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "run_duration_seconds",
			Help:      "Duration of indexing runs in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total API requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordReplay adds one replay's event counts.
func (m *Metrics) RecordReplay(byEvent map[string]int, skipped int) {
	for event, n := range byEvent {
		m.EventsTotal.WithLabelValues(event).Add(float64(n))
	}
	m.SkippedTotal.Add(float64(skipped))
}

// RecordGraph sets the graph gauges from a finalized graph's stats.
// Diagnostics are counted as they are reported; see DiagnosticSink.
func (m *Metrics) RecordGraph(stats graph.Stats) {
	symbols := make(map[string]int, len(stats.SymbolsByKind))
	for kind, n := range stats.SymbolsByKind {
		symbols[string(kind)] = n
	}
	edges := make(map[string]int, len(stats.EdgesByKind))
	for kind, n := range stats.EdgesByKind {
		edges[string(kind)] = n
	}
	m.SetGraphGauges(symbols, edges, stats.Dangling)
	m.DroppedTotal.Add(float64(stats.DroppedEvents))
}

// SetGraphGauges sets the symbol, edge and dangling gauges. Every known kind
// is set, so kinds absent from the maps read zero.
func (m *Metrics) SetGraphGauges(symbolsByKind, edgesByKind map[string]int, dangling int) {
	for _, kind := range graph.AllSymbolKinds {
		m.Symbols.WithLabelValues(string(kind)).Set(float64(symbolsByKind[string(kind)]))
	}
	for _, kind := range graph.AllEdgeKinds {
		m.Edges.WithLabelValues(string(kind)).Set(float64(edgesByKind[string(kind)]))
	}
	m.DanglingEdges.Set(float64(dangling))
}

// DiagnosticSink counts every diagnostic by code, including those past a
// builder's retention cap, then forwards it to next when next is not nil.
func (m *Metrics) DiagnosticSink(next graph.DiagnosticSink) graph.DiagnosticSink {
	return graph.DiagnosticSinkFunc(func(d graph.Diagnostic) {
		m.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
		if next != nil {
			next.Report(d)
		}
	})
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// WriteTextfile writes the registry to path in the text exposition format,
// for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// ObserveRun records how long a run took.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Tracer returns the tracer for indexing spans from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
