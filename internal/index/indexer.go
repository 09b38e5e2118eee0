// Package index runs an indexing session: it replays the event logs of every
// translation unit into a symbol graph and persists the result.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/abramin/symgraph/internal/config"
	"github.com/abramin/symgraph/internal/events"
	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/logging"
	"github.com/abramin/symgraph/internal/store"
	"github.com/abramin/symgraph/internal/telemetry"
)

// MetricsFile is written next to the index database after each successful
// run, in the Prometheus text format.
const MetricsFile = "metrics.prom"

// Indexer coordinates the indexing pipeline.
type Indexer struct {
	cfg        *config.Config
	projectDir string
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	onProgress func(current, total int)
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger. Diagnostics are logged through it at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(idx *Indexer) {
		if m != nil {
			idx.metrics = m
		}
	}
}

// WithProgress sets a callback invoked after each event log is replayed.
// It may be called from several goroutines.
func WithProgress(cb func(current, total int)) Option {
	return func(idx *Indexer) {
		idx.onProgress = cb
	}
}

// NewIndexer creates a new indexer for the given project directory.
func NewIndexer(cfg *config.Config, projectDir string, opts ...Option) *Indexer {
	absPath, err := filepath.Abs(projectDir)
	if err != nil {
		absPath = projectDir
	}
	idx := &Indexer{
		cfg:        cfg,
		projectDir: absPath,
		logger:     logging.NewDiscardLogger(),
		metrics:    telemetry.NewMetrics(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Result holds the results of an indexing run.
type Result struct {
	SessionID   string        `json:"session_id"`
	EventLogs   int           `json:"event_logs"`
	Events      int           `json:"events"`
	Skipped     int           `json:"skipped"`
	Dropped     int           `json:"dropped"`
	Symbols     int           `json:"symbols"`
	Edges       int           `json:"edges"`
	Dangling    int           `json:"dangling"`
	Diagnostics int           `json:"diagnostics"`
	Duration    time.Duration `json:"duration"`
	DBPath      string        `json:"db_path"`

	Graph *graph.Graph `json:"-"`
}

// Run executes the indexing pipeline over the event logs found under paths.
func (idx *Indexer) Run(ctx context.Context, paths []string) (res *Result, err error) {
	start := time.Now()
	sessionID := uuid.NewString()

	ctx, span := telemetry.Tracer().Start(ctx, "index.Run",
		trace.WithAttributes(
			attribute.String("symgraph.session_id", sessionID),
			attribute.String("symgraph.project_dir", idx.projectDir),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			idx.metrics.ObserveRun(time.Since(start), err)
		}
		span.End()
	}()

	logger := idx.logger.With("session", sessionID)

	loader := NewLoader(idx.cfg, idx.projectDir)
	if err := loader.Load(paths); err != nil {
		return nil, fmt.Errorf("discovering event logs: %w", err)
	}
	files := loader.Files()
	logger.Info("discovered event logs", "count", len(files))
	span.SetAttributes(attribute.Int("symgraph.event_logs", len(files)))

	builder, replay, err := idx.build(ctx, loader, logger)
	if err != nil {
		return nil, err
	}

	g := builder.Finalize()
	stats := g.Stats()
	idx.metrics.RecordReplay(replay.ByEvent, replay.Skipped)
	idx.metrics.RecordGraph(stats)

	if stats.Dangling > 0 {
		logger.Info("unresolved edges", "dangling", stats.Dangling)
	}

	st, err := store.Open(idx.cfg.DataDirFor(idx.projectDir))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.SaveGraph(g); err != nil {
		return nil, fmt.Errorf("saving graph: %w", err)
	}

	meta := map[string]string{
		store.MetaIndexedAt:  time.Now().Format(time.RFC3339),
		store.MetaProjectDir: idx.projectDir,
		store.MetaSessionID:  sessionID,
		store.MetaEventLogs:  strconv.Itoa(len(files)),
		store.MetaDuration:   strconv.FormatInt(time.Since(start).Milliseconds(), 10),
	}
	for key, value := range meta {
		if err := st.SetMetadata(key, value); err != nil {
			return nil, fmt.Errorf("storing metadata %s: %w", key, err)
		}
	}

	if err := st.WriteIndexJSON(); err != nil {
		return nil, fmt.Errorf("writing index.json: %w", err)
	}

	idx.metrics.ObserveRun(time.Since(start), nil)
	metricsPath := filepath.Join(idx.cfg.DataDirFor(idx.projectDir), MetricsFile)
	if err := idx.metrics.WriteTextfile(metricsPath); err != nil {
		return nil, fmt.Errorf("writing %s: %w", MetricsFile, err)
	}

	res = &Result{
		SessionID:   sessionID,
		EventLogs:   len(files),
		Events:      replay.Events,
		Skipped:     replay.Skipped,
		Dropped:     stats.DroppedEvents,
		Symbols:     stats.Symbols,
		Edges:       stats.Edges,
		Dangling:    stats.Dangling,
		Diagnostics: stats.Diagnostics,
		Duration:    time.Since(start),
		DBPath:      st.DBPath(),
		Graph:       g,
	}
	span.SetAttributes(
		attribute.Int("symgraph.symbols", res.Symbols),
		attribute.Int("symgraph.edges", res.Edges),
		attribute.Int("symgraph.dangling", res.Dangling),
	)
	logger.Info("index complete",
		"symbols", res.Symbols,
		"edges", res.Edges,
		"dangling", res.Dangling,
		"diagnostics", res.Diagnostics,
		"duration", res.Duration,
	)
	return res, nil
}

// Build replays the event logs under paths and returns the merged builder
// without touching the store.
func (idx *Indexer) Build(ctx context.Context, paths []string) (*graph.Builder, events.ReplayStats, error) {
	loader := NewLoader(idx.cfg, idx.projectDir)
	if err := loader.Load(paths); err != nil {
		return nil, events.ReplayStats{}, fmt.Errorf("discovering event logs: %w", err)
	}
	return idx.build(ctx, loader, idx.logger)
}

// build replays each event log on its own builder, up to cfg.Index.Workers at
// a time, then merges them in file order so ids do not depend on scheduling.
func (idx *Indexer) build(ctx context.Context, loader *Loader, logger *slog.Logger) (*graph.Builder, events.ReplayStats, error) {
	files := loader.Files()
	units := make([]*graph.Builder, len(files))
	stats := make([]events.ReplayStats, len(files))

	var done progressCounter
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, idx.cfg.Index.Workers))

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			rel := loader.RelPath(file)
			b := graph.NewBuilder(
				graph.WithDiagnosticSink(idx.metrics.DiagnosticSink(graph.LogSink(logger.With("file", rel)))),
				graph.WithMaxDiagnostics(idx.cfg.Index.MaxDiagnostics),
			)
			st, err := replayFile(gctx, file, b)
			if err != nil {
				return fmt.Errorf("replaying %s: %w", rel, err)
			}
			logger.Debug("replayed event log", "file", rel, "events", st.Events, "skipped", st.Skipped)
			if st.Skipped > 0 {
				logger.Warn("skipped undecodable event lines", "file", rel, "skipped", st.Skipped)
			}

			units[i] = b
			stats[i] = st
			if idx.onProgress != nil {
				idx.onProgress(done.inc(), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, events.ReplayStats{}, err
	}

	merged := graph.NewBuilder(
		graph.WithDiagnosticSink(idx.metrics.DiagnosticSink(graph.LogSink(logger))),
		graph.WithMaxDiagnostics(idx.cfg.Index.MaxDiagnostics),
	)
	total := events.ReplayStats{ByEvent: make(map[string]int)}
	for i, b := range units {
		merged.Merge(b)
		total.Events += stats[i].Events
		total.Skipped += stats[i].Skipped
		for event, n := range stats[i].ByEvent {
			total.ByEvent[event] += n
		}
	}
	return merged, total, nil
}

type progressCounter struct {
	n atomic.Int64
}

func (c *progressCounter) inc() int {
	return int(c.n.Add(1))
}

func replayFile(ctx context.Context, path string, client *graph.Builder) (events.ReplayStats, error) {
	if err := ctx.Err(); err != nil {
		return events.ReplayStats{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return events.ReplayStats{}, err
	}
	defer f.Close()
	return events.Replay(ctx, f, client)
}
