package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/field"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/replay"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/timeutil"
)

// EventSource yields events until io.EOF.
type EventSource interface {
	Next() (*replay.Event, error)
}

// Sink receives the closed hit store of every completed event. It is
// called from several workers at once.
type Sink interface {
	Consume(ctx context.Context, runID string, eventID int, store *hits.Store) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, runID string, eventID int, store *hits.Store) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, runID string, eventID int, store *hits.Store) error {
	return f(ctx, runID, eventID, store)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Workers       int
	Indexed       bool
	PoolCapacity  int
	PrintProgress int       // base interval of progress lines; 0 disables them
	Print         io.Writer // if set, every completed event's hits are dumped here
	Field         field.Solenoid
	Metrics       *Metrics
	Clock         timeutil.Clock
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Events     int
	Completed  int
	Aborted    int
	Records    int
}

// Runner processes events in parallel, one event per worker at a time.
type Runner struct {
	cfg  RunnerConfig
	geo  *geometry.Detector
	reg  *hits.Registry
	sink Sink

	mu      sync.Mutex
	summary Summary
}

// NewRunner creates a runner. sink may be nil.
func NewRunner(geo *geometry.Detector, sink Sink, cfg RunnerConfig) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Runner{cfg: cfg, geo: geo, reg: Registry(geo), sink: sink}
}

// Registry returns the run-wide collection registry.
func (r *Runner) Registry() *hits.Registry { return r.reg }

// Run processes every event from src. An event that fails is aborted and
// counted, and the run moves on; a source or sink error stops the run.
// Cancelling ctx stops dispatching new events.
func (r *Runner) Run(ctx context.Context, src EventSource) (Summary, error) {
	r.summary = Summary{RunID: uuid.NewString(), StartedAt: r.cfg.Clock.Now()}
	return r.run(ctx, src)
}

// RunWithID is Run with a caller-chosen run id.
func (r *Runner) RunWithID(ctx context.Context, runID string, src EventSource) (Summary, error) {
	r.summary = Summary{RunID: runID, StartedAt: r.cfg.Clock.Now()}
	return r.run(ctx, src)
}

func (r *Runner) run(ctx context.Context, src EventSource) (Summary, error) {
	workers := make(chan *Worker, r.cfg.Workers)
	for i := 0; i < r.cfg.Workers; i++ {
		w, err := NewWorker(r.geo, r.reg, WorkerOptions{
			Indexed:      r.cfg.Indexed,
			PoolCapacity: r.cfg.PoolCapacity,
			Metrics:      r.cfg.Metrics,
		})
		if err != nil {
			return r.summary, err
		}
		workers <- w
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	var srcErr error
	for gctx.Err() == nil {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			srcErr = fmt.Errorf("read events: %w", err)
			break
		}
		g.Go(func() error {
			w := <-workers
			defer func() { workers <- w }()
			return r.process(gctx, w, ev)
		})
	}

	err := g.Wait()
	if err == nil {
		err = srcErr
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FinishedAt = r.cfg.Clock.Now()
	return r.summary, err
}

func (r *Runner) process(ctx context.Context, w *Worker, ev *replay.Event) error {
	if ctx.Err() != nil {
		return nil
	}
	start := r.cfg.Clock.Now()
	if err := ev.Run(ctx, w); err != nil {
		w.Abort()
		monitoring.Abortf("event %d aborted: %v", ev.ID, err)
		r.cfg.Metrics.observeEvent("aborted", r.cfg.Clock.Since(start).Seconds())
		r.mu.Lock()
		r.summary.Events++
		r.summary.Aborted++
		r.mu.Unlock()
		return nil
	}

	store := w.Store()
	if r.sink != nil {
		if err := r.sink.Consume(ctx, r.summary.RunID, ev.ID, store); err != nil {
			return fmt.Errorf("event %d: %w", ev.ID, err)
		}
	}
	r.cfg.Metrics.observeEvent("ok", r.cfg.Clock.Since(start).Seconds())
	r.cfg.Metrics.observeStore(store)

	records := 0
	for _, c := range store.Collections() {
		records += c.Len()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Events++
	r.summary.Completed++
	r.summary.Records += records
	if shouldReport(ev.ID, r.cfg.PrintProgress) {
		monitoring.Logf("event %d: %d hit records", ev.ID, records)
	}
	if r.cfg.Print != nil {
		if err := PrintEvent(r.cfg.Print, ev.ID, store, r.cfg.Field); err != nil {
			return fmt.Errorf("print event %d: %w", ev.ID, err)
		}
	}
	return nil
}

// shouldReport reports progress every base events at first, widening the
// interval to the current power of ten as the event count grows.
func shouldReport(eventID, base int) bool {
	if base <= 0 {
		return false
	}
	interval := base
	if eventID > 0 {
		if p := int(math.Pow(10, math.Floor(math.Log10(float64(eventID))))); p > interval {
			interval = p
		}
	}
	return eventID%interval == 0
}
