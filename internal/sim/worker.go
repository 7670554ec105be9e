// Package sim runs events through the hit aggregation core: a Worker is the
// per-event context the toolkit calls into, and a Runner spreads events
// over a fixed set of workers.
package sim

import (
	"context"
	"fmt"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/sd"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/toolkit"
)

// WorkerOptions configure a Worker.
type WorkerOptions struct {
	Indexed      bool // use the track index instead of linear scans
	PoolCapacity int  // idle hit records kept between events
	Metrics      *Metrics
}

// Worker owns everything one event needs: lineage tracker, record pool,
// aggregator, sensitive detectors and the event's hit store. A Worker
// handles one event at a time and is never shared between goroutines.
type Worker struct {
	tracker    *lineage.Tracker
	pool       *hits.Pool
	aggregator *hits.Aggregator
	detectors  map[string]*sd.Hodoscope
	metrics    *Metrics

	store     *hits.Store
	eventID   int
	inEvent   bool
	lastReuse int
}

var _ toolkit.Hooks = (*Worker)(nil)

// NewWorker creates a worker with one sensitive detector per sensitive
// detector name in geo. reg must hold the key of each.
func NewWorker(geo *geometry.Detector, reg *hits.Registry, opts WorkerOptions) (*Worker, error) {
	tracker := lineage.NewTracker()
	pool := hits.NewPool(opts.PoolCapacity)
	w := &Worker{
		tracker:    tracker,
		pool:       pool,
		aggregator: hits.NewAggregator(tracker, pool, opts.Indexed),
		detectors:  make(map[string]*sd.Hodoscope),
		metrics:    opts.Metrics,
	}
	for _, name := range geo.SensitiveDetectors() {
		h, err := sd.NewHodoscope(name, w.aggregator, reg)
		if err != nil {
			return nil, err
		}
		w.detectors[name] = h
	}
	return w, nil
}

// Registry returns a registry holding the collection key of every
// sensitive detector in geo.
func Registry(geo *geometry.Detector) *hits.Registry {
	names := geo.SensitiveDetectors()
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = hits.CollectionKey(n)
	}
	return hits.NewRegistry(keys...)
}

// BeginEvent recycles the previous event's records, resets the tracker and
// opens a fresh collection per detector.
func (w *Worker) BeginEvent(_ context.Context, eventID int) error {
	w.release()
	w.tracker.Reset()
	w.store = hits.NewStore()
	w.eventID = eventID
	for _, h := range w.detectors {
		if err := h.Initialize(w.store); err != nil {
			return err
		}
	}
	w.inEvent = true
	return nil
}

// TrackStarted assigns the track its lineage identity.
func (w *Worker) TrackStarted(track *toolkit.Track) error {
	if track == nil || track.ID <= 0 {
		return fmt.Errorf("%w: track started without a valid track", hits.ErrFatalInconsistency)
	}
	w.tracker.Start(track.ID, track.ParentID, track.Particle, track.VertexMomentum, track.VertexPosition)
	return nil
}

// ProcessStep hands a step to the detector owning the touched volume.
// Steps in passive volumes are ignored.
func (w *Worker) ProcessStep(step *toolkit.Step) error {
	if !w.inEvent {
		return fmt.Errorf("%w: step delivered outside an event", hits.ErrFatalInconsistency)
	}
	lv := step.PreStepPoint.Touchable.Logical()
	if lv == nil {
		return fmt.Errorf("%w: step in event %d has no touched volume", hits.ErrFatalInconsistency, w.eventID)
	}
	if !lv.IsSensitive() {
		return nil
	}
	h, ok := w.detectors[lv.SensitiveDetector]
	if !ok {
		return fmt.Errorf("%w: no detector %q for volume %s", hits.ErrFatalInconsistency, lv.SensitiveDetector, lv.Name)
	}
	outcome, err := h.ProcessHits(step)
	if err != nil {
		return err
	}
	w.metrics.observeStep(outcome)
	return nil
}

// TrackFinished seeds the lineage of each secondary from the finished track.
func (w *Worker) TrackFinished(track *toolkit.Track, secondaries []*toolkit.Track) error {
	if track == nil {
		return fmt.Errorf("%w: track finished without a valid track", hits.ErrFatalInconsistency)
	}
	ids := make([]int, 0, len(secondaries))
	for _, s := range secondaries {
		if s != nil {
			ids = append(ids, s.ID)
		}
	}
	w.tracker.Finish(track.ID, ids)
	return nil
}

// EndEvent closes every collection; Store stays readable until the next
// BeginEvent.
func (w *Worker) EndEvent() error {
	if !w.inEvent {
		return fmt.Errorf("%w: end of event without a begin", hits.ErrFatalInconsistency)
	}
	w.store.CloseAll()
	w.inEvent = false
	return nil
}

// Abort discards the current event.
func (w *Worker) Abort() {
	w.release()
	w.tracker.Reset()
	w.inEvent = false
}

// Store returns the hit store of the current or last completed event.
func (w *Worker) Store() *hits.Store { return w.store }

// EventID returns the id of the current or last event.
func (w *Worker) EventID() int { return w.eventID }

func (w *Worker) release() {
	if w.store != nil {
		w.store.Release(w.pool)
		w.store = nil
	}
	_, reuses := w.pool.Stats()
	w.metrics.observeReuse(reuses - w.lastReuse)
	w.lastReuse = reuses
}
