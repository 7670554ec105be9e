// Package replay drives the simulation core from a recorded toolkit call
// stream. A trace is a JSON-lines file with one record per toolkit
// callback:
//
//	{"type":"begin_event","event":0}
//	{"type":"track_start","track":{"id":1,"parent":0,"particle":"proton","momentum":[0,0,400],"position":[0,0,0]}}
//	{"type":"step","track":1,"time":0.4,"position":[3,0,-98],"momentum":[0,0,395],"edep":1.2,"volume":{"name":"hodoscope1_segment_physical","copy":5}}
//	{"type":"track_end","track":1,"secondaries":[{"id":2,"parent":1,"particle":"e-","momentum":[1,0,2],"position":[3,0,-97]}]}
//	{"type":"end_event"}
//
// Volumes are referenced by placement name and copy number. A track
// without a volume is placed in the volume that contains its vertex.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/toolkit"
)

// ErrMalformedTrace is wrapped by every decoding error.
var ErrMalformedTrace = errors.New("replay: malformed trace")

const maxLineBytes = 4 << 20

type volumeRef struct {
	Name string `json:"name"`
	Copy int    `json:"copy"`
}

type trackJSON struct {
	ID       int        `json:"id"`
	Parent   int        `json:"parent"`
	Particle string     `json:"particle"`
	Momentum [3]float64 `json:"momentum"`
	Position [3]float64 `json:"position"`
	Volume   *volumeRef `json:"volume,omitempty"`
}

type recordJSON struct {
	Type string `json:"type"`

	Event int `json:"event"`

	// track_start carries a full track; step and track_end refer to one by id.
	Track json.RawMessage `json:"track,omitempty"`

	Time     float64    `json:"time"`
	Position [3]float64 `json:"position"`
	Momentum [3]float64 `json:"momentum"`
	Edep     float64    `json:"edep"`
	Volume   *volumeRef `json:"volume,omitempty"`

	Secondaries []trackJSON `json:"secondaries,omitempty"`
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }

// op is one recorded callback.
type op func(h toolkit.Hooks) error

// Event is the decoded call stream of one event.
type Event struct {
	ID int

	// Err is set when the event's records were malformed; such an event
	// is reported as aborted without being run.
	Err error

	ops []op
}

// Len returns the number of callbacks between begin and end of the event.
func (e *Event) Len() int { return len(e.ops) }

// Run replays the event against the hooks. The first error stops the
// replay and is returned; EndEvent is only called on success.
func (e *Event) Run(ctx context.Context, h toolkit.Hooks) error {
	if e.Err != nil {
		return e.Err
	}
	if err := h.BeginEvent(ctx, e.ID); err != nil {
		return err
	}
	for _, fn := range e.ops {
		if err := fn(h); err != nil {
			return err
		}
	}
	return h.EndEvent()
}

// Decoder reads events from a trace.
type Decoder struct {
	sc   *bufio.Scanner
	geo  *geometry.Detector
	line int
}

// NewDecoder reads a trace whose volumes refer to geo.
func NewDecoder(r io.Reader, geo *geometry.Detector) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{sc: sc, geo: geo}
}

func (d *Decoder) malformed(format string, v ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedTrace, d.line, fmt.Sprintf(format, v...))
}

func (d *Decoder) next() (*recordJSON, error) {
	for d.sc.Scan() {
		d.line++
		b := d.sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec recordJSON
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, d.malformed("%v", err)
		}
		return &rec, nil
	}
	if err := d.sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return nil, io.EOF
}

// Next returns the next event, or io.EOF after the last one. A malformed
// record inside an event yields that event with Err set; anything wrong
// outside an event is returned as an error.
func (d *Decoder) Next() (*Event, error) {
	rec, err := d.next()
	if err != nil {
		return nil, err
	}
	if rec.Type != "begin_event" {
		return nil, d.malformed("expected begin_event, got %q", rec.Type)
	}

	ev := &Event{ID: rec.Event}
	tracks := make(map[int]*toolkit.Track)
	for {
		rec, err := d.next()
		if errors.Is(err, io.EOF) {
			return nil, d.malformed("event %d not terminated", ev.ID)
		}
		if err != nil && !errors.Is(err, ErrMalformedTrace) {
			return nil, err
		}
		if err == nil && rec.Type == "end_event" {
			return ev, nil
		}
		if ev.Err != nil {
			continue
		}
		if err == nil {
			err = d.decodeOp(ev, tracks, rec)
		}
		if err != nil {
			ev.Err = err
			ev.ops = nil
		}
	}
}

func (d *Decoder) decodeOp(ev *Event, tracks map[int]*toolkit.Track, rec *recordJSON) error {
	switch rec.Type {
	case "track_start":
		var tj trackJSON
		if err := json.Unmarshal(rec.Track, &tj); err != nil {
			return d.malformed("track_start: %v", err)
		}
		track, ok := tracks[tj.ID]
		if !ok || tj.Particle != "" {
			var err error
			if track, err = d.track(tj); err != nil {
				return err
			}
			tracks[tj.ID] = track
		}
		ev.ops = append(ev.ops, func(h toolkit.Hooks) error { return h.TrackStarted(track) })

	case "step":
		id, err := d.trackID(rec.Track)
		if err != nil {
			return err
		}
		step := &toolkit.Step{
			Track: tracks[id],
			PreStepPoint: toolkit.StepPoint{
				GlobalTime: rec.Time,
				Position:   vec(rec.Position),
				Momentum:   vec(rec.Momentum),
			},
			TotalEnergyDeposit: rec.Edep,
		}
		switch {
		case rec.Volume != nil:
			p, ok := d.geo.Placement(rec.Volume.Name, rec.Volume.Copy)
			if !ok {
				return d.malformed("unknown volume %s/%d", rec.Volume.Name, rec.Volume.Copy)
			}
			step.PreStepPoint.Touchable.Placement = p
		default:
			p := d.geo.Locate(step.PreStepPoint.Position)
			if p == nil {
				return d.malformed("step of track %d names no volume and %v is outside the world", id, step.PreStepPoint.Position)
			}
			step.PreStepPoint.Touchable.Placement = p
		}
		ev.ops = append(ev.ops, func(h toolkit.Hooks) error { return h.ProcessStep(step) })

	case "track_end":
		id, err := d.trackID(rec.Track)
		if err != nil {
			return err
		}
		track, ok := tracks[id]
		if !ok {
			return d.malformed("track_end for unknown track %d", id)
		}
		secondaries := make([]*toolkit.Track, 0, len(rec.Secondaries))
		for _, sj := range rec.Secondaries {
			s, err := d.track(sj)
			if err != nil {
				return err
			}
			tracks[s.ID] = s
			secondaries = append(secondaries, s)
		}
		ev.ops = append(ev.ops, func(h toolkit.Hooks) error { return h.TrackFinished(track, secondaries) })

	default:
		return d.malformed("unexpected record type %q inside event %d", rec.Type, ev.ID)
	}
	return nil
}

func (d *Decoder) trackID(raw json.RawMessage) (int, error) {
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, d.malformed("track id: %v", err)
	}
	return id, nil
}

func (d *Decoder) track(tj trackJSON) (*toolkit.Track, error) {
	t := &toolkit.Track{
		ID:             tj.ID,
		ParentID:       tj.Parent,
		Particle:       tj.Particle,
		VertexMomentum: vec(tj.Momentum),
		VertexPosition: vec(tj.Position),
	}
	if tj.Volume != nil {
		p, ok := d.geo.Placement(tj.Volume.Name, tj.Volume.Copy)
		if !ok {
			return nil, d.malformed("unknown volume %s/%d for track %d", tj.Volume.Name, tj.Volume.Copy, tj.ID)
		}
		t.VertexVolume = p.Logical
	} else if p := d.geo.Locate(t.VertexPosition); p != nil {
		t.VertexVolume = p.Logical
	}
	return t, nil
}
