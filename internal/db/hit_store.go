package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
)

// ErrNotFound is returned when no stored row matches a lookup.
var ErrNotFound = errors.New("not found")

const (
	rolePrimary  = "primary"
	roleAncestor = "ancestor"
	roleDaughter = "daughter"
)

// Run is one row of sim_runs.
type Run struct {
	ID         string
	Version    string
	ConfigJSON string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Events     int
	Completed  int
	Aborted    int
	Records    int
}

// InsertRun records the start of a run.
func (db *DB) InsertRun(ctx context.Context, r Run) error {
	if r.ConfigJSON == "" {
		r.ConfigJSON = "{}"
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO sim_runs (run_id, version, config_json, started_unix_nanos) VALUES (?, ?, ?, ?)`,
		r.ID, r.Version, r.ConfigJSON, r.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun stores the final counters of a run. A non-zero StartedAt
// replaces the start stamped by InsertRun.
func (db *DB) FinishRun(ctx context.Context, r Run) error {
	var started sql.NullInt64
	if !r.StartedAt.IsZero() {
		started = sql.NullInt64{Int64: r.StartedAt.UnixNano(), Valid: true}
	}
	res, err := db.ExecContext(ctx, `
		UPDATE sim_runs
		   SET started_unix_nanos = COALESCE(?, started_unix_nanos),
		       finished_unix_nanos = ?, events = ?, completed = ?, aborted = ?, records = ?
		 WHERE run_id = ?`,
		started, r.FinishedAt.UnixNano(), r.Events, r.Completed, r.Aborted, r.Records, r.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// GetRun loads a run by id.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
	)
	err := db.QueryRowContext(ctx, `
		SELECT run_id, version, config_json, started_unix_nanos, finished_unix_nanos,
		       events, completed, aborted, records
		  FROM sim_runs WHERE run_id = ?`, id).
		Scan(&r.ID, &r.Version, &r.ConfigJSON, &started, &finished,
			&r.Events, &r.Completed, &r.Aborted, &r.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		r.FinishedAt = time.Unix(0, finished.Int64).UTC()
	}
	return r, nil
}

// Consume stores every collection of a finished event in one transaction.
func (db *DB) Consume(ctx context.Context, runID string, eventID int, store *hits.Store) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range store.Collections() {
		if err := insertCollection(ctx, tx, runID, eventID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertCollection stores one closed collection.
func (db *DB) InsertCollection(ctx context.Context, runID string, eventID int, c *hits.Collection) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertCollection(ctx, tx, runID, eventID, c); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCollection(ctx context.Context, tx *sql.Tx, runID string, eventID int, c *hits.Collection) error {
	if !c.Closed() {
		return fmt.Errorf("collection %s of event %d is still open", c.Key(), eventID)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO hit_collections (run_id, event_id, collection_key, collection_id, detector, records)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, eventID, c.Key(), c.ID(), c.Detector(), c.Len())
	if err != nil {
		return fmt.Errorf("insert collection %s of event %d: %w", c.Key(), eventID, err)
	}
	row, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, r := range c.Records() {
		if err := insertRecord(ctx, tx, row, i, r.Data()); err != nil {
			return fmt.Errorf("insert record %d of %s: %w", i, c.Key(), err)
		}
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, collectionRow int64, ordinal int, d hits.RecordData) error {
	logical := ""
	if d.Segment.Logical != nil {
		logical = d.Segment.Logical.Name
	}
	q := quat.Number(d.Segment.Rotation)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO hit_records (
			collection_row, ordinal, segment_id, logical_volume,
			translation_x, translation_y, translation_z,
			rotation_real, rotation_imag, rotation_jmag, rotation_kmag,
			incident_px, incident_py, incident_pz
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		collectionRow, ordinal, d.SegmentID, logical,
		d.Segment.Translation.X, d.Segment.Translation.Y, d.Segment.Translation.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		d.IncidentMomentum.X, d.IncidentMomentum.Y, d.IncidentMomentum.Z)
	if err != nil {
		return err
	}
	recordID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	particles, err := tx.PrepareContext(ctx, `
		INSERT INTO hit_particles (
			record_id, role, ordinal, generation, track_id, parent_id, particle_name,
			px, py, pz, x, y, z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer particles.Close()

	insertParticle := func(role string, i int, l lineage.Record) error {
		p, x := l.InitialMomentum, l.InitialPosition
		_, err := particles.ExecContext(ctx, recordID, role, i, l.Generation, l.TrackID, l.ParentID,
			l.ParticleName, p.X, p.Y, p.Z, x.X, x.Y, x.Z)
		return err
	}
	if err := insertParticle(rolePrimary, 0, d.Primary); err != nil {
		return err
	}
	for i, a := range d.PrimaryAncestors {
		if err := insertParticle(roleAncestor, i, a); err != nil {
			return err
		}
	}
	for i, l := range d.Daughters {
		if err := insertParticle(roleDaughter, i, l); err != nil {
			return err
		}
	}

	samples, err := tx.PrepareContext(ctx, `
		INSERT INTO hit_samples (record_id, ordinal, hit_time, energy_deposit, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer samples.Close()
	for i, s := range d.Samples {
		if _, err := samples.ExecContext(ctx, recordID, i, s.Time, s.EnergyDeposit,
			s.Position.X, s.Position.Y, s.Position.Z); err != nil {
			return err
		}
	}
	return nil
}

// GetCollection rebuilds a stored collection. Logical volumes are resolved
// against geo when it is non-nil; otherwise only their names survive.
func (db *DB) GetCollection(ctx context.Context, runID string, eventID int, key string, geo *geometry.Detector) (*hits.Collection, error) {
	var (
		row      int64
		id       int
		detector string
	)
	err := db.QueryRowContext(ctx, `
		SELECT collection_row, collection_id, detector
		  FROM hit_collections
		 WHERE run_id = ? AND event_id = ? AND collection_key = ?`,
		runID, eventID, key).Scan(&row, &id, &detector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s of event %d in run %s: %w", key, eventID, runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	records, ids, err := db.loadRecords(ctx, row, geo)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if err := db.loadParticles(ctx, ids[i], &records[i]); err != nil {
			return nil, err
		}
		if err := db.loadSamples(ctx, ids[i], &records[i]); err != nil {
			return nil, err
		}
	}
	return hits.RestoreCollection(detector, id, records), nil
}

func (db *DB) loadRecords(ctx context.Context, collectionRow int64, geo *geometry.Detector) ([]hits.RecordData, []int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT record_id, segment_id, logical_volume,
		       translation_x, translation_y, translation_z,
		       rotation_real, rotation_imag, rotation_jmag, rotation_kmag,
		       incident_px, incident_py, incident_pz
		  FROM hit_records
		 WHERE collection_row = ?
		 ORDER BY ordinal`, collectionRow)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	logicals := map[string]*geometry.LogicalVolume{}
	var (
		out []hits.RecordData
		ids []int64
	)
	for rows.Next() {
		var (
			d       hits.RecordData
			recID   int64
			logical string
			q       quat.Number
		)
		if err := rows.Scan(&recID, &d.SegmentID, &logical,
			&d.Segment.Translation.X, &d.Segment.Translation.Y, &d.Segment.Translation.Z,
			&q.Real, &q.Imag, &q.Jmag, &q.Kmag,
			&d.IncidentMomentum.X, &d.IncidentMomentum.Y, &d.IncidentMomentum.Z); err != nil {
			return nil, nil, err
		}
		d.Segment.Rotation = r3.Rotation(q)
		d.Segment.Logical = resolveLogical(logicals, geo, logical)
		out = append(out, d)
		ids = append(ids, recID)
	}
	return out, ids, rows.Err()
}

func resolveLogical(cache map[string]*geometry.LogicalVolume, geo *geometry.Detector, name string) *geometry.LogicalVolume {
	if lv, ok := cache[name]; ok {
		return lv
	}
	var lv *geometry.LogicalVolume
	if geo != nil {
		lv, _ = geo.Logical(name)
	}
	if lv == nil {
		lv = &geometry.LogicalVolume{Name: name}
	}
	cache[name] = lv
	return lv
}

func (db *DB) loadParticles(ctx context.Context, recordID int64, d *hits.RecordData) error {
	rows, err := db.QueryContext(ctx, `
		SELECT role, generation, track_id, parent_id, particle_name, px, py, pz, x, y, z
		  FROM hit_particles
		 WHERE record_id = ?
		 ORDER BY role, ordinal`, recordID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role string
			l    lineage.Record
		)
		if err := rows.Scan(&role, &l.Generation, &l.TrackID, &l.ParentID, &l.ParticleName,
			&l.InitialMomentum.X, &l.InitialMomentum.Y, &l.InitialMomentum.Z,
			&l.InitialPosition.X, &l.InitialPosition.Y, &l.InitialPosition.Z); err != nil {
			return err
		}
		switch role {
		case rolePrimary:
			d.Primary = l
		case roleAncestor:
			d.PrimaryAncestors = append(d.PrimaryAncestors, l)
		case roleDaughter:
			d.Daughters = append(d.Daughters, l)
		default:
			return fmt.Errorf("record %d: unknown particle role %q", recordID, role)
		}
	}
	return rows.Err()
}

func (db *DB) loadSamples(ctx context.Context, recordID int64, d *hits.RecordData) error {
	rows, err := db.QueryContext(ctx, `
		SELECT hit_time, energy_deposit, x, y, z
		  FROM hit_samples
		 WHERE record_id = ?
		 ORDER BY ordinal`, recordID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s hits.Sample
		if err := rows.Scan(&s.Time, &s.EnergyDeposit, &s.Position.X, &s.Position.Y, &s.Position.Z); err != nil {
			return err
		}
		d.Samples = append(d.Samples, s)
	}
	return rows.Err()
}

// CountRecords returns the number of hit records stored for a run.
func (db *DB) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(records), 0) FROM hit_collections WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// EventIDs lists the events stored for a run in ascending order.
func (db *DB) EventIDs(ctx context.Context, runID string) ([]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT event_id FROM hit_collections WHERE run_id = ? ORDER BY event_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
