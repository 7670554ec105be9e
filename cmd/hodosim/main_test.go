package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/config"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/db"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/fsutil"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/timeutil"
)

func traceEvent(id int) string {
	return fmt.Sprintf(`{"type":"begin_event","event":%d}
{"type":"track_start","track":{"id":1,"parent":0,"particle":"proton","momentum":[0,0,400],"position":[0,0,0]}}
{"type":"step","track":1,"time":1,"position":[5,0,-100],"momentum":[0,0,400],"edep":2,"volume":{"name":"hodoscope1_segment_physical","copy":5}}
{"type":"step","track":1,"time":1.7,"position":[5,0,100],"momentum":[0,0,398],"edep":%g,"volume":{"name":"hodoscope2_segment_physical","copy":5}}
{"type":"track_end","track":1,"secondaries":[]}
{"type":"end_event"}
`, id, 1.9+0.1*float64(id))
}

func traceFS(t *testing.T, events int) *fsutil.MemoryFileSystem {
	t.Helper()
	var b strings.Builder
	for i := 0; i < events; i++ {
		b.WriteString(traceEvent(i))
	}
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/traces/run.jsonl", []byte(b.String()))
	return mfs
}

func TestReplayStoresHits(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "hits.db")
	var out bytes.Buffer
	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)
	clock.AutoAdvance(time.Second)

	err := runReplay(context.Background(), traceFS(t, 3), clock,
		[]string{"-trace", "/traces/run.jsonl", "-db", dbPath, "-workers", "2", "-index"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "3 events, 3 completed, 0 aborted, 6 hit records")

	runID := strings.Fields(strings.TrimPrefix(out.String(), "run "))[0]
	runID = strings.TrimSuffix(runID, ":")

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	run, err := database.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Completed)
	assert.False(t, run.FinishedAt.IsZero())
	// The stored run spans the same instants as the printed duration.
	assert.True(t, run.StartedAt.Equal(base.Add(time.Second)), "started %v", run.StartedAt)
	assert.Contains(t, out.String(), fmt.Sprintf(" in %s\n", run.FinishedAt.Sub(run.StartedAt)))

	n, err := database.CountRecords(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	ids, err := database.EventIDs(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)

	c, err := database.GetCollection(ctx, runID, 1, hits.CollectionKey(geometry.Hodoscope2), geometry.MustDefault())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 5, c.At(0).SegmentID())
	assert.InDelta(t, 2.0, c.At(0).TotalEnergyDeposit(), 1e-12)
}

func TestReplayPrintWithoutDB(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer

	err := runReplay(context.Background(), traceFS(t, 1), timeutil.RealClock{},
		[]string{"-trace", "/traces/run.jsonl", "-no-db", "-print"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "=== event 0 ===")
	assert.Contains(t, out.String(), "1 events, 1 completed")
}

func TestReplayErrors(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	ctx := context.Background()
	mfs := fsutil.NewMemoryFileSystem()

	assert.ErrorContains(t, runReplay(ctx, mfs, timeutil.RealClock{}, nil, &out), "-trace is required")
	assert.ErrorContains(t, runReplay(ctx, mfs, timeutil.RealClock{}, []string{"-trace", "/missing.jsonl", "-no-db"}, &out), "failed to open trace")
	assert.Error(t, runReplay(ctx, mfs, timeutil.RealClock{}, []string{"-trace", "/x", "-config", "settings.yaml"}, &out))
	assert.Error(t, runReplay(ctx, mfs, timeutil.RealClock{}, []string{"-bogus"}, &out))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"shot", "phase_space"} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()
			mfs := fsutil.NewMemoryFileSystem()
			var out bytes.Buffer
			require.NoError(t, runGenerate(mfs, []string{"-mode", mode, "-n", "4", "-seed", "7", "-o", "/out/primaries.jsonl"}, &out))

			data, err := mfs.ReadFile("/out/primaries.jsonl")
			require.NoError(t, err)

			var events []int
			sc := bufio.NewScanner(bytes.NewReader(data))
			for sc.Scan() {
				var ev struct {
					Event     int               `json:"event"`
					Primaries []json.RawMessage `json:"primaries"`
				}
				require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
				assert.NotEmpty(t, ev.Primaries)
				events = append(events, ev.Event)
			}
			assert.Equal(t, []int{0, 1, 2, 3}, events)
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	args := []string{"-mode", "shot", "-n", "3", "-seed", "11"}
	require.NoError(t, runGenerate(fsutil.NewMemoryFileSystem(), args, &a))
	require.NoError(t, runGenerate(fsutil.NewMemoryFileSystem(), args, &b))
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, 3, strings.Count(a.String(), "\n"))
}

func TestGenerateExplicitZeroFlags(t *testing.T) {
	t.Parallel()
	gen := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		require.NoError(t, runGenerate(fsutil.NewMemoryFileSystem(), append([]string{"-mode", "shot", "-n", "2"}, args...), &out))
		return out.String()
	}

	configured := gen()
	assert.Equal(t, configured, gen("-seed", fmt.Sprint(config.DefaultSimConfig().GetSeed())))
	zero := gen("-seed", "0")
	assert.NotEqual(t, configured, zero, "-seed 0 selects seed zero")
	assert.Equal(t, zero, gen("-seed", "0"))

	assert.Empty(t, gen("-n", "0"))

	var out bytes.Buffer
	assert.ErrorContains(t, runGenerate(fsutil.NewMemoryFileSystem(), []string{"-n", "-1"}, &out), "must not be negative")
}

func TestGenerateUnknownMode(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	assert.ErrorContains(t, runGenerate(fsutil.NewMemoryFileSystem(), []string{"-mode", "cosmic"}, &out), "unknown generator mode")
}

func TestMigrateCommand(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hits.db")
	var out bytes.Buffer

	require.NoError(t, runMigrate([]string{"-db", path, "up"}, &out))
	require.NoError(t, runMigrate([]string{"-db", path, "status"}, &out))
	assert.Contains(t, out.String(), "version 1 dirty=false")
	assert.Error(t, runMigrate([]string{"-db", path}, &out))
}

func TestMigrateDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	var out bytes.Buffer

	require.NoError(t, runMigrate([]string{"up"}, &out))
	_, err := os.Stat(filepath.Join(dir, config.DefaultSimConfig().GetDBPath()))
	require.NoError(t, err, "migrate without -db writes the configured database file")

	out.Reset()
	require.NoError(t, runMigrate([]string{"status"}, &out))
	assert.Contains(t, out.String(), "version 1 dirty=false")

	assert.ErrorIs(t, runMigrate([]string{"-db", "", "up"}, &out), db.ErrNoPath)
}
