package lineage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

func muteLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	t.Cleanup(func() { monitoring.SetLogger(original) })
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func assertGenerationInvariant(t *testing.T, tr *Tracker, trackID int) {
	t.Helper()
	cur, err := tr.Current(trackID)
	require.NoError(t, err)
	assert.Len(t, tr.AncestorsOf(trackID), cur.Generation, "track %d", trackID)
}

func TestStartRootTrack(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	rec := tr.Start(1, 0, "kaon-", r3.Vec{Z: 1000}, r3.Vec{})
	assert.Equal(t, 0, rec.Generation)
	assert.Equal(t, 1, rec.TrackID)
	assert.Equal(t, 0, rec.ParentID)
	assert.Equal(t, "kaon-", rec.ParticleName)
	assert.True(t, rec.IsValid())

	cur, err := tr.Current(1)
	require.NoError(t, err)
	assert.Equal(t, rec, cur)
	assert.Empty(t, tr.AncestorsOf(1))
	assertGenerationInvariant(t, tr, 1)
}

func TestFinishPropagatesToSecondaries(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	lambda := tr.Start(1, 0, "lambda", r3.Vec{Z: 300}, r3.Vec{})
	tr.Finish(1, []int{2, 3})

	// Before the secondaries start they carry the parent's identity.
	cur, err := tr.Current(2)
	require.NoError(t, err)
	assert.Equal(t, lambda, cur)
	assertGenerationInvariant(t, tr, 2)

	proton := tr.Start(2, 1, "proton", r3.Vec{Z: 250}, r3.Vec{Z: 40})
	assert.Equal(t, 1, proton.Generation)
	assert.Equal(t, []Record{lambda}, tr.AncestorsOf(2))

	pion := tr.Start(3, 1, "pi-", r3.Vec{Z: 80}, r3.Vec{Z: 40})
	assert.Equal(t, 1, pion.Generation)
	assert.Equal(t, []Record{lambda}, tr.AncestorsOf(3))

	// Third generation.
	tr.Finish(3, []int{4})
	muon := tr.Start(4, 3, "mu-", r3.Vec{X: 30}, r3.Vec{Z: 90})
	assert.Equal(t, 2, muon.Generation)
	assert.Equal(t, []Record{lambda, pion}, tr.AncestorsOf(4))

	for _, id := range []int{1, 2, 3, 4} {
		assertGenerationInvariant(t, tr, id)
	}
}

func TestStartReusedTrackIDArchivesIdentity(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	first := tr.Start(5, 0, "sigma0", r3.Vec{}, r3.Vec{})
	second := tr.Start(5, 0, "lambda", r3.Vec{}, r3.Vec{})

	assert.Equal(t, 1, second.Generation)
	assert.Equal(t, []Record{first}, tr.AncestorsOf(5))
	assertGenerationInvariant(t, tr, 5)
}

func TestCurrentNotFound(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	rec, err := tr.Current(42)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Invalid, rec)
	assert.False(t, rec.IsValid())
}

func TestAncestorsOfUnknownWarns(t *testing.T) {
	lines := muteLogs(t)
	tr := NewTracker()

	assert.Nil(t, tr.AncestorsOf(9))
	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], "warning: lineage.AncestorsOf(9)")
}

func TestFinishUnknownTrackWarns(t *testing.T) {
	lines := muteLogs(t)
	tr := NewTracker()

	tr.Finish(7, []int{8})
	assert.False(t, tr.Known(8))
	require.Len(t, *lines, 1)
	assert.Contains(t, (*lines)[0], "lineage.Finish(7)")

	// No secondaries is not a failure.
	tr.Finish(7, nil)
	assert.Len(t, *lines, 1)
}

func TestAncestorsOfReturnsCopy(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.Start(1, 0, "lambda", r3.Vec{}, r3.Vec{})
	tr.Finish(1, []int{2})
	tr.Start(2, 1, "proton", r3.Vec{}, r3.Vec{})

	anc := tr.AncestorsOf(2)
	anc[0].ParticleName = "mutated"
	assert.Equal(t, "lambda", tr.AncestorsOf(2)[0].ParticleName)
}

func TestSecondaryChainsDoNotAlias(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.Start(1, 0, "lambda", r3.Vec{}, r3.Vec{})
	tr.Finish(1, []int{2, 3})
	tr.Start(2, 1, "proton", r3.Vec{}, r3.Vec{})
	tr.Start(3, 1, "pi-", r3.Vec{}, r3.Vec{})

	tr.Finish(2, []int{4})
	tr.Start(4, 2, "gamma", r3.Vec{}, r3.Vec{})

	assert.Len(t, tr.AncestorsOf(3), 1)
	assert.Len(t, tr.AncestorsOf(4), 2)
}

func TestResetIsolatesEvents(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.Start(1, 0, "lambda", r3.Vec{}, r3.Vec{})
	tr.Finish(1, []int{2})
	tr.Start(2, 1, "proton", r3.Vec{}, r3.Vec{})
	require.Equal(t, 2, tr.Len())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.Known(2))

	// Same ids in the next event start from scratch, reusing pooled chains.
	rec := tr.Start(2, 0, "neutron", r3.Vec{}, r3.Vec{})
	assert.Equal(t, 0, rec.Generation)
	assert.Empty(t, tr.AncestorsOf(2))
	assertGenerationInvariant(t, tr, 2)
}

func TestRecordString(t *testing.T) {
	rec := Record{Generation: 1, TrackID: 2, ParentID: 1, ParticleName: "proton"}
	assert.Equal(t, "track 2 (proton) parent=1 generation=1", rec.String())
}
