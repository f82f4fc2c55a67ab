package tracer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_RecordsStepsAndCountsWarningsAndErrors(t *testing.T) {
	tr := New("run-1", "user-1")
	tr.Info("fetch", "connected", nil)
	tr.Warn("ocr", "low confidence pass", map[string]any{"psm": 6})
	tr.Error("parse", "no totals found", nil)

	require.Len(t, tr.Steps, 3)
	assert.Equal(t, "info", tr.Steps[0].Level)
	assert.Equal(t, "warn", tr.Steps[1].Level)
	assert.Equal(t, "error", tr.Steps[2].Level)

	summary := tr.Summarize(tr.StartedAt.Add(5 * time.Second))
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 3, summary.StepCount)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, int64(5000), summary.DurationMs)
}

func TestTrace_MarshalStepsJSONRoundTrips(t *testing.T) {
	tr := New("run-2", "")
	tr.Info("fetch", "connected", map[string]any{"uid": float64(42)})

	out, err := tr.MarshalStepsJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"stage":"fetch"`)
	assert.Contains(t, out, `"message":"connected"`)
}

func TestRing_PutThenGetFindsByRunID(t *testing.T) {
	r := newRing(2)
	r.put(New("run-a", ""))

	tr, ok := r.get("run-a")
	require.True(t, ok)
	assert.Equal(t, "run-a", tr.RunID)

	_, ok = r.get("missing")
	assert.False(t, ok)
}

func TestRing_EvictsOldestPastCapacity(t *testing.T) {
	r := newRing(3)
	for i := 0; i < 5; i++ {
		r.put(New(fmt.Sprintf("run-%d", i), ""))
	}

	// run-0 and run-1 evicted; run-2, run-3, run-4 remain.
	_, ok := r.get("run-0")
	assert.False(t, ok)
	_, ok = r.get("run-1")
	assert.False(t, ok)

	for _, id := range []string{"run-2", "run-3", "run-4"} {
		_, ok := r.get(id)
		assert.True(t, ok, "expected %s to still be present", id)
	}
}

func TestRing_RepublishingSameRunIDDoesNotDuplicateOrderSlot(t *testing.T) {
	r := newRing(2)
	r.put(New("run-x", "user-a"))
	r.put(New("run-x", "user-b"))
	r.put(New("run-y", ""))

	// capacity 2: re-publishing run-x must not have consumed a second slot,
	// so run-y should still fit without evicting run-x.
	trX, ok := r.get("run-x")
	require.True(t, ok)
	assert.Equal(t, "user-b", trX.UserID)

	_, ok = r.get("run-y")
	assert.True(t, ok)
}

func TestPublishAndLookup_UseProcessWideRing(t *testing.T) {
	tr := New("published-run", "")
	Publish(tr)

	got, ok := Lookup("published-run")
	require.True(t, ok)
	assert.Equal(t, tr, got)

	_, ok = Lookup("never-published-run-id")
	assert.False(t, ok)
}
