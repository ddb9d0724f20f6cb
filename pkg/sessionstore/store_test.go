//nolint:thelper,funlen,lll // ok for tests
package sessionstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/processing/mistakes"
)

var base = time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecords() []model.MistakeRecord {
	return []model.MistakeRecord{
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base, TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base.Add(90 * time.Second), TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base.Add(180 * time.Second), TimeLoss: 0.25},
	}
}

func TestStore_RecordRoundTrip(t *testing.T) {
	s := testStore(t)
	for _, rec := range testRecords() {
		require.NoError(t, s.AppendRecord("sess-1", rec))
	}
	// records of other sessions stay invisible
	require.NoError(t, s.AppendRecord("sess-2",
		model.MistakeRecord{CornerID: "t2", CornerName: "Turn 2", Pattern: model.PatternOversteer, Timestamp: base, TimeLoss: 0.1}))

	got, err := s.LoadRecords("sess-1")
	require.NoError(t, err)
	if diff := cmp.Diff(testRecords(), got); diff != "" {
		t.Errorf("records not correct: %s", diff)
	}
}

// a reloaded session rebuilds tracker state from the persisted log
func TestStore_RebuildTracker(t *testing.T) {
	s := testStore(t)
	for _, rec := range testRecords() {
		require.NoError(t, s.AppendRecord("sess-1", rec))
	}
	loaded, err := s.LoadRecords("sess-1")
	require.NoError(t, err)

	tracker := mistakes.NewMistakeTracker(mistakes.WithSessionID("sess-1"))
	tracker.Replay(loaded)
	all := tracker.PersistentMistakes()
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].Frequency)
	assert.InDelta(t, 0.75, all[0].TotalTimeLoss, 1e-9)
}

func TestStore_SummaryRoundTrip(t *testing.T) {
	s := testStore(t)
	_, ok, err := s.LoadSummary("sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	summary := model.SessionSummary{
		SessionID:        "sess-1",
		TotalMistakes:    3,
		TotalTimeLoss:    0.75,
		Score:            99.25,
		ImprovementAreas: []string{"Turn 1"},
	}
	require.NoError(t, s.SaveSummary(summary))

	got, ok, err := s.LoadSummary("sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(summary, got); diff != "" {
		t.Errorf("summary not correct: %s", diff)
	}

	// saving again replaces the stored summary
	summary.TotalMistakes = 4
	require.NoError(t, s.SaveSummary(summary))
	got, _, err = s.LoadSummary("sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalMistakes)
}

func TestStore_BestLapRoundTrip(t *testing.T) {
	s := testStore(t)
	_, _, ok, err := s.LoadBestLap("sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	metrics := map[string]model.SegmentMetrics{
		"t1": {SegmentID: "t1", Lap: 4, MinSpeed: 30, Duration: 8 * time.Second, SampleCount: 120},
	}
	require.NoError(t, s.SaveBestLap("sess-1", 4, metrics))

	lap, got, ok, err := s.LoadBestLap("sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, lap)
	if diff := cmp.Diff(metrics, got); diff != "" {
		t.Errorf("best lap not correct: %s", diff)
	}
}
