//nolint:thelper,funlen,lll // ok for tests
package mistakes

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

var base = time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

func lateBrake(timeLoss float64) *model.DeviationAnalysis {
	return &model.DeviationAnalysis{
		CornerID: "t1",
		TimeLoss: timeLoss,
		Patterns: []model.PatternMatch{
			{Pattern: model.PatternLateBrake, Confidence: 0.8},
		},
		Priority: model.PriorityHigh,
	}
}

func newTestTracker() *MistakeTracker {
	return NewMistakeTracker(
		WithSessionID("sess-1"),
		WithClock(func() time.Time { return base }),
	)
}

func TestMistakeTracker_PersistenceThreshold(t *testing.T) {
	tr := newTestTracker()
	tr.Record("t1", "Turn 1", lateBrake(0.25))
	tr.Record("t1", "Turn 1", lateBrake(0.25))
	assert.Empty(t, tr.PersistentMistakes())

	tr.Record("t1", "Turn 1", lateBrake(0.25))
	want := []model.PersistentMistakePattern{
		{
			CornerID:      "t1",
			CornerName:    "Turn 1",
			Pattern:       model.PatternLateBrake,
			Frequency:     3,
			TotalTimeLoss: 0.75,
			AvgTimeLoss:   0.25,
			Trend:         model.TrendStable,
			Priority:      model.PriorityHigh,
		},
	}
	if diff := cmp.Diff(want, tr.PersistentMistakes()); diff != "" {
		t.Errorf("persistent mistakes not correct: %s", diff)
	}
	assert.Len(t, tr.Records(), 3)
}

func TestMistakeTracker_Trend(t *testing.T) {
	tests := []struct {
		name   string
		losses []float64
		want   model.Trend
	}{
		{name: "worsening", losses: []float64{0.1, 0.2, 0.3}, want: model.TrendWorsening},
		{name: "improving", losses: []float64{0.3, 0.2, 0.1}, want: model.TrendImproving},
		{name: "mixed", losses: []float64{0.1, 0.3, 0.2}, want: model.TrendStable},
		{name: "too few", losses: []float64{0.1, 0.2}, want: model.TrendStable},
		{name: "window ignores older", losses: []float64{0.9, 0.1, 0.2, 0.3}, want: model.TrendWorsening},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			for _, loss := range tt.losses {
				tr.Record("t1", "Turn 1", lateBrake(loss))
			}
			all := tr.PersistentMistakes()
			if len(tt.losses) < 3 {
				assert.Empty(t, all)
				return
			}
			assert.Equal(t, tt.want, all[0].Trend)
		})
	}
}

func TestMistakeTracker_SessionSummary(t *testing.T) {
	tr := newTestTracker()
	for range 3 {
		tr.Record("t1", "Turn 1", lateBrake(0.25))
	}
	summary := tr.SessionSummary()
	assert.Equal(t, "sess-1", summary.SessionID)
	assert.Equal(t, 3, summary.TotalMistakes)
	assert.InDelta(t, 0.75, summary.TotalTimeLoss, 1e-9)
	assert.InDelta(t, 99.25, summary.Score, 1e-9)
	assert.Equal(t, []string{"Turn 1"}, summary.ImprovementAreas)
	assert.Equal(t,
		[]string{"Work on braking too late at Turn 1 (3 times, 0.75s total)"},
		summary.Recommendations)

	// read-only: a second generation is identical
	if diff := cmp.Diff(summary, tr.SessionSummary()); diff != "" {
		t.Errorf("summary not idempotent: %s", diff)
	}
}

func TestMistakeTracker_ScoreFloor(t *testing.T) {
	tr := newTestTracker()
	for range 3 {
		tr.Record("t1", "Turn 1", lateBrake(50))
	}
	assert.InDelta(t, 0.0, tr.SessionSummary().Score, 1e-9)
}

func TestMistakeTracker_Replay(t *testing.T) {
	records := []model.MistakeRecord{
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base, TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base.Add(time.Minute), TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "Turn 1", Pattern: model.PatternLateBrake, Timestamp: base.Add(2 * time.Minute), TimeLoss: 0.25},
	}
	tr := newTestTracker()
	tr.Replay(records)

	all := tr.PersistentMistakes()
	assert.Len(t, all, 1)
	assert.Equal(t, 3, all[0].Frequency)
	// priority is rederived from the persisted time loss
	assert.Equal(t, model.PriorityHigh, all[0].Priority)
}

func TestMistakeTracker_Reset(t *testing.T) {
	tr := newTestTracker()
	for range 3 {
		tr.Record("t1", "Turn 1", lateBrake(0.25))
	}
	tr.Reset()
	assert.Empty(t, tr.Records())
	assert.Empty(t, tr.PersistentMistakes())
	assert.Equal(t, 0, tr.SessionSummary().TotalMistakes)
}
