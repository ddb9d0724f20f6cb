//nolint:thelper,funlen,lll // ok for tests
package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/reference"
)

var base = time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

type stubProvider struct{ pack *reference.Pack }

func (p *stubProvider) Pack(key string) (*reference.Pack, error) {
	if key != p.pack.Key() {
		return nil, nil
	}
	return p.pack, nil
}

func spaPack() *reference.Pack {
	return &reference.Pack{
		Track:       "spa",
		Car:         "gt3",
		TrackLength: 1000,
		Segments: []model.Segment{
			{ID: "s1", Name: "Kemmel Straight", Type: model.SegmentStraight, StartPct: 0.0, EndPct: 0.5, SortOrder: 1},
			{ID: "t1", Name: "La Source", Type: model.SegmentCorner, StartPct: 0.5, EndPct: 1.0, SortOrder: 2},
		},
		Corners: []model.CornerReference{
			{
				CornerID:         "t1",
				BrakePointPct:    0.55,
				EntrySpeed:       50,
				ApexSpeed:        30,
				ExitSpeed:        45,
				ThrottlePointPct: 0.70,
				SteeringAngle:    0.3,
				Gear:             3,
			},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	store := reference.NewStore(&stubProvider{pack: spaPack()})
	require.NoError(t, store.SetTrackCar("spa", "gt3"))
	sess := NewSession(store, config.DefaultCoachingConfig())
	t.Cleanup(sess.Close)
	return sess
}

func sample(lap int, pct float64, offset time.Duration, speed, throttle, brake, steering float64, gear int) model.TelemetrySample {
	return model.TelemetrySample{
		Timestamp:     base.Add(offset),
		Lap:           lap,
		LapDistPct:    pct,
		Speed:         speed,
		Throttle:      throttle,
		Brake:         brake,
		SteeringAngle: steering,
		Gear:          gear,
	}
}

// drives one lap with a clearly late brake point through La Source and a
// second lap start to trigger finalization
func driveLateBrakeLap(sess *Session) {
	sess.Observe(sample(1, 0.10, 0, 60, 100, 0, 0, 6))
	sess.Observe(sample(1, 0.30, 1*time.Second, 60, 100, 0, 0, 6))
	sess.Observe(sample(1, 0.60, 2*time.Second, 50, 0, 80, 0.3, 3))
	sess.Observe(sample(1, 0.65, 3*time.Second, 30, 0, 20, 0.3, 3))
	sess.Observe(sample(1, 0.70, 4*time.Second, 45, 80, 0, 0.0, 3))
	sess.Observe(sample(2, 0.10, 10*time.Second, 60, 100, 0, 0, 6))
}

func TestSession_EndToEnd(t *testing.T) {
	sess := newTestSession(t)
	driveLateBrakeLap(sess)

	msg, ok := sess.Poll()
	require.True(t, ok)
	assert.Equal(t, model.PriorityCritical, msg.Priority)
	assert.Equal(t, "braking", msg.Category)
	assert.Equal(t, "t1", msg.Context)
	assert.Equal(t, "Brake earlier into La Source", msg.Content)
	assert.Equal(t, "deviation", msg.Source)

	// the rule-based lap feedback follows on the next poll
	msg, ok = sess.Poll()
	require.True(t, ok)
	assert.Equal(t, "throttle", msg.Category)
	assert.Equal(t, model.PriorityMedium, msg.Priority)
	assert.Equal(t, "rules", msg.Source)

	_, ok = sess.Poll()
	assert.False(t, ok)

	summary := sess.Summary()
	assert.Equal(t, 1, summary.TotalMistakes)
	assert.InDelta(t, 1.0, summary.TotalTimeLoss, 1e-9)
	assert.InDelta(t, 99.0, summary.Score, 1e-9)

	records := sess.MistakeRecords()
	require.Len(t, records, 1)
	assert.Equal(t, model.PatternLateBrake, records[0].Pattern)
	assert.Equal(t, "t1", records[0].CornerID)
}

func TestSession_Subscribe(t *testing.T) {
	sess := newTestSession(t)
	driveLateBrakeLap(sess)

	sub := sess.Subscribe()
	received := make(chan model.CoachingMessage, 1)
	go func() { received <- <-sub }()

	_, ok := sess.Poll()
	require.True(t, ok)

	select {
	case msg := <-received:
		assert.Equal(t, "braking", msg.Category)
	case <-time.After(time.Second):
		t.Fatal("no message broadcast")
	}
}

func TestSession_UnknownTrackStaysSilent(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.SetTrackCar("monza", "gt3"))
	driveLateBrakeLap(sess)

	_, ok := sess.Poll()
	assert.False(t, ok)
	assert.Equal(t, 0, sess.Summary().TotalMistakes)
}

func TestSession_Restore(t *testing.T) {
	sess := newTestSession(t)
	sess.Restore([]model.MistakeRecord{
		{CornerID: "t1", CornerName: "La Source", Pattern: model.PatternLateBrake, Timestamp: base, TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "La Source", Pattern: model.PatternLateBrake, Timestamp: base, TimeLoss: 0.25},
		{CornerID: "t1", CornerName: "La Source", Pattern: model.PatternLateBrake, Timestamp: base, TimeLoss: 0.25},
	})
	assert.Len(t, sess.PersistentMistakes(), 1)
	assert.Equal(t, 3, sess.Summary().TotalMistakes)
}

func TestSession_CloseIdempotent(t *testing.T) {
	sess := newTestSession(t)
	driveLateBrakeLap(sess)
	sess.Close()
	sess.Close()

	// a closed session ignores further telemetry
	sess.Observe(sample(2, 0.3, 11*time.Second, 60, 100, 0, 0, 6))
}
