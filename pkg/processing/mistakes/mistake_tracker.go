package mistakes

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// trendWindow is the number of most recent occurrences considered for
// the severity trend.
const trendWindow = 3

type mistakeKey struct {
	cornerID string
	pattern  model.Pattern
}

// MistakeTracker keeps the append-only per-session mistake log and the
// (corner, pattern) aggregates derived from it.
type MistakeTracker struct {
	cfg        config.MistakeConfig
	sessionID  string
	records    []model.MistakeRecord
	aggregates map[mistakeKey]*model.PersistentMistakePattern
	losses     map[mistakeKey][]float64
	now        func() time.Time
	l          *log.Logger
}

type Option func(*MistakeTracker)

func WithConfig(cfg config.MistakeConfig) Option {
	return func(t *MistakeTracker) {
		t.cfg = cfg
	}
}

func WithSessionID(id string) Option {
	return func(t *MistakeTracker) {
		t.sessionID = id
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *MistakeTracker) {
		t.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *MistakeTracker) {
		t.l = l
	}
}

func NewMistakeTracker(opts ...Option) *MistakeTracker {
	t := &MistakeTracker{
		cfg:        config.DefaultCoachingConfig().Mistakes,
		records:    make([]model.MistakeRecord, 0),
		aggregates: make(map[mistakeKey]*model.PersistentMistakePattern),
		losses:     make(map[mistakeKey][]float64),
		now:        time.Now,
		l:          log.Default().Named("mistakes"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends one MistakeRecord per detected pattern and updates the
// (corner, pattern) aggregates. A nil analysis is ignored.
func (t *MistakeTracker) Record(cornerID, cornerName string, analysis *model.DeviationAnalysis) {
	if analysis == nil {
		return
	}
	ts := t.now()
	for i := range analysis.Patterns {
		rec := model.MistakeRecord{
			CornerID:   cornerID,
			CornerName: cornerName,
			Pattern:    analysis.Patterns[i].Pattern,
			Timestamp:  ts,
			TimeLoss:   analysis.TimeLoss,
		}
		t.apply(rec, analysis.Priority)
	}
}

// Replay rebuilds tracker state from previously persisted records.
func (t *MistakeTracker) Replay(records []model.MistakeRecord) {
	for i := range records {
		t.apply(records[i], priorityFromLoss(records[i].TimeLoss))
	}
}

func (t *MistakeTracker) apply(rec model.MistakeRecord, prio model.Priority) {
	t.records = append(t.records, rec)
	k := mistakeKey{cornerID: rec.CornerID, pattern: rec.Pattern}
	agg, ok := t.aggregates[k]
	if !ok {
		agg = &model.PersistentMistakePattern{
			CornerID:   rec.CornerID,
			CornerName: rec.CornerName,
			Pattern:    rec.Pattern,
			Priority:   prio,
		}
		t.aggregates[k] = agg
	}
	agg.Frequency++
	agg.TotalTimeLoss += rec.TimeLoss
	agg.AvgTimeLoss = agg.TotalTimeLoss / float64(agg.Frequency)
	if prio.Rank() < agg.Priority.Rank() {
		agg.Priority = prio
	}
	t.losses[k] = append(t.losses[k], rec.TimeLoss)
	agg.Trend = trend(t.losses[k])
}

// PersistentMistakes returns the aggregates at or above the persistence
// threshold, sorted by priority, then frequency descending.
func (t *MistakeTracker) PersistentMistakes() []model.PersistentMistakePattern {
	ret := lo.FilterMap(lo.Values(t.aggregates),
		func(agg *model.PersistentMistakePattern, _ int) (model.PersistentMistakePattern, bool) {
			return *agg, agg.Frequency >= t.cfg.PersistenceThreshold
		})
	// ties resolved by key so the ordering is stable across calls
	// (map iteration order must not leak into summaries)
	slices.SortStableFunc(ret, func(a, b model.PersistentMistakePattern) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		if d := b.Frequency - a.Frequency; d != 0 {
			return d
		}
		if d := strings.Compare(a.CornerID, b.CornerID); d != 0 {
			return d
		}
		return strings.Compare(string(a.Pattern), string(b.Pattern))
	})
	return ret
}

// Records returns the append-only mistake log in arrival order.
func (t *MistakeTracker) Records() []model.MistakeRecord {
	return slices.Clone(t.records)
}

// SessionSummary recomputes the aggregate statistics. The computation is
// read-only: calling it twice without new records yields identical output.
func (t *MistakeTracker) SessionSummary() model.SessionSummary {
	totalLoss := 0.0
	for i := range t.records {
		totalLoss += t.records[i].TimeLoss
	}
	persistent := t.PersistentMistakes()

	mostCommon := topN(persistent, t.cfg.TopN, func(a, b model.PersistentMistakePattern) int {
		return b.Frequency - a.Frequency
	})
	mostCostly := topN(persistent, t.cfg.TopN, func(a, b model.PersistentMistakePattern) int {
		switch {
		case b.TotalTimeLoss > a.TotalTimeLoss:
			return 1
		case b.TotalTimeLoss < a.TotalTimeLoss:
			return -1
		default:
			return 0
		}
	})

	areas := lo.Uniq(lo.Map(mostCommon,
		func(p model.PersistentMistakePattern, _ int) string { return p.CornerName }))
	recs := lo.Map(mostCommon, func(p model.PersistentMistakePattern, _ int) string {
		return fmt.Sprintf("Work on %s at %s (%d times, %.2fs total)",
			p.Pattern.Description(), p.CornerName, p.Frequency, p.TotalTimeLoss)
	})

	return model.SessionSummary{
		SessionID:        t.sessionID,
		TotalMistakes:    len(t.records),
		TotalTimeLoss:    totalLoss,
		Score:            math.Max(0, 100-totalLoss),
		MostCommon:       mostCommon,
		MostCostly:       mostCostly,
		ImprovementAreas: areas,
		Recommendations:  recs,
	}
}

// Reset drops all session state.
func (t *MistakeTracker) Reset() {
	t.records = t.records[:0]
	t.aggregates = make(map[mistakeKey]*model.PersistentMistakePattern)
	t.losses = make(map[mistakeKey][]float64)
}

func topN(
	src []model.PersistentMistakePattern,
	n int,
	cmp func(a, b model.PersistentMistakePattern) int,
) []model.PersistentMistakePattern {
	ret := slices.Clone(src)
	slices.SortStableFunc(ret, cmp)
	if len(ret) > n {
		ret = ret[:n]
	}
	return ret
}

// trend inspects the time-loss direction over the most recent occurrences:
// monotonic increase means worsening, monotonic decrease improving.
func trend(losses []float64) model.Trend {
	if len(losses) < trendWindow {
		return model.TrendStable
	}
	window := losses[len(losses)-trendWindow:]
	increasing, decreasing := true, true
	for i := 1; i < len(window); i++ {
		if window[i] <= window[i-1] {
			increasing = false
		}
		if window[i] >= window[i-1] {
			decreasing = false
		}
	}
	switch {
	case increasing:
		return model.TrendWorsening
	case decreasing:
		return model.TrendImproving
	default:
		return model.TrendStable
	}
}

// priorityFromLoss mirrors the deviation analyzer's default buckets; it
// is only used when replaying persisted records, which do not carry the
// original analysis priority.
func priorityFromLoss(loss float64) model.Priority {
	def := config.DefaultCoachingConfig().Deviation
	switch {
	case loss > def.CriticalTimeLoss:
		return model.PriorityCritical
	case loss > def.HighTimeLoss:
		return model.PriorityHigh
	case loss > def.MediumTimeLoss:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
