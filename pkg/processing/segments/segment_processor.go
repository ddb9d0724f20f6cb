package segments

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// Feedback is one rule-based finding for a completed segment.
type Feedback struct {
	SegmentID   string
	SegmentName string
	Category    string
	Message     string
}

// Traversal is one completed pass through a corner segment.
// Ref is the corner reference frozen when the car entered the segment;
// a best-lap adoption during the traversal does not affect it.
type Traversal struct {
	Segment model.Segment
	Ref     *model.CornerReference
	Lap     int
	Samples []model.TelemetrySample
}

type (
	// ReferenceLookup resolves the active corner reference for a segment.
	ReferenceLookup func(segmentID string) *model.CornerReference
	TraversalFunc   func(Traversal)
	FeedbackFunc    func([]Feedback)
)

// SegmentProcessor buffers telemetry samples into the active segment and
// finalizes per-segment metrics and rule feedback on lap rollover.
type SegmentProcessor struct {
	rules    config.RuleConfig
	segments []model.Segment
	buffers  map[string][]model.TelemetrySample

	activeID  string
	activeRef *model.CornerReference

	currentLap int
	lapHistory map[int]map[string]model.SegmentMetrics

	bestLap        int
	bestLapTotal   time.Duration
	bestLapMetrics map[string]model.SegmentMetrics

	dropped int

	refLookup   ReferenceLookup
	onTraversal TraversalFunc
	onFeedback  FeedbackFunc
	l           *log.Logger
}

type Option func(*SegmentProcessor)

func WithSegments(segs []model.Segment) Option {
	return func(p *SegmentProcessor) {
		p.setSegments(segs)
	}
}

func WithRules(rules config.RuleConfig) Option {
	return func(p *SegmentProcessor) {
		p.rules = rules
	}
}

func WithReferenceLookup(lookup ReferenceLookup) Option {
	return func(p *SegmentProcessor) {
		p.refLookup = lookup
	}
}

func WithTraversalFunc(fn TraversalFunc) Option {
	return func(p *SegmentProcessor) {
		p.onTraversal = fn
	}
}

func WithFeedbackFunc(fn FeedbackFunc) Option {
	return func(p *SegmentProcessor) {
		p.onFeedback = fn
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *SegmentProcessor) {
		p.l = l
	}
}

func NewSegmentProcessor(opts ...Option) *SegmentProcessor {
	p := &SegmentProcessor{
		rules:      config.DefaultCoachingConfig().Rules,
		buffers:    make(map[string][]model.TelemetrySample),
		currentLap: model.LapUnknown,
		bestLap:    model.LapUnknown,
		lapHistory: make(map[int]map[string]model.SegmentMetrics),
		l:          log.Default().Named("segments"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process buffers the sample into the segment containing its track position.
// Samples without lap/position info, or arriving before any segments are
// defined, are dropped silently. Upstream may not have loaded track metadata
// yet, so this is not an error.
func (p *SegmentProcessor) Process(sample model.TelemetrySample) {
	if len(p.segments) == 0 || !sample.Valid() {
		p.dropped++
		return
	}
	if p.currentLap != model.LapUnknown && sample.Lap != p.currentLap {
		p.closeActive()
		p.finalizeLap(p.currentLap)
	}
	p.currentLap = sample.Lap

	seg := p.findSegment(sample.LapDistPct)
	if seg == nil {
		p.dropped++
		return
	}
	if seg.ID != p.activeID {
		p.closeActive()
		p.openSegment(seg)
	}
	p.buffers[seg.ID] = append(p.buffers[seg.ID], sample)
}

// SetTrack replaces the segment definitions. Lap history, best lap and
// all buffers are wiped.
func (p *SegmentProcessor) SetTrack(segs []model.Segment) {
	p.setSegments(segs)
	p.Reset()
}

// Reset drops all per-session state but keeps the segment definitions.
func (p *SegmentProcessor) Reset() {
	p.buffers = make(map[string][]model.TelemetrySample)
	p.lapHistory = make(map[int]map[string]model.SegmentMetrics)
	p.currentLap = model.LapUnknown
	p.bestLap = model.LapUnknown
	p.bestLapTotal = 0
	p.bestLapMetrics = nil
	p.activeID = ""
	p.activeRef = nil
	p.dropped = 0
}

// LapMetrics returns the finalized metrics of a completed lap.
func (p *SegmentProcessor) LapMetrics(lap int) (map[string]model.SegmentMetrics, bool) {
	m, ok := p.lapHistory[lap]
	return m, ok
}

// BestLap returns the fastest finalized lap (lowest summed segment duration).
func (p *SegmentProcessor) BestLap() (int, map[string]model.SegmentMetrics, bool) {
	if p.bestLap == model.LapUnknown {
		return model.LapUnknown, nil, false
	}
	return p.bestLap, p.bestLapMetrics, true
}

// DroppedSamples counts samples discarded at the boundary.
func (p *SegmentProcessor) DroppedSamples() int { return p.dropped }

func (p *SegmentProcessor) setSegments(segs []model.Segment) {
	p.segments = slices.Clone(segs)
	slices.SortStableFunc(p.segments, func(a, b model.Segment) int {
		return a.SortOrder - b.SortOrder
	})
}

// findSegment scans in declaration order; the first match wins, so
// overlapping definitions are resolved by order, not by distance.
func (p *SegmentProcessor) findSegment(pct float64) *model.Segment {
	for i := range p.segments {
		if p.segments[i].Contains(pct) {
			return &p.segments[i]
		}
	}
	return nil
}

func (p *SegmentProcessor) openSegment(seg *model.Segment) {
	p.activeID = seg.ID
	p.activeRef = nil
	if seg.IsCorner() && p.refLookup != nil {
		p.activeRef = p.refLookup(seg.ID)
	}
}

// closeActive completes the current segment traversal. Corner traversals
// are handed to the observer together with the reference frozen at entry.
func (p *SegmentProcessor) closeActive() {
	if p.activeID == "" {
		return
	}
	segIdx := slices.IndexFunc(p.segments, func(s model.Segment) bool {
		return s.ID == p.activeID
	})
	buf := p.buffers[p.activeID]
	if segIdx != -1 && len(buf) > 0 {
		seg := p.segments[segIdx]
		if seg.IsCorner() && p.onTraversal != nil {
			p.onTraversal(Traversal{
				Segment: seg,
				Ref:     p.activeRef,
				Lap:     p.currentLap,
				Samples: slices.Clone(buf),
			})
		}
	}
	p.activeID = ""
	p.activeRef = nil
}

//nolint:gocognit // lap finalization is one unit of work
func (p *SegmentProcessor) finalizeLap(lap int) {
	metrics := make(map[string]model.SegmentMetrics)
	var fbs []Feedback
	var total time.Duration
	for i := range p.segments {
		seg := &p.segments[i]
		buf := p.buffers[seg.ID]
		if len(buf) == 0 {
			continue
		}
		m := computeMetrics(seg.ID, lap, buf)
		metrics[seg.ID] = m
		total += m.Duration
		fbs = append(fbs, p.ruleFeedback(seg, &m)...)
	}
	if len(metrics) > 0 {
		p.lapHistory[lap] = metrics
	}
	// only laps covering every segment may become the best lap
	if len(metrics) == len(p.segments) {
		if p.bestLap == model.LapUnknown || total < p.bestLapTotal {
			p.bestLap = lap
			p.bestLapTotal = total
			p.bestLapMetrics = metrics
			p.l.Info("best lap adopted",
				log.Int("lap", lap), log.Duration("total", total))
		}
	}
	p.buffers = make(map[string][]model.TelemetrySample)
	if p.onFeedback != nil && len(fbs) > 0 {
		p.onFeedback(fbs)
	}
}

func (p *SegmentProcessor) ruleFeedback(seg *model.Segment, m *model.SegmentMetrics) []Feedback {
	var ret []Feedback
	add := func(category, msg string) {
		ret = append(ret, Feedback{
			SegmentID:   seg.ID,
			SegmentName: seg.Name,
			Category:    category,
			Message:     msg,
		})
	}
	switch seg.Type {
	case model.SegmentCorner, model.SegmentChicane:
		if m.AvgThrottle < p.rules.CornerMinAvgThrottle {
			add("throttle", fmt.Sprintf("Apply throttle earlier through %s", seg.Name))
		}
		if m.BrakeStdDev > p.rules.BrakeStdDevLimit {
			add("braking", fmt.Sprintf("Smoother brake modulation into %s", seg.Name))
		}
	case model.SegmentStraight:
		if m.AvgThrottle < p.rules.StraightMinAvgThrottle {
			add("throttle", fmt.Sprintf("Use full throttle on %s", seg.Name))
		}
		if m.ThrottleStdDev > p.rules.ThrottleStdDevLimit {
			add("consistency", fmt.Sprintf("Keep the throttle steady on %s", seg.Name))
		}
	}
	return ret
}

func computeMetrics(segID string, lap int, buf []model.TelemetrySample) model.SegmentMetrics {
	speeds := make([]float64, len(buf))
	throttles := make([]float64, len(buf))
	brakes := make([]float64, len(buf))
	maxSteering := 0.0
	minSpeed := buf[0].Speed
	maxSpeed := buf[0].Speed
	for i := range buf {
		speeds[i] = buf[i].Speed
		throttles[i] = buf[i].Throttle
		brakes[i] = buf[i].Brake
		minSpeed = min(minSpeed, buf[i].Speed)
		maxSpeed = max(maxSpeed, buf[i].Speed)
		if abs := absFloat(buf[i].SteeringAngle); abs > maxSteering {
			maxSteering = abs
		}
	}
	return model.SegmentMetrics{
		SegmentID:      segID,
		Lap:            lap,
		EntrySpeed:     buf[0].Speed,
		ExitSpeed:      buf[len(buf)-1].Speed,
		MinSpeed:       minSpeed,
		MaxSpeed:       maxSpeed,
		AvgThrottle:    stat.Mean(throttles, nil),
		AvgBrake:       stat.Mean(brakes, nil),
		MaxSteering:    maxSteering,
		Duration:       buf[len(buf)-1].Timestamp.Sub(buf[0].Timestamp),
		SpeedStdDev:    stdDev(speeds),
		ThrottleStdDev: stdDev(throttles),
		BrakeStdDev:    stdDev(brakes),
		SampleCount:    len(buf),
	}
}

// stat.StdDev returns NaN for a single sample; a constant series has
// zero spread for our purposes.
func stdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
