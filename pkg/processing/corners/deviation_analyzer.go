package corners

import (
	"fmt"
	"math"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// DeviationAnalyzer compares a completed corner traversal against the
// corner's reference and classifies technique patterns.
type DeviationAnalyzer struct {
	cfg         config.DeviationConfig
	trackLength float64 // meters, used to convert position deltas to distance
	l           *log.Logger
}

type Option func(*DeviationAnalyzer)

func WithConfig(cfg config.DeviationConfig) Option {
	return func(a *DeviationAnalyzer) {
		a.cfg = cfg
	}
}

func WithTrackLength(meters float64) Option {
	return func(a *DeviationAnalyzer) {
		a.trackLength = meters
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *DeviationAnalyzer) {
		a.l = l
	}
}

func NewDeviationAnalyzer(opts ...Option) *DeviationAnalyzer {
	a := &DeviationAnalyzer{
		cfg:         config.DefaultCoachingConfig().Deviation,
		trackLength: 4000,
		l:           log.Default().Named("corners"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the deviation analysis for one corner traversal.
// A missing reference or empty sample sequence yields nil: corner
// metadata not being available yet is an expected condition.
//
//nolint:funlen // the computation reads top to bottom
func (a *DeviationAnalyzer) Analyze(
	cornerName string,
	ref *model.CornerReference,
	samples []model.TelemetrySample,
) *model.DeviationAnalysis {
	if ref == nil || len(samples) == 0 {
		return nil
	}

	brakeDelta, brakeWeight := a.brakeTimingDelta(ref, samples)
	apexIdx := minSpeedIndex(samples)
	throttleDelta, throttleWeight := a.throttleTimingDelta(ref, samples, apexIdx)
	apexDelta := samples[apexIdx].Speed - ref.ApexSpeed

	timeLoss := math.Abs(brakeDelta)*brakeWeight +
		math.Abs(throttleDelta)*throttleWeight +
		math.Max(0, -apexDelta)*ref.ApexWeight()

	patterns := a.classify(ref, samples, brakeDelta, throttleDelta, apexDelta)

	analysis := &model.DeviationAnalysis{
		CornerID:            ref.CornerID,
		BrakeTimingDelta:    brakeDelta,
		ThrottleTimingDelta: throttleDelta,
		ApexSpeedDelta:      apexDelta,
		TimeLoss:            timeLoss,
		Patterns:            patterns,
		Priority:            a.priority(timeLoss),
		Feedback:            a.feedback(cornerName, ref, samples, patterns, apexIdx),
	}
	a.l.Debug("corner analyzed",
		log.String("corner", ref.CornerID),
		log.Float64("timeLoss", timeLoss),
		log.Int("patterns", len(patterns)))
	return analysis
}

// brakeTimingDelta returns the brake onset delta in seconds (positive =
// later than the reference) and its speed-time sensitivity weight.
func (a *DeviationAnalyzer) brakeTimingDelta(
	ref *model.CornerReference,
	samples []model.TelemetrySample,
) (delta, weight float64) {
	idx := onsetIndex(samples, func(s *model.TelemetrySample) bool {
		return s.Brake >= a.cfg.BrakeOnsetPct
	})
	if idx == -1 || ref.BrakePointPct <= 0 {
		return 0, 0
	}
	return a.positionToTime(samples[idx].LapDistPct-ref.BrakePointPct, samples[idx].Speed),
		sensitivity(samples[idx].Speed, ref.EntrySpeed)
}

// throttleTimingDelta looks for throttle re-application after the apex.
func (a *DeviationAnalyzer) throttleTimingDelta(
	ref *model.CornerReference,
	samples []model.TelemetrySample,
	apexIdx int,
) (delta, weight float64) {
	idx := onsetIndex(samples[apexIdx:], func(s *model.TelemetrySample) bool {
		return s.Throttle >= a.cfg.ThrottleOnsetPct
	})
	if idx == -1 || ref.ThrottlePointPct <= 0 {
		return 0, 0
	}
	s := &samples[apexIdx+idx]
	return a.positionToTime(s.LapDistPct-ref.ThrottlePointPct, s.Speed),
		sensitivity(s.Speed, ref.ExitSpeed)
}

// positionToTime converts a track position delta to seconds via local speed.
func (a *DeviationAnalyzer) positionToTime(deltaPct, speed float64) float64 {
	return deltaPct * a.trackLength / math.Max(speed, 1)
}

// sensitivity scales a timing delta by how fast the car approaches
// relative to the reference; clamped so a single odd sample cannot
// dominate the time loss.
func sensitivity(speed, refSpeed float64) float64 {
	return clamp(speed/math.Max(refSpeed, 1), 0.5, 1.5)
}

//nolint:cyclop // one branch per pattern
func (a *DeviationAnalyzer) classify(
	ref *model.CornerReference,
	samples []model.TelemetrySample,
	brakeDelta, throttleDelta, apexDelta float64,
) []model.PatternMatch {
	var ret []model.PatternMatch
	add := func(p model.Pattern, dev, threshold float64) {
		ret = append(ret, model.PatternMatch{
			Pattern:    p,
			Confidence: confidence(dev, threshold),
		})
	}

	thr := a.cfg.TimingThreshold
	switch {
	case brakeDelta > thr:
		add(model.PatternLateBrake, brakeDelta, thr)
	case brakeDelta < -thr:
		add(model.PatternEarlyBrake, -brakeDelta, thr)
	}
	switch {
	case throttleDelta > thr:
		add(model.PatternLateThrottle, throttleDelta, thr)
	case throttleDelta < -thr:
		add(model.PatternEarlyThrottle, -throttleDelta, thr)
	}

	refAngle := math.Abs(ref.SteeringAngle)
	maxAngle := 0.0
	counterSteer := 0.0
	cornerSign := sign(ref.SteeringAngle)
	for i := range samples {
		angle := samples[i].SteeringAngle
		maxAngle = math.Max(maxAngle, math.Abs(angle))
		// steering against the corner direction while back on power
		if sign(angle) == -cornerSign && samples[i].Throttle >= a.cfg.ThrottleOnsetPct {
			counterSteer = math.Max(counterSteer, math.Abs(angle))
		}
	}
	angleDev := maxAngle - refAngle
	if angleDev > a.cfg.SteeringThreshold && apexDelta < -a.cfg.SpeedThreshold {
		add(model.PatternUndersteer, angleDev, a.cfg.SteeringThreshold)
	}
	if counterSteer > a.cfg.SteeringThreshold {
		add(model.PatternOversteer, counterSteer, a.cfg.SteeringThreshold)
	}
	return ret
}

func (a *DeviationAnalyzer) priority(timeLoss float64) model.Priority {
	switch {
	case timeLoss > a.cfg.CriticalTimeLoss:
		return model.PriorityCritical
	case timeLoss > a.cfg.HighTimeLoss:
		return model.PriorityHigh
	case timeLoss > a.cfg.MediumTimeLoss:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func (a *DeviationAnalyzer) feedback(
	cornerName string,
	ref *model.CornerReference,
	samples []model.TelemetrySample,
	patterns []model.PatternMatch,
	apexIdx int,
) []string {
	var ret []string
	for i := range patterns {
		switch patterns[i].Pattern {
		case model.PatternLateBrake:
			ret = append(ret, fmt.Sprintf("Brake earlier into %s", cornerName))
		case model.PatternEarlyBrake:
			ret = append(ret, fmt.Sprintf("Carry the brakes deeper into %s", cornerName))
		case model.PatternLateThrottle:
			ret = append(ret, fmt.Sprintf("Get back on power sooner out of %s", cornerName))
		case model.PatternEarlyThrottle:
			ret = append(ret, fmt.Sprintf("Be patient with the throttle in %s", cornerName))
		case model.PatternUndersteer:
			ret = append(ret, fmt.Sprintf("Slow the entry to kill the understeer in %s", cornerName))
		case model.PatternOversteer:
			ret = append(ret, fmt.Sprintf("Feed the throttle more gently out of %s", cornerName))
		}
	}
	if g := samples[apexIdx].Gear; ref.Gear > 0 && g != ref.Gear {
		ret = append(ret, fmt.Sprintf("Take %s in gear %d", cornerName, ref.Gear))
	}
	return ret
}

// confidence grows with how far the deviation exceeds its threshold:
// 0.5 at the threshold, 1.0 at twice the threshold.
func confidence(dev, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	return clamp(0.5+0.5*(dev-threshold)/threshold, 0, 1)
}

func onsetIndex(samples []model.TelemetrySample, match func(*model.TelemetrySample) bool) int {
	for i := range samples {
		if match(&samples[i]) {
			return i
		}
	}
	return -1
}

func minSpeedIndex(samples []model.TelemetrySample) int {
	idx := 0
	for i := range samples {
		if samples[i].Speed < samples[idx].Speed {
			idx = i
		}
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
