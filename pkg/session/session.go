// Package session owns all per-session state of the coaching pipeline:
// segment buffering, deviation analysis, mistake tracking and message
// arbitration. Sessions are single-producer for telemetry; candidate
// messages may arrive from concurrent producers.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rechandler/gt3-ai-coaching-sub001/log"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/coaching/advisor"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/coaching/arbiter"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/config"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/processing/corners"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/processing/mistakes"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/processing/segments"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/reference"
	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/utils/broadcast"
)

type Session struct {
	id    string
	cfg   *config.CoachingConfig
	store *reference.Store

	segProc  *segments.SegmentProcessor
	analyzer *corners.DeviationAnalyzer
	tracker  *mistakes.MistakeTracker
	arb      *arbiter.Arbiter
	advisors []advisor.Advisor

	msgCh chan model.CoachingMessage
	bcast broadcast.BroadcastServer[model.CoachingMessage]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	l *log.Logger
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

func WithAdvisors(advisors ...advisor.Advisor) Option {
	return func(s *Session) {
		s.advisors = append(s.advisors, advisors...)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.l = l
	}
}

func NewSession(store *reference.Store, cfg *config.CoachingConfig, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		store:  store,
		msgCh:  make(chan model.CoachingMessage, 16),
		ctx:    ctx,
		cancel: cancel,
		l:      log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.segProc = segments.NewSegmentProcessor(
		segments.WithSegments(store.Segments()),
		segments.WithRules(cfg.Rules),
		segments.WithReferenceLookup(store.CornerRef),
		segments.WithTraversalFunc(s.onTraversal),
		segments.WithFeedbackFunc(s.onFeedback),
		segments.WithLogger(s.l),
	)
	s.analyzer = corners.NewDeviationAnalyzer(
		corners.WithConfig(cfg.Deviation),
		corners.WithTrackLength(store.TrackLength()),
		corners.WithLogger(s.l),
	)
	s.tracker = mistakes.NewMistakeTracker(
		mistakes.WithConfig(cfg.Mistakes),
		mistakes.WithSessionID(s.id),
		mistakes.WithLogger(s.l),
	)
	s.arb = arbiter.NewArbiter(
		arbiter.WithConfig(cfg.Arbiter),
		arbiter.WithLogger(s.l),
	)
	s.bcast = broadcast.NewBroadcastServer(s.id, "coaching", s.msgCh)
	return s
}

func (s *Session) ID() string { return s.id }

// SetTrackCar reloads references for a new track/car combination and
// wipes lap history and best-lap state.
func (s *Session) SetTrackCar(track, car string) error {
	if err := s.store.SetTrackCar(track, car); err != nil {
		return err
	}
	s.segProc.SetTrack(s.store.Segments())
	s.analyzer = corners.NewDeviationAnalyzer(
		corners.WithConfig(s.cfg.Deviation),
		corners.WithTrackLength(s.store.TrackLength()),
		corners.WithLogger(s.l),
	)
	return nil
}

// Observe feeds one telemetry sample through the pipeline. Never blocks
// and never fails; invalid samples are dropped and counted.
func (s *Session) Observe(sample model.TelemetrySample) {
	if s.closed.Load() {
		return
	}
	s.segProc.Process(sample)
}

// Poll asks the arbiter for the next deliverable message and, if one is
// emitted, forwards it to broadcast subscribers. Polled on a fixed
// cadence by the delivery layer.
func (s *Session) Poll() (model.CoachingMessage, bool) {
	msg, ok := s.arb.Next()
	if !ok {
		return model.CoachingMessage{}, false
	}
	select {
	case s.msgCh <- msg:
	default:
		// no delivery consumer keeping up; the message still goes to
		// the direct caller
	}
	return msg, true
}

// Subscribe returns a channel of emitted coaching messages.
func (s *Session) Subscribe() <-chan model.CoachingMessage {
	return s.bcast.Subscribe()
}

// Submit lets external producers enter candidate messages directly.
func (s *Session) Submit(msg model.CoachingMessage) bool {
	return s.arb.Submit(msg)
}

func (s *Session) Summary() model.SessionSummary {
	return s.tracker.SessionSummary()
}

func (s *Session) PersistentMistakes() []model.PersistentMistakePattern {
	return s.tracker.PersistentMistakes()
}

func (s *Session) MistakeRecords() []model.MistakeRecord {
	return s.tracker.Records()
}

func (s *Session) BestLap() (int, map[string]model.SegmentMetrics, bool) {
	return s.segProc.BestLap()
}

// Restore replays persisted mistake records into the tracker.
func (s *Session) Restore(records []model.MistakeRecord) {
	s.tracker.Replay(records)
}

// Close ends the session: in-flight advisory requests are cancelled,
// buffers for corners not fully traversed are discarded rather than
// finalized, and all cooldown state is reset.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.arb.Reset()
	s.segProc.Reset()
	s.bcast.Close()
	s.l.Info("session closed", log.String("id", s.id))
}

// onTraversal handles one completed corner pass: deviation analysis,
// mistake tracking, and candidate messages from every producer.
func (s *Session) onTraversal(t segments.Traversal) {
	analysis := s.analyzer.Analyze(t.Segment.Name, t.Ref, t.Samples)
	if analysis == nil {
		return
	}
	s.tracker.Record(t.Segment.ID, t.Segment.Name, analysis)

	if len(analysis.Feedback) > 0 {
		s.arb.Submit(model.CoachingMessage{
			Content:    analysis.Feedback[0],
			Category:   patternCategory(analysis.Patterns),
			Priority:   analysis.Priority,
			Source:     "deviation",
			Confidence: maxConfidence(analysis.Patterns),
			Context:    t.Segment.ID,
			Secondary:  analysis.Feedback[1:],
		})
	}

	sit := advisor.Situation{
		CornerID:            t.Segment.ID,
		CornerName:          t.Segment.Name,
		Patterns:            patternsOf(analysis),
		BrakeTimingDelta:    analysis.BrakeTimingDelta,
		ThrottleTimingDelta: analysis.ThrottleTimingDelta,
		ApexSpeedDelta:      analysis.ApexSpeedDelta,
		TimeLoss:            analysis.TimeLoss,
		Priority:            analysis.Priority,
	}
	for _, adv := range s.advisors {
		s.wg.Add(1)
		go func(adv advisor.Advisor) {
			defer s.wg.Done()
			text, err := adv.Advise(s.ctx, sit)
			if err != nil || text == "" {
				// advisory failure means no candidate this cycle
				return
			}
			s.arb.Submit(model.CoachingMessage{
				Content:    text,
				Category:   patternCategory(analysis.Patterns),
				Priority:   analysis.Priority,
				Source:     adv.Source(),
				Confidence: maxConfidence(analysis.Patterns),
				Context:    t.Segment.ID,
			})
		}(adv)
	}
}

// onFeedback submits rule-based lap feedback as medium-priority candidates.
func (s *Session) onFeedback(fbs []segments.Feedback) {
	for i := range fbs {
		s.arb.Submit(model.CoachingMessage{
			Content:    fbs[i].Message,
			Category:   fbs[i].Category,
			Priority:   model.PriorityMedium,
			Source:     "rules",
			Confidence: 0.6,
			Context:    fbs[i].SegmentID,
		})
	}
}

func patternsOf(analysis *model.DeviationAnalysis) []model.Pattern {
	ret := make([]model.Pattern, 0, len(analysis.Patterns))
	for i := range analysis.Patterns {
		ret = append(ret, analysis.Patterns[i].Pattern)
	}
	return ret
}

func maxConfidence(patterns []model.PatternMatch) float64 {
	ret := 0.5
	for i := range patterns {
		if patterns[i].Confidence > ret {
			ret = patterns[i].Confidence
		}
	}
	return ret
}

func patternCategory(patterns []model.PatternMatch) string {
	if len(patterns) == 0 {
		return "cornering"
	}
	switch patterns[0].Pattern {
	case model.PatternLateBrake, model.PatternEarlyBrake:
		return "braking"
	case model.PatternLateThrottle, model.PatternEarlyThrottle:
		return "throttle"
	default:
		return "cornering"
	}
}
