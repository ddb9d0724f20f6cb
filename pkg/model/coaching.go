package model

import "time"

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

type Pattern string

const (
	PatternLateBrake     Pattern = "late_brake"
	PatternEarlyBrake    Pattern = "early_brake"
	PatternLateThrottle  Pattern = "late_throttle"
	PatternEarlyThrottle Pattern = "early_throttle"
	PatternUndersteer    Pattern = "understeer"
	PatternOversteer     Pattern = "oversteer"
)

// Description is used when templating feedback and recommendations.
func (p Pattern) Description() string {
	switch p {
	case PatternLateBrake:
		return "braking too late"
	case PatternEarlyBrake:
		return "braking too early"
	case PatternLateThrottle:
		return "getting on throttle too late"
	case PatternEarlyThrottle:
		return "getting on throttle too early"
	case PatternUndersteer:
		return "carrying understeer"
	case PatternOversteer:
		return "provoking oversteer"
	default:
		return string(p)
	}
}

// PatternMatch is one classified technique pattern with its confidence.
type PatternMatch struct {
	Pattern    Pattern `json:"pattern"`
	Confidence float64 `json:"confidence"` // [0,1]
}

// DeviationAnalysis is the outcome of comparing one corner traversal
// against its reference. Immutable once created.
type DeviationAnalysis struct {
	CornerID            string         `json:"cornerId"`
	BrakeTimingDelta    float64        `json:"brakeTimingDelta"`    // seconds, positive = late
	ThrottleTimingDelta float64        `json:"throttleTimingDelta"` // seconds, positive = late
	ApexSpeedDelta      float64        `json:"apexSpeedDelta"`      // m/s, negative = slower than reference
	TimeLoss            float64        `json:"timeLoss"`            // seconds, estimated
	Patterns            []PatternMatch `json:"patterns"`
	Priority            Priority       `json:"priority"`
	Feedback            []string       `json:"feedback"`
}

// MistakeRecord is one detected pattern occurrence; the per-session
// log of records is append-only.
type MistakeRecord struct {
	CornerID   string    `json:"cornerId"`
	CornerName string    `json:"cornerName"`
	Pattern    Pattern   `json:"pattern"`
	Timestamp  time.Time `json:"timestamp"`
	TimeLoss   float64   `json:"timeLoss"`
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// PersistentMistakePattern aggregates MistakeRecords sharing (corner, pattern).
type PersistentMistakePattern struct {
	CornerID      string   `json:"cornerId"`
	CornerName    string   `json:"cornerName"`
	Pattern       Pattern  `json:"pattern"`
	Frequency     int      `json:"frequency"`
	TotalTimeLoss float64  `json:"totalTimeLoss"`
	AvgTimeLoss   float64  `json:"avgTimeLoss"`
	Trend         Trend    `json:"trend"`
	Priority      Priority `json:"priority"`
}

// CoachingMessage is a candidate or emitted coaching message.
// Messages are immutable; combining two messages creates a new one
// carrying the other content in Secondary.
type CoachingMessage struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Priority   Priority  `json:"priority"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"` // [0,1]
	Context    string    `json:"context"`
	Timestamp  time.Time `json:"timestamp"`
	Secondary  []string  `json:"secondary,omitempty"`
}

// SessionSummary is regenerated on demand from mistake tracker state.
type SessionSummary struct {
	SessionID        string                     `json:"sessionId"`
	TotalMistakes    int                        `json:"totalMistakes"`
	TotalTimeLoss    float64                    `json:"totalTimeLoss"`
	Score            float64                    `json:"score"`
	MostCommon       []PersistentMistakePattern `json:"mostCommon"`
	MostCostly       []PersistentMistakePattern `json:"mostCostly"`
	ImprovementAreas []string                   `json:"improvementAreas"`
	Recommendations  []string                   `json:"recommendations"`
}
