package model

import "time"

type SegmentType string

const (
	SegmentStraight SegmentType = "straight"
	SegmentCorner   SegmentType = "corner"
	SegmentChicane  SegmentType = "chicane"
)

// Segment is a fixed, named interval of track position.
// Segments are ordered and non-overlapping and cover [0,1) for a
// given track+car configuration.
type Segment struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Type      SegmentType `json:"type" yaml:"type"`
	StartPct  float64     `json:"startPct" yaml:"startPct"`
	EndPct    float64     `json:"endPct" yaml:"endPct"`
	SortOrder int         `json:"sortOrder" yaml:"sortOrder"`
}

// Contains reports whether pct falls into [StartPct, EndPct).
// A segment wrapping the start/finish line (EndPct < StartPct) matches
// positions on either side of the line.
func (s *Segment) Contains(pct float64) bool {
	if s.EndPct < s.StartPct {
		return pct >= s.StartPct || pct < s.EndPct
	}
	return pct >= s.StartPct && pct < s.EndPct
}

// IsCorner covers both corner and chicane segments.
func (s *Segment) IsCorner() bool {
	return s.Type == SegmentCorner || s.Type == SegmentChicane
}

// SegmentMetrics summarizes one completed traversal of a segment.
// Computed once per segment instance and never mutated afterward.
type SegmentMetrics struct {
	SegmentID      string        `json:"segmentId"`
	Lap            int           `json:"lap"`
	EntrySpeed     float64       `json:"entrySpeed"`
	ExitSpeed      float64       `json:"exitSpeed"`
	MinSpeed       float64       `json:"minSpeed"`
	MaxSpeed       float64       `json:"maxSpeed"`
	AvgThrottle    float64       `json:"avgThrottle"`
	AvgBrake       float64       `json:"avgBrake"`
	MaxSteering    float64       `json:"maxSteering"`
	Duration       time.Duration `json:"duration"`
	SpeedStdDev    float64       `json:"speedStdDev"`
	ThrottleStdDev float64       `json:"throttleStdDev"`
	BrakeStdDev    float64       `json:"brakeStdDev"`
	SampleCount    int           `json:"sampleCount"`
}
