package model

// LinePoint is one point of a racing line, lateral offset in meters
// relative to the track center at the given position.
type LinePoint struct {
	Pct      float64 `json:"pct" yaml:"pct"`
	LateralM float64 `json:"lateralM" yaml:"lateralM"`
}

// CornerReference is the detailed baseline for one corner used by the
// deviation analysis. Exactly one reference is active per corner per
// track+car key; a faster verified lap supersedes it atomically.
type CornerReference struct {
	CornerID            string      `json:"cornerId" yaml:"cornerId"`
	TrackCarKey         string      `json:"trackCarKey" yaml:"trackCarKey"`
	StartPct            float64     `json:"startPct" yaml:"startPct"`
	EndPct              float64     `json:"endPct" yaml:"endPct"`
	BrakePointPct       float64     `json:"brakePointPct" yaml:"brakePointPct"`
	BrakePressurePct    float64     `json:"brakePressurePct" yaml:"brakePressurePct"`
	EntrySpeed          float64     `json:"entrySpeed" yaml:"entrySpeed"` // m/s
	ApexSpeed           float64     `json:"apexSpeed" yaml:"apexSpeed"`
	ExitSpeed           float64     `json:"exitSpeed" yaml:"exitSpeed"`
	ThrottlePointPct    float64     `json:"throttlePointPct" yaml:"throttlePointPct"`
	ThrottlePressurePct float64     `json:"throttlePressurePct" yaml:"throttlePressurePct"`
	SteeringAngle       float64     `json:"steeringAngle" yaml:"steeringAngle"` // rad, signed
	RacingLine          []LinePoint `json:"racingLine" yaml:"racingLine"`
	CornerTime          float64     `json:"cornerTime" yaml:"cornerTime"` // seconds
	Gear                int         `json:"gear" yaml:"gear"`
	Difficulty          int         `json:"difficulty" yaml:"difficulty"` // 1..10
}

// corner speed classes used to weight apex-speed loss; slow corners
// penalize a missed apex more than fast ones
const (
	slowCornerSpeed   = 28.0 // m/s, ~100 km/h
	mediumCornerSpeed = 45.0 // m/s, ~160 km/h
)

// ApexWeight is the seconds lost per m/s of apex-speed deficit for
// this corner's speed class.
func (r *CornerReference) ApexWeight() float64 {
	switch {
	case r.ApexSpeed < slowCornerSpeed:
		return 0.040
	case r.ApexSpeed < mediumCornerSpeed:
		return 0.025
	default:
		return 0.015
	}
}
