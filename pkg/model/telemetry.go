package model

import (
	"math"
	"time"
)

const (
	// LapUnknown marks a sample without lap information.
	LapUnknown = -1
)

// PosUnknown marks a sample without track position information.
var PosUnknown = math.NaN()

// TelemetrySample is one normalized tick of vehicle telemetry.
// Validation happens once at the ingestion boundary; downstream code
// may assume a sample that passed Valid() has lap and position set.
type TelemetrySample struct {
	Timestamp     time.Time `json:"timestamp"`
	Lap           int       `json:"lap"`
	LapDistPct    float64   `json:"lapDistPct"` // [0,1)
	Speed         float64   `json:"speed"`      // m/s
	Throttle      float64   `json:"throttle"`   // percent 0..100
	Brake         float64   `json:"brake"`      // percent 0..100
	SteeringAngle float64   `json:"steeringAngle"` // rad, positive = left
	Gear          int       `json:"gear"`
}

// Valid reports whether the sample carries lap and position information.
func (s *TelemetrySample) Valid() bool {
	return s.Lap != LapUnknown &&
		!math.IsNaN(s.LapDistPct) &&
		s.LapDistPct >= 0 && s.LapDistPct < 1
}
