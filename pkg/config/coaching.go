package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration supports "250ms"/"5s" style values in YAML config files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// CoachingConfig holds all tunable thresholds of the analytics pipeline.
// It is resolved once at startup and injected into each component;
// the analytics code never reads ambient state.
type CoachingConfig struct {
	Arbiter   ArbiterConfig   `yaml:"arbiter"`
	Mistakes  MistakeConfig   `yaml:"mistakes"`
	Deviation DeviationConfig `yaml:"deviation"`
	Rules     RuleConfig      `yaml:"rules"`
}

type ArbiterConfig struct {
	// QueueSize bounds the pending set; lowest-priority entries are evicted
	// to admit a higher-priority message when full.
	QueueSize int `yaml:"queueSize"`
	// SimilarityThreshold is the normalized token overlap above which two
	// same-category messages are combined.
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	// PriorityCooldowns keys: critical, high, medium, low.
	PriorityCooldowns map[string]Duration `yaml:"priorityCooldowns"`
	// CategoryCooldown applies to any category without an explicit override.
	CategoryCooldown  Duration            `yaml:"categoryCooldown"`
	CategoryCooldowns map[string]Duration `yaml:"categoryCooldowns"`
}

type MistakeConfig struct {
	// PersistenceThreshold is the minimum frequency for a (corner, pattern)
	// aggregate to count as persistent.
	PersistenceThreshold int `yaml:"persistenceThreshold"`
	// TopN limits the most-common/most-costly rankings in the summary.
	TopN int `yaml:"topN"`
}

type DeviationConfig struct {
	BrakeOnsetPct     float64 `yaml:"brakeOnsetPct"`     // pedal % that counts as braking
	ThrottleOnsetPct  float64 `yaml:"throttleOnsetPct"`  // pedal % that counts as back on throttle
	TimingThreshold   float64 `yaml:"timingThreshold"`   // seconds; late/early classification cutoff
	SpeedThreshold    float64 `yaml:"speedThreshold"`    // m/s; apex speed deficit cutoff
	SteeringThreshold float64 `yaml:"steeringThreshold"` // rad deviation vs reference steering
	CriticalTimeLoss  float64 `yaml:"criticalTimeLoss"`  // seconds
	HighTimeLoss      float64 `yaml:"highTimeLoss"`
	MediumTimeLoss    float64 `yaml:"mediumTimeLoss"`
}

type RuleConfig struct {
	CornerMinAvgThrottle   float64 `yaml:"cornerMinAvgThrottle"`   // percent
	StraightMinAvgThrottle float64 `yaml:"straightMinAvgThrottle"` // percent
	BrakeStdDevLimit       float64 `yaml:"brakeStdDevLimit"`       // percent std dev over a segment
	ThrottleStdDevLimit    float64 `yaml:"throttleStdDevLimit"`
}

func DefaultCoachingConfig() *CoachingConfig {
	return &CoachingConfig{
		Arbiter: ArbiterConfig{
			QueueSize:           10,
			SimilarityThreshold: 0.5,
			PriorityCooldowns: map[string]Duration{
				"critical": Duration(2 * time.Second),
				"high":     Duration(5 * time.Second),
				"medium":   Duration(10 * time.Second),
				"low":      Duration(20 * time.Second),
			},
			CategoryCooldown:  Duration(5 * time.Second),
			CategoryCooldowns: map[string]Duration{},
		},
		Mistakes: MistakeConfig{
			PersistenceThreshold: 3,
			TopN:                 5,
		},
		Deviation: DeviationConfig{
			BrakeOnsetPct:     10,
			ThrottleOnsetPct:  50,
			TimingThreshold:   0.05,
			SpeedThreshold:    2.0,
			SteeringThreshold: 0.08,
			CriticalTimeLoss:  0.3,
			HighTimeLoss:      0.15,
			MediumTimeLoss:    0.05,
		},
		Rules: RuleConfig{
			CornerMinAvgThrottle:   30,
			StraightMinAvgThrottle: 90,
			BrakeStdDevLimit:       25,
			ThrottleStdDevLimit:    30,
		},
	}
}

// LoadCoachingConfig reads a YAML file on top of the defaults.
func LoadCoachingConfig(path string) (*CoachingConfig, error) {
	cfg := DefaultCoachingConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading coaching config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing coaching config: %w", err)
	}
	return cfg, nil
}
