// Package advisor supplies free-text coaching content for a detected
// situation. The core treats every implementation purely as a candidate
// message producer; failures degrade to "no candidate this cycle".
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

// Situation is the structured descriptor handed to an advisor.
type Situation struct {
	CornerID            string          `json:"cornerId"`
	CornerName          string          `json:"cornerName"`
	Patterns            []model.Pattern `json:"patterns"`
	BrakeTimingDelta    float64         `json:"brakeTimingDelta"`
	ThrottleTimingDelta float64         `json:"throttleTimingDelta"`
	ApexSpeedDelta      float64         `json:"apexSpeedDelta"`
	TimeLoss            float64         `json:"timeLoss"`
	Priority            model.Priority  `json:"priority"`
}

// Advisor turns a situation into coaching prose.
type Advisor interface {
	// Advise may block up to the context deadline. An error or empty
	// result means no candidate message this cycle.
	Advise(ctx context.Context, sit Situation) (string, error)
	// Source tags messages produced from this advisor's output.
	Source() string
}

// TemplateAdvisor renders deterministic prose from the situation alone.
// It is the fallback when no generative service is configured.
type TemplateAdvisor struct{}

func NewTemplateAdvisor() *TemplateAdvisor { return &TemplateAdvisor{} }

func (t *TemplateAdvisor) Source() string { return "rules" }

func (t *TemplateAdvisor) Advise(_ context.Context, sit Situation) (string, error) {
	if len(sit.Patterns) == 0 {
		return "", nil
	}
	descs := make([]string, 0, len(sit.Patterns))
	for _, p := range sit.Patterns {
		descs = append(descs, p.Description())
	}
	return fmt.Sprintf("You are %s at %s, costing about %.2fs per lap",
		strings.Join(descs, " and "), sit.CornerName, sit.TimeLoss), nil
}
