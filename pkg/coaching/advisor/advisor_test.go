package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

func TestTemplateAdvisor(t *testing.T) {
	a := NewTemplateAdvisor()
	assert.Equal(t, "rules", a.Source())

	text, err := a.Advise(context.Background(), Situation{
		CornerID:   "t1",
		CornerName: "La Source",
		Patterns:   []model.Pattern{model.PatternLateBrake, model.PatternUndersteer},
		TimeLoss:   0.42,
		Priority:   model.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"You are braking too late and carrying understeer at La Source, costing about 0.42s per lap",
		text)
}

func TestTemplateAdvisor_NoPatterns(t *testing.T) {
	a := NewTemplateAdvisor()
	text, err := a.Advise(context.Background(), Situation{CornerName: "La Source"})
	require.NoError(t, err)
	assert.Empty(t, text)
}
