package punctuality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/busdelay/pkg/model"
)

func TestRenderDisplayStates(t *testing.T) {
	renderer, err := NewRenderer(nil)
	require.NoError(t, err)

	scheduled := model.TimeOfDay{Hour: 8, Minute: 12}

	onTime := renderer.Render(model.ResolvedPrediction(0, &scheduled))
	assert.Equal(t, DisplayOnTime, onTime.Kind)
	assert.Equal(t, "On time", onTime.Message)
	assert.Equal(t, "on_time", onTime.Severity)
	assert.Equal(t, "08:12", onTime.ScheduledDeparture)

	late := renderer.Render(model.ResolvedPrediction(12, nil))
	assert.Equal(t, DisplayLate, late.Kind)
	assert.Equal(t, "12 minutes late", late.Message)
	assert.Equal(t, "major", late.Severity)

	noMatch := renderer.Render(model.NoMatchPrediction())
	assert.Equal(t, DisplayNoMatch, noMatch.Kind)
	assert.Equal(t, NoMatchMessage, noMatch.Message)

	assert.NotEqual(t, onTime.Kind, late.Kind)
	assert.NotEqual(t, late.Kind, noMatch.Kind)
	assert.NotEqual(t, onTime.Kind, noMatch.Kind)

	assert.Equal(t, DisplayProcessing, renderer.Render(model.PendingPrediction()).Kind)
	assert.Equal(t, DisplayHidden, renderer.Render(model.FailedPrediction("timeout")).Kind)
	assert.Equal(t, DisplayHidden, renderer.Render(model.PredictionResult{}).Kind)
}

func TestLateMessage(t *testing.T) {
	assert.Equal(t, "1 minute late", LateMessage(1))
	assert.Equal(t, "4 minutes late", LateMessage(4))
}

func TestCustomRules(t *testing.T) {
	renderer, err := NewRenderer([]Rule{
		{Name: "fine", When: "delay < 10"},
		{Name: "bad", When: "delay >= 10"},
	})
	require.NoError(t, err)

	assert.Equal(t, "fine", renderer.Severity(4))
	assert.Equal(t, "bad", renderer.Severity(10))
	assert.Equal(t, "minor", mustDefault(t).Severity(5))
}

func TestInvalidRule(t *testing.T) {
	_, err := NewRenderer([]Rule{{Name: "broken", When: "delay +"}})
	assert.Error(t, err)

	_, err = NewRenderer([]Rule{{Name: "not bool", When: "delay + 1"}})
	assert.Error(t, err)
}

func mustDefault(t *testing.T) *Renderer {
	renderer, err := NewRenderer(DefaultRules)
	require.NoError(t, err)
	return renderer
}
