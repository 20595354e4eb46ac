package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/automation/pkg/models"
)

func TestRenderWithContext(t *testing.T) {
	executionCtx := models.ExecutionContext{
		TriggerEvent: "issue_updated",
		ProjectID:    "proj-1",
		TriggerData: map[string]any{
			"issue": map[string]any{"key": "TL-42", "estimate": 3},
		},
	}

	out, err := RenderWithContext("Issue {{.triggerData.issue.key}} changed in {{.projectId}}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "Issue TL-42 changed in proj-1", out)
}

func TestRender_CoercesOutput(t *testing.T) {
	out, err := Render(`{"key": "{{.key}}"}`, map[string]any{"key": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "v"}, out)

	out, err = Render("{{.n}}", map[string]any{"n": 42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, out)

	out, err = Render("true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{.broken", nil)
	require.Error(t, err)
}

func TestRenderMap(t *testing.T) {
	executionCtx := models.ExecutionContext{
		TriggerData: map[string]any{"user": "casey"},
	}

	rendered, err := RenderMap(map[string]any{
		"message": "hello {{.triggerData.user}}",
		"nested":  map[string]any{"who": "{{.triggerData.user}}"},
		"count":   3,
	}, executionCtx)
	require.NoError(t, err)

	assert.Equal(t, "hello casey", rendered["message"])
	assert.Equal(t, map[string]any{"who": "casey"}, rendered["nested"])
	assert.Equal(t, 3, rendered["count"])
}
