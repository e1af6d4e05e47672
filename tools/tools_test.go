package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/parley/framework"
)

func TestScratchpadWriteThenRead(t *testing.T) {
	tool := NewScratchpadTool()
	state := framework.NewState()

	result, err := tool.Execute(context.Background(), state, map[string]interface{}{
		"action": "write",
		"note":   "latency budget is 50ms",
	})
	require.NoError(t, err)
	assert.Equal(t, framework.ToolStatusSuccess, result.Status)

	result, err = tool.Execute(context.Background(), state, map[string]interface{}{"action": "read"})
	require.NoError(t, err)
	require.Equal(t, framework.ToolStatusSuccess, result.Status)
	notes, ok := result.Data["notes"].([]string)
	require.True(t, ok)
	require.Len(t, notes, 1)
	assert.Equal(t, "latency budget is 50ms", notes[0])
}

func TestScratchpadRejectsEmptyWrite(t *testing.T) {
	tool := NewScratchpadTool()
	result, err := tool.Execute(context.Background(), framework.NewState(), map[string]interface{}{
		"action": "write",
		"note":   "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, framework.ToolStatusError, result.Status)
}

func TestScratchpadUnknownAction(t *testing.T) {
	tool := NewScratchpadTool()
	result, err := tool.Execute(context.Background(), framework.NewState(), map[string]interface{}{
		"action": "erase",
	})
	require.NoError(t, err)
	assert.Equal(t, framework.ToolStatusError, result.Status)
	assert.Contains(t, result.Error, "erase")
}

func TestBriefReturnsProblemAndClarifications(t *testing.T) {
	tool := NewBriefTool()
	state := framework.NewState()
	state.Set(BriefProblemKey, "should we adopt event sourcing")
	state.Set(BriefClarificationsKey, "Q: scale?\nA: 10k events/s")

	assert.True(t, tool.IsAvailable(context.Background(), state))

	result, err := tool.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	require.Equal(t, framework.ToolStatusSuccess, result.Status)
	assert.Equal(t, "should we adopt event sourcing", result.Data["problem"])
	assert.Contains(t, result.Data["clarifications"], "10k events/s")
}

func TestBriefUnavailableWithoutProblem(t *testing.T) {
	tool := NewBriefTool()
	state := framework.NewState()
	assert.False(t, tool.IsAvailable(context.Background(), state))

	result, err := tool.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, framework.ToolStatusError, result.Status)
}
