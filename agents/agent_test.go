package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/parley/framework"
)

// scriptedModel replays canned responses in order. The last response repeats
// once the script runs out.
type scriptedModel struct {
	responses []*framework.LLMResponse
	err       error
	calls     int
}

func (m *scriptedModel) next() (*framework.LLMResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &framework.LLMResponse{Text: "done"}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return m.next()
}

func (m *scriptedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return m.next()
}

func (m *scriptedModel) ChatWithTools(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return m.next()
}

type countingTool struct {
	name     string
	fail     bool
	panics   bool
	executed int
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "test tool" }
func (t *countingTool) Category() string    { return "test" }
func (t *countingTool) Parameters() []framework.ToolParameter {
	return nil
}

func (t *countingTool) Execute(ctx context.Context, state *framework.State, args map[string]interface{}) (*framework.ToolResult, error) {
	t.executed++
	if t.panics {
		panic("tool exploded")
	}
	if t.fail {
		return nil, errors.New("disk on fire")
	}
	return framework.ToolSuccess(map[string]interface{}{"echo": args}), nil
}

func (t *countingTool) IsAvailable(ctx context.Context, state *framework.State) bool { return true }

func toolCallResponse(names ...string) *framework.LLMResponse {
	resp := &framework.LLMResponse{Text: "working on it"}
	for i, name := range names {
		resp.ToolCalls = append(resp.ToolCalls, framework.ToolCall{
			ID:   fmt.Sprintf("call-%d", i),
			Name: name,
			Args: map[string]interface{}{},
		})
	}
	return resp
}

func newTestAgent(t *testing.T, model framework.LanguageModel, tools ...framework.Tool) *Agent {
	t.Helper()
	registry := framework.NewToolRegistry()
	for _, tool := range tools {
		require.NoError(t, registry.Register(tool))
	}
	return &Agent{
		ID:     "tester",
		Name:   "Tester",
		Model:  model,
		Tools:  registry,
		Logger: framework.NopLogger{},
	}
}

func TestCompleteWithoutToolCallsLeavesTraceNil(t *testing.T) {
	model := &scriptedModel{responses: []*framework.LLMResponse{{Text: "plain answer"}}}
	agent := newTestAgent(t, model, &countingTool{name: "noop"})

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, "plain answer", result.Text)
	assert.Nil(t, result.Trace)
	assert.Equal(t, 1, model.calls)
}

func TestToolLoopRunsRequestedIterations(t *testing.T) {
	tool := &countingTool{name: "lookup"}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("lookup"),
		toolCallResponse("lookup"),
		toolCallResponse("lookup"),
		{Text: "final answer"},
	}}
	agent := newTestAgent(t, model, tool)

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, "final answer", result.Text)
	require.NotNil(t, result.Trace)
	assert.Equal(t, 3, result.Trace.Iterations)
	assert.Equal(t, 3, tool.executed)
	// one more provider call than tool iterations
	assert.Equal(t, result.Trace.Iterations+1, model.calls)
}

func TestToolLoopSoftStopsAtLimit(t *testing.T) {
	tool := &countingTool{name: "lookup"}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("lookup"),
		toolCallResponse("lookup"),
		&framework.LLMResponse{Text: "partial progress", ToolCalls: []framework.ToolCall{{ID: "c", Name: "lookup", Args: map[string]interface{}{}}}},
		toolCallResponse("lookup"),
		{Text: "never reached"},
	}}
	agent := newTestAgent(t, model, tool)
	agent.MaxToolIterations = 2

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	// the limit is a soft stop: the response that would have started
	// iteration three is returned as the completion text
	assert.Equal(t, "partial progress", result.Text)
	require.NotNil(t, result.Trace)
	assert.Equal(t, 2, result.Trace.Iterations)
	assert.Equal(t, 2, tool.executed)
	assert.Equal(t, 3, model.calls)
}

func TestUnresolvableToolDegradesToErrorResult(t *testing.T) {
	good := &countingTool{name: "good"}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("good", "missing", "good"),
		{Text: "recovered"},
	}}
	agent := newTestAgent(t, model, good)

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Text)
	require.NotNil(t, result.Trace)
	require.Len(t, result.Trace.Results, 3)
	assert.Equal(t, framework.ToolStatusSuccess, result.Trace.Results[0].Status)
	assert.Equal(t, framework.ToolStatusError, result.Trace.Results[1].Status)
	assert.Contains(t, result.Trace.Results[1].Error, "missing")
	assert.Equal(t, framework.ToolStatusSuccess, result.Trace.Results[2].Status)
	assert.Equal(t, 2, good.executed)
}

func TestFailingToolDoesNotAbortCompletion(t *testing.T) {
	tool := &countingTool{name: "flaky", fail: true}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("flaky"),
		{Text: "carried on"},
	}}
	agent := newTestAgent(t, model, tool)

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, "carried on", result.Text)
	require.NotNil(t, result.Trace)
	require.Len(t, result.Trace.Results, 1)
	assert.Equal(t, framework.ToolStatusError, result.Trace.Results[0].Status)
	assert.Contains(t, result.Trace.Results[0].Error, "disk on fire")
}

func TestPanickingToolDegradesToErrorResult(t *testing.T) {
	tool := &countingTool{name: "bomb", panics: true}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("bomb"),
		{Text: "still standing"},
	}}
	agent := newTestAgent(t, model, tool)

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, "still standing", result.Text)
	require.Len(t, result.Trace.Results, 1)
	assert.Equal(t, framework.ToolStatusError, result.Trace.Results[0].Status)
}

func TestProviderErrorPropagates(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection refused")}
	agent := newTestAgent(t, model)

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUsageAccumulatesAcrossIterations(t *testing.T) {
	withUsage := toolCallResponse("lookup")
	withUsage.Usage = map[string]int{"prompt_tokens": 10, "completion_tokens": 5}
	model := &scriptedModel{responses: []*framework.LLMResponse{
		withUsage,
		{Text: "done", Usage: map[string]int{"prompt_tokens": 20, "completion_tokens": 7}},
	}}
	agent := newTestAgent(t, model, &countingTool{name: "lookup"})

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	assert.Equal(t, 30, result.Usage["prompt_tokens"])
	assert.Equal(t, 12, result.Usage["completion_tokens"])
}

func TestToolMessagesCarryCallIDs(t *testing.T) {
	model := &scriptedModel{responses: []*framework.LLMResponse{
		toolCallResponse("lookup"),
		{Text: "done"},
	}}
	agent := newTestAgent(t, model, &countingTool{name: "lookup"})

	result, err := agent.CompleteWithTools(context.Background(), "sys", "user", framework.NewState())
	require.NoError(t, err)
	var toolMsgs []framework.Message
	for _, msg := range result.Messages {
		if msg.Role == "tool" {
			toolMsgs = append(toolMsgs, msg)
		}
	}
	require.Len(t, toolMsgs, 1)
	assert.Equal(t, "call-0", toolMsgs[0].ToolCallID)
	assert.True(t, strings.Contains(toolMsgs[0].Content, "success"))
}
