package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lexcodex/parley/framework"
)

// DefaultMaxToolIterations bounds the tool loop when no per-agent cap is
// configured.
const DefaultMaxToolIterations = 10

// Agent owns a completion provider, an optional tool registry, and the
// bounded tool-calling loop. Role-specialized behavior layers on top.
type Agent struct {
	ID                string
	Name              string
	Model             framework.LanguageModel
	Tools             *framework.ToolRegistry
	Logger            framework.Logger
	Telemetry         framework.Telemetry
	MaxToolIterations int
	Options           framework.LLMOptions
}

// CompletionResult is the outcome of one tool-loop completion. Trace is nil
// when no tool activity occurred, so callers can cheaply test for it.
type CompletionResult struct {
	Text     string
	Messages []framework.Message
	Usage    map[string]int
	Trace    *framework.ToolTrace
}

// CompleteWithTools runs the provider/tool loop starting from a system and
// user prompt.
func (a *Agent) CompleteWithTools(ctx context.Context, system, user string, state *framework.State) (*CompletionResult, error) {
	messages := []framework.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return a.ContinueWithTools(ctx, messages, state)
}

// ContinueWithTools runs the loop over an existing message sequence. Each
// iteration executes the tool calls from the previous provider response,
// appends the results, and re-invokes the provider. The loop stops when the
// provider requests no further tools or the iteration cap is reached; the
// cap is a soft stop returning the last text as-is, not an error. A single
// failing tool call becomes a structured error result and never aborts the
// completion.
func (a *Agent) ContinueWithTools(ctx context.Context, messages []framework.Message, state *framework.State) (*CompletionResult, error) {
	logger := framework.EnsureLogger(a.Logger)
	limit := a.MaxToolIterations
	if limit <= 0 {
		limit = DefaultMaxToolIterations
	}

	usage := make(map[string]int)
	trace := &framework.ToolTrace{}
	iterations := 0

	for {
		logger.Verbosef("agent %s: provider call %d", a.ID, iterations+1)
		resp, err := a.invokeProvider(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
		accumulateUsage(usage, resp.Usage)

		if len(resp.ToolCalls) == 0 {
			messages = append(messages, framework.Message{Role: "assistant", Content: resp.Text})
			return a.finish(resp.Text, messages, usage, trace, iterations), nil
		}
		if iterations >= limit {
			logger.Printf("agent %s: tool iteration limit %d reached, returning last text", a.ID, limit)
			messages = append(messages, framework.Message{Role: "assistant", Content: resp.Text})
			return a.finish(resp.Text, messages, usage, trace, iterations), nil
		}

		messages = append(messages, framework.Message{
			Role:      "assistant",
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			a.emitToolEvent(framework.EventToolCall, call.Name, nil)
			result := a.runTool(ctx, state, call, logger)
			trace.Calls = append(trace.Calls, call)
			trace.Results = append(trace.Results, *result)
			messages = append(messages, toolMessage(call, result))
			a.emitToolEvent(framework.EventToolResult, call.Name, result)
		}
		iterations++
	}
}

func (a *Agent) finish(text string, messages []framework.Message, usage map[string]int, trace *framework.ToolTrace, iterations int) *CompletionResult {
	result := &CompletionResult{
		Text:     text,
		Messages: messages,
	}
	if len(usage) > 0 {
		result.Usage = usage
	}
	if len(trace.Calls) > 0 {
		trace.Iterations = iterations
		result.Trace = trace
	}
	return result
}

func (a *Agent) invokeProvider(ctx context.Context, messages []framework.Message) (*framework.LLMResponse, error) {
	if a.Tools != nil && a.Tools.Len() > 0 {
		return a.Model.ChatWithTools(ctx, messages, a.Tools.All(), a.options())
	}
	return a.Model.Chat(ctx, messages, a.options())
}

func (a *Agent) options() *framework.LLMOptions {
	opts := a.Options
	return &opts
}

// runTool resolves and executes one tool call. Every failure mode (unknown
// tool, bad arguments, execution error, panic) degrades to a structured
// error result tagged with the call so the conversation can continue.
func (a *Agent) runTool(ctx context.Context, state *framework.State, call framework.ToolCall, logger framework.Logger) *framework.ToolResult {
	if a.Tools == nil {
		logger.Printf("agent %s: tool %q not found (no registry)", a.ID, call.Name)
		return framework.ToolError("tool %q not found", call.Name)
	}
	tool, ok := a.Tools.Get(call.Name)
	if !ok {
		logger.Printf("agent %s: tool %q not found", a.ID, call.Name)
		return framework.ToolError("tool %q not found", call.Name)
	}
	if err := validateArgs(tool, call.Args); err != nil {
		logger.Printf("agent %s: tool %q bad arguments: %v", a.ID, call.Name, err)
		return framework.ToolError("tool %q: %v", call.Name, err)
	}
	result, err := safeExecute(ctx, tool, state, call.Args)
	if err != nil {
		logger.Printf("agent %s: tool %q failed: %v", a.ID, call.Name, err)
		return framework.ToolError("tool %q failed: %v", call.Name, err)
	}
	if result == nil {
		return framework.ToolError("tool %q returned no result", call.Name)
	}
	return result
}

// safeExecute shields the loop from panicking tool implementations.
func safeExecute(ctx context.Context, tool framework.Tool, state *framework.State, args map[string]interface{}) (result *framework.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Execute(ctx, state, args)
}

// validateArgs rejects argument maps that failed provider-side parsing or
// are missing required parameters.
func validateArgs(tool framework.Tool, args map[string]interface{}) error {
	if _, ok := args["_raw"]; ok {
		return fmt.Errorf("arguments could not be parsed")
	}
	for _, param := range tool.Parameters() {
		if !param.Required {
			continue
		}
		if _, ok := args[param.Name]; !ok {
			return fmt.Errorf("missing required argument %q", param.Name)
		}
	}
	return nil
}

func toolMessage(call framework.ToolCall, result *framework.ToolResult) framework.Message {
	encoded, err := json.Marshal(result)
	content := string(encoded)
	if err != nil {
		content = fmt.Sprintf("status=%s error=%s", result.Status, result.Error)
	}
	return framework.Message{
		Role:       "tool",
		Name:       call.Name,
		Content:    content,
		ToolCallID: call.ID,
	}
}

func (a *Agent) emitToolEvent(eventType framework.EventType, toolName string, result *framework.ToolResult) {
	if a.Telemetry == nil {
		return
	}
	meta := map[string]interface{}{"tool": toolName}
	if result != nil {
		meta["status"] = string(result.Status)
		if result.Error != "" {
			meta["error"] = result.Error
		}
	}
	a.Telemetry.Emit(framework.Event{
		Type:      eventType,
		AgentID:   a.ID,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}

func accumulateUsage(total map[string]int, usage map[string]int) {
	for key, value := range usage {
		total[key] += value
	}
}
