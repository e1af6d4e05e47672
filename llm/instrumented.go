package llm

import (
	"context"
	"time"

	"github.com/lexcodex/parley/framework"
)

type contextKey string

const debateIDKey contextKey = "parley.debate_id"

// WithDebateID annotates a context so instrumented calls carry a stable
// correlation identifier.
func WithDebateID(ctx context.Context, debateID string) context.Context {
	return context.WithValue(ctx, debateIDKey, debateID)
}

func debateIDFrom(ctx context.Context) string {
	if value, ok := ctx.Value(debateIDKey).(string); ok {
		return value
	}
	return ""
}

// InstrumentedModel wraps a LanguageModel and emits telemetry for prompts and
// responses. It is a pure decorator: behavior of the inner model is unchanged.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry
	Debug     bool
}

// NewInstrumentedModel builds the decorator.
func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry, debug bool) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Telemetry: telemetry, Debug: debug}
}

// Generate implements framework.LanguageModel.
func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.emitPrompt(ctx, "generate", map[string]interface{}{
		"model":          modelFromOptions(options),
		"prompt_chars":   len(prompt),
		"prompt_preview": clip(prompt, 1024),
	})
	start := time.Now()
	resp, err := m.Inner.Generate(ctx, prompt, options)
	m.emitResponse(ctx, "generate", resp, err, time.Since(start))
	return resp, err
}

// Chat implements framework.LanguageModel.
func (m *InstrumentedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.emitPrompt(ctx, "chat", chatMeta(messages, nil, options))
	start := time.Now()
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.emitResponse(ctx, "chat", resp, err, time.Since(start))
	return resp, err
}

// ChatWithTools implements framework.LanguageModel.
func (m *InstrumentedModel) ChatWithTools(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.emitPrompt(ctx, "chat_with_tools", chatMeta(messages, tools, options))
	start := time.Now()
	resp, err := m.Inner.ChatWithTools(ctx, messages, tools, options)
	m.emitResponse(ctx, "chat_with_tools", resp, err, time.Since(start))
	return resp, err
}

func chatMeta(messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) map[string]interface{} {
	roles := make([]string, 0, len(messages))
	chars := 0
	for _, msg := range messages {
		roles = append(roles, msg.Role)
		chars += len(msg.Content)
	}
	toolNames := make([]string, 0, len(tools))
	for _, t := range tools {
		toolNames = append(toolNames, t.Name())
	}
	return map[string]interface{}{
		"model":         modelFromOptions(options),
		"message_count": len(messages),
		"message_chars": chars,
		"roles":         roles,
		"tool_count":    len(tools),
		"tool_names":    toolNames,
	}
}

func (m *InstrumentedModel) emitPrompt(ctx context.Context, kind string, meta map[string]interface{}) {
	if m == nil || m.Telemetry == nil {
		return
	}
	meta["kind"] = kind
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventAgentCompletion,
		DebateID:  debateIDFrom(ctx),
		Message:   "prompt",
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}

func (m *InstrumentedModel) emitResponse(ctx context.Context, kind string, resp *framework.LLMResponse, err error, elapsed time.Duration) {
	if m == nil || m.Telemetry == nil {
		return
	}
	meta := map[string]interface{}{
		"kind":       kind,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
	} else if resp != nil {
		meta["text_chars"] = len(resp.Text)
		meta["tool_calls"] = len(resp.ToolCalls)
		meta["finish_reason"] = resp.FinishReason
		if resp.Usage != nil {
			meta["usage"] = resp.Usage
		}
		if m.Debug {
			meta["text_preview"] = clip(resp.Text, 1024)
		}
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventAgentCompletion,
		DebateID:  debateIDFrom(ctx),
		Message:   "response",
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}

func modelFromOptions(options *framework.LLMOptions) string {
	if options == nil {
		return ""
	}
	return options.Model
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
