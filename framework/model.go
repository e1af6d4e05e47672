package framework

import "context"

// Message represents one turn in a model conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a request, embedded in a model response, for the calling agent
// to execute a named external action and feed back its result.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// LLMOptions carries per-request knobs. A nil options pointer means provider
// defaults.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
	TopP        float64
}

// LLMResponse is the normalized response shape shared by every provider, no
// matter which wire API produced it. Callers never see raw provider payloads.
type LLMResponse struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        map[string]int
}

// TotalTokens sums the usage counters when the provider reported them.
func (r *LLMResponse) TotalTokens() int {
	if r == nil || r.Usage == nil {
		return 0
	}
	if total, ok := r.Usage["total_tokens"]; ok {
		return total
	}
	return r.Usage["prompt_tokens"] + r.Usage["completion_tokens"]
}

// LanguageModel abstracts a remote completion provider. Implementations are
// responsible for normalizing their wire format into LLMResponse so agents
// stay provider-agnostic.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)
	Chat(ctx context.Context, messages []Message, options *LLMOptions) (*LLMResponse, error)
	ChatWithTools(ctx context.Context, messages []Message, tools []Tool, options *LLMOptions) (*LLMResponse, error)
}
