package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lexcodex/parley/framework"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com"
	responsesPath        = "/v1/responses"
	chatCompletionsPath  = "/v1/chat/completions"
)

// ErrMissingAPIKey marks a configuration error: the credential environment
// variable is unset or blank. Callers map it to a dedicated exit code rather
// than treating it as a runtime failure.
var ErrMissingAPIKey = errors.New("api key missing")

// OpenAIClient implements framework.LanguageModel against the OpenAI API.
// Every call first attempts the newer Responses endpoint and falls back to
// classic chat completions when the call fails or yields no recognizable
// output. Both paths normalize into framework.LLMResponse so callers are
// fallback-agnostic.
type OpenAIClient struct {
	BaseURL string
	Model   string
	Debug   bool

	// Telemetry, when set, receives a provider_fallback event each time a
	// call routes through chat completions.
	Telemetry framework.Telemetry

	apiKey string
	client *http.Client
}

// NewOpenAIClient reads the API key from the named environment variable.
func NewOpenAIClient(envVar, model string) (*OpenAIClient, error) {
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, envVar)
	}
	return &OpenAIClient{
		BaseURL: defaultOpenAIBaseURL,
		Model:   model,
		apiKey:  key,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}, nil
}

// Generate implements single prompt completion.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return c.complete(ctx, []framework.Message{{Role: "user", Content: prompt}}, nil, options)
}

// Chat implements chat style conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return c.complete(ctx, messages, nil, options)
}

// ChatWithTools handles tool calling metadata.
func (c *OpenAIClient) ChatWithTools(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return c.complete(ctx, messages, tools, options)
}

// complete is the attempt/fallback combinator. The Responses endpoint is
// tried first; any error, or a response carrying neither text nor tool
// calls, routes the same conversation through chat completions. A failure on
// both paths propagates; the client never retries on its own.
func (c *OpenAIClient) complete(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	resp, primaryErr := c.doResponses(ctx, messages, tools, options)
	if primaryErr == nil && usable(resp) {
		return resp, nil
	}
	if primaryErr != nil {
		c.logf("responses call failed, falling back to chat completions: %v", primaryErr)
	} else {
		c.logf("responses call returned no usable output, falling back to chat completions")
	}
	if c.Telemetry != nil {
		reason := "no usable output"
		if primaryErr != nil {
			reason = primaryErr.Error()
		}
		c.Telemetry.Emit(framework.Event{
			Type:      framework.EventProviderFallback,
			DebateID:  debateIDFrom(ctx),
			Message:   reason,
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]interface{}{"model": c.Model},
		})
	}
	resp, fallbackErr := c.doChatCompletions(ctx, messages, tools, options)
	if fallbackErr != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("both completion paths failed: responses: %v; chat: %w", primaryErr, fallbackErr)
		}
		return nil, fmt.Errorf("chat completions fallback failed: %w", fallbackErr)
	}
	return resp, nil
}

func usable(resp *framework.LLMResponse) bool {
	return resp != nil && (resp.Text != "" || len(resp.ToolCalls) > 0)
}

// --- Responses endpoint ---

func (c *OpenAIClient) doResponses(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	payload := map[string]interface{}{
		"model": c.model(options),
		"input": responsesInput(messages),
	}
	if len(tools) > 0 {
		payload["tools"] = responsesTools(tools)
	}
	c.applyOptions(payload, options, "max_output_tokens")
	body, err := c.doRequest(ctx, responsesPath, payload)
	if err != nil {
		return nil, err
	}
	return decodeResponsesBody(body)
}

// responsesInput converts the shared message shape into Responses API input
// items. Assistant tool calls become function_call items and tool results
// become function_call_output items; everything else is a plain message.
func responsesInput(messages []framework.Message) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		switch {
		case msg.Role == "tool":
			items = append(items, map[string]interface{}{
				"type":    "function_call_output",
				"call_id": msg.ToolCallID,
				"output":  msg.Content,
			})
		case msg.Role == "assistant" && len(msg.ToolCalls) > 0:
			if msg.Content != "" {
				items = append(items, map[string]interface{}{
					"role":    "assistant",
					"content": msg.Content,
				})
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					args = []byte("{}")
				}
				items = append(items, map[string]interface{}{
					"type":      "function_call",
					"call_id":   call.ID,
					"name":      call.Name,
					"arguments": string(args),
				})
			}
		default:
			items = append(items, map[string]interface{}{
				"role":    msg.Role,
				"content": msg.Content,
			})
		}
	}
	return items
}

// responsesTools flattens tool metadata into the Responses function format.
func responsesTools(tools []framework.Tool) []map[string]interface{} {
	defs := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, map[string]interface{}{
			"type":        "function",
			"name":        tool.Name(),
			"description": tool.Description(),
			"parameters":  parameterSchema(tool),
		})
	}
	return defs
}

type responsesBody struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type      string `json:"type"`
		Role      string `json:"role"`
		Status    string `json:"status"`
		CallID    string `json:"call_id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
		Content   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Status string `json:"status"`
	Usage  struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func decodeResponsesBody(body []byte) (*framework.LLMResponse, error) {
	var raw responsesBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	resp := &framework.LLMResponse{
		Text:         raw.OutputText,
		FinishReason: raw.Status,
	}
	var texts []string
	for _, item := range raw.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" && part.Text != "" {
					texts = append(texts, part.Text)
				}
			}
		case "function_call":
			resp.ToolCalls = append(resp.ToolCalls, framework.ToolCall{
				ID:   item.CallID,
				Name: item.Name,
				Args: parseArguments(json.RawMessage(item.Arguments)),
			})
		}
	}
	if resp.Text == "" {
		resp.Text = strings.Join(texts, "\n")
	}
	usage := make(map[string]int)
	if raw.Usage.InputTokens > 0 {
		usage["prompt_tokens"] = raw.Usage.InputTokens
	}
	if raw.Usage.OutputTokens > 0 {
		usage["completion_tokens"] = raw.Usage.OutputTokens
	}
	if raw.Usage.TotalTokens > 0 {
		usage["total_tokens"] = raw.Usage.TotalTokens
	}
	if len(usage) > 0 {
		resp.Usage = usage
	}
	return resp, nil
}

// --- Chat completions endpoint ---

func (c *OpenAIClient) doChatCompletions(ctx context.Context, messages []framework.Message, tools []framework.Tool, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	payload := map[string]interface{}{
		"model":    c.model(options),
		"messages": chatMessages(messages),
	}
	if len(tools) > 0 {
		payload["tools"] = chatTools(tools)
	}
	c.applyOptions(payload, options, "max_tokens")
	body, err := c.doRequest(ctx, chatCompletionsPath, payload)
	if err != nil {
		return nil, err
	}
	return decodeChatBody(body)
}

func chatMessages(messages []framework.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		m := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}
		if msg.Name != "" {
			m["name"] = msg.Name
		}
		if msg.ToolCallID != "" {
			m["tool_call_id"] = msg.ToolCallID
		}
		if len(msg.ToolCalls) > 0 {
			calls := make([]map[string]interface{}, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, map[string]interface{}{
					"id":   call.ID,
					"type": "function",
					"function": map[string]interface{}{
						"name":      call.Name,
						"arguments": string(args),
					},
				})
			}
			m["tool_calls"] = calls
		}
		out = append(out, m)
	}
	return out
}

func chatTools(tools []framework.Tool) []map[string]interface{} {
	defs := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        tool.Name(),
				"description": tool.Description(),
				"parameters":  parameterSchema(tool),
			},
		})
	}
	return defs
}

type chatBody struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func decodeChatBody(body []byte) (*framework.LLMResponse, error) {
	var raw chatBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	choice := raw.Choices[0]
	resp := &framework.LLMResponse{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	for _, call := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, framework.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: parseArguments(call.Function.Arguments),
		})
	}
	usage := make(map[string]int)
	if raw.Usage.PromptTokens > 0 {
		usage["prompt_tokens"] = raw.Usage.PromptTokens
	}
	if raw.Usage.CompletionTokens > 0 {
		usage["completion_tokens"] = raw.Usage.CompletionTokens
	}
	if raw.Usage.TotalTokens > 0 {
		usage["total_tokens"] = raw.Usage.TotalTokens
	}
	if len(usage) > 0 {
		resp.Usage = usage
	}
	return resp, nil
}

// --- shared plumbing ---

// parameterSchema renders a tool's parameters as a JSON-schema-like object.
func parameterSchema(tool framework.Tool) map[string]interface{} {
	props := make(map[string]interface{})
	var required []string
	for _, param := range tool.Parameters() {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		props[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (c *OpenAIClient) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return "gpt-4o-mini"
}

func (c *OpenAIClient) applyOptions(payload map[string]interface{}, options *framework.LLMOptions, maxTokensKey string) {
	if options == nil {
		return
	}
	if options.Temperature != 0 {
		payload["temperature"] = options.Temperature
	}
	if options.MaxTokens != 0 {
		payload[maxTokensKey] = options.MaxTokens
	}
	if options.TopP != 0 {
		payload["top_p"] = options.TopP
	}
}

func (c *OpenAIClient) doRequest(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logf("request %s payload: %s", path, truncate(string(body), 2048))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("openai error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("openai error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logf("response %s payload: %s", path, truncate(string(responseBody), 2048))
	return responseBody, nil
}

func (c *OpenAIClient) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return defaultOpenAIBaseURL
}

func (c *OpenAIClient) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *OpenAIClient) logf(format string, args ...interface{}) {
	if !c.Debug {
		return
	}
	log.Printf("[openai] "+format, args...)
}

func parseArguments(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		var nested map[string]interface{}
		if err := json.Unmarshal([]byte(str), &nested); err == nil {
			return nested
		}
		return map[string]interface{}{"value": str}
	}
	return map[string]interface{}{"_raw": string(raw)}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
