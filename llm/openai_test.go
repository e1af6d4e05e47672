package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/parley/framework"
)

func newTestClient(t *testing.T, handler http.Handler) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("PARLEY_TEST_KEY", "sk-test")
	client, err := NewOpenAIClient("PARLEY_TEST_KEY", "gpt-test")
	require.NoError(t, err)
	client.BaseURL = server.URL
	return client, server
}

func TestNewOpenAIClientMissingKey(t *testing.T) {
	t.Setenv("PARLEY_EMPTY_KEY", "   ")
	_, err := NewOpenAIClient("PARLEY_EMPTY_KEY", "gpt-test")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestChatPrefersResponsesEndpoint(t *testing.T) {
	var responsesHits, chatHits int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case responsesPath:
			atomic.AddInt32(&responsesHits, 1)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "completed",
				"output": []map[string]interface{}{
					{
						"type": "message",
						"role": "assistant",
						"content": []map[string]interface{}{
							{"type": "output_text", "text": "use a write-through cache"},
						},
					},
				},
				"usage": map[string]int{"input_tokens": 12, "output_tokens": 5, "total_tokens": 17},
			})
		case chatCompletionsPath:
			atomic.AddInt32(&chatHits, 1)
			http.Error(w, "should not be called", http.StatusInternalServerError)
		}
	}))

	resp, err := client.Chat(context.Background(), []framework.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "use a write-through cache", resp.Text)
	assert.Equal(t, 12, resp.Usage["prompt_tokens"])
	assert.Equal(t, 5, resp.Usage["completion_tokens"])
	assert.Equal(t, 17, resp.TotalTokens())
	assert.EqualValues(t, 1, atomic.LoadInt32(&responsesHits))
	assert.EqualValues(t, 0, atomic.LoadInt32(&chatHits))
}

func TestChatFallsBackWhenResponsesFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case responsesPath:
			http.Error(w, "not available", http.StatusNotFound)
		case chatCompletionsPath:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{
						"finish_reason": "tool_calls",
						"message": map[string]interface{}{
							"content": "",
							"tool_calls": []map[string]interface{}{
								{
									"id":   "call_1",
									"type": "function",
									"function": map[string]interface{}{
										"name":      "scratchpad",
										"arguments": `{"note":"tradeoffs"}`,
									},
								},
							},
						},
					},
				},
				"usage": map[string]int{"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12},
			})
		}
	}))

	resp, err := client.Chat(context.Background(), []framework.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "scratchpad", resp.ToolCalls[0].Name)
	assert.Equal(t, "tradeoffs", resp.ToolCalls[0].Args["note"])
	assert.Equal(t, 12, resp.TotalTokens())
}

func TestChatFallsBackOnUnrecognizableShape(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case responsesPath:
			// 200 OK but no output text and no tool calls.
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "incomplete"})
		case chatCompletionsPath:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{
						"finish_reason": "stop",
						"message":       map[string]interface{}{"content": "fallback text"},
					},
				},
			})
		}
	}))

	resp, err := client.Chat(context.Background(), []framework.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback text", resp.Text)
}

func TestChatFailsWhenBothPathsFail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))

	resp, err := client.Chat(context.Background(), []framework.Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "both completion paths failed")
}

func TestResponsesToolCallDecoding(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, responsesPath, r.URL.Path)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.NotEmpty(t, payload["tools"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "completed",
			"output": []map[string]interface{}{
				{
					"type":      "function_call",
					"call_id":   "call_9",
					"name":      "brief",
					"arguments": `{"section":"constraints"}`,
				},
			},
		})
	}))

	tools := []framework.Tool{stubTool{name: "brief"}}
	resp, err := client.ChatWithTools(context.Background(), []framework.Message{{Role: "user", Content: "hi"}}, tools, nil)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "brief", resp.ToolCalls[0].Name)
	assert.Equal(t, "constraints", resp.ToolCalls[0].Args["section"])
}

type stubTool struct {
	name string
}

func (s stubTool) Name() string        { return s.name }
func (s stubTool) Description() string { return "stub" }
func (s stubTool) Category() string    { return "test" }
func (s stubTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "section", Type: "string", Required: true}}
}
func (s stubTool) Execute(ctx context.Context, state *framework.State, args map[string]interface{}) (*framework.ToolResult, error) {
	return framework.ToolSuccess(nil), nil
}
func (s stubTool) IsAvailable(ctx context.Context, state *framework.State) bool { return true }
