package framework

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedTool struct {
	name string
}

func (t *namedTool) Name() string                                       { return t.name }
func (t *namedTool) Description() string                                { return "named" }
func (t *namedTool) Category() string                                   { return "test" }
func (t *namedTool) Parameters() []ToolParameter                        { return nil }
func (t *namedTool) IsAvailable(ctx context.Context, state *State) bool { return true }

func (t *namedTool) Execute(ctx context.Context, state *State, args map[string]interface{}) (*ToolResult, error) {
	return ToolSuccess(nil), nil
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	registry := NewToolRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, registry.Register(&namedTool{name: name}))
	}

	var names []string
	for _, tool := range registry.All() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, 3, registry.Len())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewToolRegistry()
	require.NoError(t, registry.Register(&namedTool{name: "dup"}))
	assert.Error(t, registry.Register(&namedTool{name: "dup"}))
}

func TestStateAppendAndEntries(t *testing.T) {
	state := NewState()
	state.Append("notes", "first")
	state.Append("notes", "second")
	assert.Equal(t, []string{"first", "second"}, state.Entries("notes"))

	state.Set("problem", "design a cache")
	assert.Equal(t, "design a cache", state.GetString("problem"))
	assert.Empty(t, state.GetString("absent"))
}

func TestJSONFileTelemetryWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	sink, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)

	sink.Emit(Event{Type: EventDebateStart, DebateID: "d-1", Timestamp: time.Now().UTC()})
	sink.Emit(Event{Type: EventRoundStart, DebateID: "d-1", Round: 1, Timestamp: time.Now().UTC()})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	require.Len(t, events, 2)
	assert.Equal(t, EventDebateStart, events[0].Type)
	assert.Equal(t, 1, events[1].Round)
}

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(event Event) {
	c.events = append(c.events, event)
}

func TestMultiplexFansOut(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	multi := MultiplexTelemetry{Sinks: []Telemetry{first, second}}

	multi.Emit(Event{Type: EventToolCall})
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, EventToolCall, second.events[0].Type)
}
