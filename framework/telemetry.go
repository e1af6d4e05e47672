package framework

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events.
type EventType string

const (
	EventDebateStart        EventType = "debate_start"
	EventDebateFinish       EventType = "debate_finish"
	EventDebateSuspend      EventType = "debate_suspend"
	EventRoundStart         EventType = "round_start"
	EventPhaseStart         EventType = "phase_start"
	EventPhaseFinish        EventType = "phase_finish"
	EventAgentCompletion    EventType = "agent_completion"
	EventToolCall           EventType = "tool_call"
	EventToolResult         EventType = "tool_result"
	EventSummarization      EventType = "summarization"
	EventProviderFallback   EventType = "provider_fallback"
	EventCheckpointCreated  EventType = "checkpoint_created"
	EventCheckpointRestored EventType = "checkpoint_restored"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType              `json:"type"`
	DebateID  string                 `json:"debate_id,omitempty"`
	AgentID   string                 `json:"agent_id,omitempty"`
	Round     int                    `json:"round,omitempty"`
	Phase     string                 `json:"phase,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry captures execution traces emitted by the debate runtime.
// Production deployments can forward events to an external backend, while
// tests typically swap in lightweight collectors.
type Telemetry interface {
	Emit(event Event)
}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		s.Emit(event)
	}
}

// JSONFileTelemetry writes events as newline-delimited JSON to a file so
// external tools can tail and process the stream in real time.
type JSONFileTelemetry struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the log file.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// LoggerTelemetry emits events via the standard logger. Intentionally tiny
// yet immensely helpful while debugging debates locally because every phase
// transition becomes visible without extra tooling.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] debate=%s agent=%s round=%d phase=%s msg=%s meta=%v\n",
		event.Type, event.DebateID, event.AgentID, event.Round, event.Phase, event.Message, event.Metadata)
}
