package framework

import "sync"

// State is the ambient key/value store passed to tool executions. It carries
// debate-scoped context (problem text, clarification answers, shared notes)
// without coupling tools to the orchestration layer.
type State struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewState builds an empty state.
func NewState() *State {
	return &State{values: make(map[string]interface{})}
}

// Set stores a value.
func (s *State) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get retrieves a value.
func (s *State) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// GetString retrieves a string value, returning "" when absent or mistyped.
func (s *State) GetString(key string) string {
	value, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

// Append adds an entry to a string-slice value, creating it when missing.
func (s *State) Append(key, entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, _ := s.values[key].([]string)
	s.values[key] = append(existing, entry)
}

// Entries returns a copy of a string-slice value.
func (s *State) Entries(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, _ := s.values[key].([]string)
	return append([]string(nil), existing...)
}
