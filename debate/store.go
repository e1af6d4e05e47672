package debate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by the Manager. They mark orchestrator logic
// errors and are never retried.
var (
	// ErrNotFound means no document exists for the debate id.
	ErrNotFound = errors.New("debate not found")
	// ErrNoActiveRound means a contribution or summary targeted a debate
	// before any round was begun.
	ErrNoActiveRound = errors.New("no active round")
	// ErrTerminal means the debate already reached a terminal status.
	ErrTerminal = errors.New("debate is terminal")
)

// Manager owns the persisted debate documents: one JSON file per debate id
// under a base directory. Every mutation is a full-document rewrite and disk
// is the sole source of truth, so a freshly constructed Manager pointed at
// the same directory observes every prior mutation. Single-writer-at-a-time
// per debate id is assumed; the mutex only serializes within this process.
type Manager struct {
	baseDir string
	mu      sync.Mutex
}

// NewManager creates the base directory when missing.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		return nil, errors.New("state directory required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{baseDir: baseDir}, nil
}

func (m *Manager) pathFor(id string) string {
	return filepath.Join(m.baseDir, id+".json")
}

// CreateDebate allocates an id and writes the initial running document with
// zero rounds.
func (m *Manager) CreateDebate(problem string) (*State, error) {
	if strings.TrimSpace(problem) == "" {
		return nil, errors.New("problem text required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	state := &State{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		Problem:   problem,
		Rounds:    []Round{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.write(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Load reads a debate document from disk.
func (m *Manager) Load(id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(id)
}

// List returns the ids of all stored debates, sorted for stable output.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// BeginRound appends the next-numbered round and makes it current.
func (m *Manager) BeginRound(id string) (int, error) {
	var number int
	err := m.mutate(id, func(state *State) error {
		number = len(state.Rounds) + 1
		state.Rounds = append(state.Rounds, Round{
			Number:    number,
			StartedAt: time.Now().UTC(),
		})
		return nil
	})
	return number, err
}

// AddContribution appends to the current round. Deliberately a hard
// precondition: with no active round the call fails so orchestrator ordering
// bugs surface immediately instead of being silently absorbed.
func (m *Manager) AddContribution(id string, c Contribution) error {
	return m.mutate(id, func(state *State) error {
		round := state.CurrentRound()
		if round == nil {
			return fmt.Errorf("add contribution: %w", ErrNoActiveRound)
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		round.Contributions = append(round.Contributions, c)
		return nil
	})
}

// AddSummary stores a per-agent summary on the current round. Idempotent per
// agent per round: a second call overwrites rather than duplicates.
func (m *Manager) AddSummary(id string, s Summary) error {
	return m.mutate(id, func(state *State) error {
		round := state.CurrentRound()
		if round == nil {
			return fmt.Errorf("add summary: %w", ErrNoActiveRound)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
		if round.Summaries == nil {
			round.Summaries = make(map[string]Summary)
		}
		round.Summaries[s.AgentID] = s
		return nil
	})
}

// SetClarifications records the pre-round-one question batches.
func (m *Manager) SetClarifications(id string, set ClarificationSet) error {
	return m.mutate(id, func(state *State) error {
		state.Clarifications = set
		return nil
	})
}

// SetProvenance records where each agent's prompts were loaded from.
func (m *Manager) SetProvenance(id string, provenance map[string]PromptProvenance) error {
	return m.mutate(id, func(state *State) error {
		state.Provenance = provenance
		return nil
	})
}

// SetSynthesis stores the judge's recommendation.
func (m *Manager) SetSynthesis(id string, result SynthesisResult) error {
	return m.mutate(id, func(state *State) error {
		if result.CreatedAt.IsZero() {
			result.CreatedAt = time.Now().UTC()
		}
		state.Synthesis = &result
		return nil
	})
}

// SetStatus transitions the debate status. Entering a terminal status clears
// any suspension record.
func (m *Manager) SetStatus(id string, status Status) error {
	return m.mutate(id, func(state *State) error {
		state.Status = status
		if status.Terminal() {
			state.Suspension = nil
		}
		return nil
	})
}

// SetSuspension records (or clears, with nil) the resume point.
func (m *Manager) SetSuspension(id string, suspension *Suspension) error {
	return m.mutate(id, func(state *State) error {
		state.Suspension = suspension
		return nil
	})
}

// SetUserFeedback records the integer feedback score. This is the one
// mutation allowed after a debate completes.
func (m *Manager) SetUserFeedback(id string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := m.read(id)
	if err != nil {
		return err
	}
	state.UserFeedback = &score
	return m.write(state)
}

// mutate runs a read-modify-write cycle with the terminal guard applied.
func (m *Manager) mutate(id string, apply func(*State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := m.read(id)
	if err != nil {
		return err
	}
	if state.Status.Terminal() {
		return fmt.Errorf("debate %s: %w", id, ErrTerminal)
	}
	if err := apply(state); err != nil {
		return err
	}
	return m.write(state)
}

func (m *Manager) read(id string) (*State, error) {
	data, err := os.ReadFile(m.pathFor(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("debate %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("debate %s: corrupt document: %w", id, err)
	}
	return &state, nil
}

func (m *Manager) write(state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.pathFor(state.ID), data, 0o644)
}
