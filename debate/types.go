// Package debate contains the domain model and durable store for multi-agent
// debates.
package debate

import (
	"time"

	"github.com/lexcodex/parley/framework"
)

// Status represents the lifecycle state of a debate.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusSuspended Status = "suspended"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status admits no further structural mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ContributionType discriminates what an agent contributed in a round.
type ContributionType string

const (
	ContributionProposal   ContributionType = "proposal"
	ContributionCritique   ContributionType = "critique"
	ContributionRefinement ContributionType = "refinement"
)

// ContributionMetadata captures how a contribution was produced.
type ContributionMetadata struct {
	LatencyMS int64                `json:"latency_ms,omitempty"`
	Tokens    map[string]int       `json:"tokens,omitempty"`
	Model     string               `json:"model,omitempty"`
	ToolTrace *framework.ToolTrace `json:"tool_trace,omitempty"`
}

// Contribution is one agent's proposal, critique, or refinement within a
// round. Immutable once appended.
type Contribution struct {
	AgentID       string               `json:"agent_id"`
	AgentRole     string               `json:"agent_role"`
	Type          ContributionType     `json:"type"`
	TargetAgentID string               `json:"target_agent_id,omitempty"`
	Content       string               `json:"content"`
	Metadata      ContributionMetadata `json:"metadata"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Summary is the per-agent, per-round compression of that agent's own
// proposal/refinement content. Critiques, authored or received, are never
// part of what gets summarized.
type Summary struct {
	AgentID     string    `json:"agent_id"`
	Text        string    `json:"text"`
	BeforeChars int       `json:"before_chars"`
	AfterChars  int       `json:"after_chars"`
	Method      string    `json:"method"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Round is one complete propose/critique/refine pass across all agents.
type Round struct {
	Number        int                `json:"number"`
	StartedAt     time.Time          `json:"started_at"`
	Contributions []Contribution     `json:"contributions"`
	Summaries     map[string]Summary `json:"summaries,omitempty"`
}

// ClarificationQuestion is one question an agent asked before round one,
// optionally answered by the user.
type ClarificationQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Answered bool   `json:"answered"`
}

// ClarificationSet batches clarification questions per agent id.
type ClarificationSet map[string][]ClarificationQuestion

// AnsweredCount reports how many questions carry an answer.
func (c ClarificationSet) AnsweredCount() int {
	count := 0
	for _, questions := range c {
		for _, q := range questions {
			if q.Answered {
				count++
			}
		}
	}
	return count
}

// SynthesisResult is the judge's final recommendation.
type SynthesisResult struct {
	Recommendation string         `json:"recommendation"`
	Method         string         `json:"method"`
	Model          string         `json:"model,omitempty"`
	Tokens         map[string]int `json:"tokens,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// PromptProvenance records where an agent's role prompts came from.
type PromptProvenance struct {
	Source string `json:"source"` // built-in | file
	Path   string `json:"path,omitempty"`
}

// Suspension captures where a suspended debate should resume.
type Suspension struct {
	Phase                 string    `json:"phase"`
	Round                 int       `json:"round"`
	PendingClarifications bool      `json:"pending_clarifications"`
	SuspendedAt           time.Time `json:"suspended_at"`
}

// State is the append-only document persisted per debate. Mutated only via
// the Manager; immutable once terminal.
type State struct {
	ID             string                      `json:"id"`
	Status         Status                      `json:"status"`
	Problem        string                      `json:"problem"`
	Rounds         []Round                     `json:"rounds"`
	Synthesis      *SynthesisResult            `json:"synthesis,omitempty"`
	UserFeedback   *int                        `json:"user_feedback,omitempty"`
	Clarifications ClarificationSet            `json:"clarifications,omitempty"`
	Provenance     map[string]PromptProvenance `json:"provenance,omitempty"`
	Suspension     *Suspension                 `json:"suspension,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// CurrentRound returns the active round, or nil when none has begun.
func (s *State) CurrentRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// ContributionsBy collects an agent's contributions of the given types across
// all rounds, in round order. With no type filter all contributions match.
func (s *State) ContributionsBy(agentID string, types ...ContributionType) []Contribution {
	var matched []Contribution
	for _, round := range s.Rounds {
		for _, c := range round.Contributions {
			if c.AgentID != agentID {
				continue
			}
			if len(types) == 0 || containsType(types, c.Type) {
				matched = append(matched, c)
			}
		}
	}
	return matched
}

// CritiquesOf collects critiques addressed to the given agent in a round.
func (r *Round) CritiquesOf(agentID string) []Contribution {
	var matched []Contribution
	for _, c := range r.Contributions {
		if c.Type == ContributionCritique && c.TargetAgentID == agentID {
			matched = append(matched, c)
		}
	}
	return matched
}

// LatestProposal returns an agent's most recent proposal or refinement in the
// round, preferring refinements since they supersede the opening proposal.
func (r *Round) LatestProposal(agentID string) (Contribution, bool) {
	var found Contribution
	ok := false
	for _, c := range r.Contributions {
		if c.AgentID != agentID {
			continue
		}
		if c.Type == ContributionProposal || c.Type == ContributionRefinement {
			found = c
			ok = true
		}
	}
	return found, ok
}

// CountByType reports how many contributions of the type the round holds.
func (r *Round) CountByType(t ContributionType) int {
	count := 0
	for _, c := range r.Contributions {
		if c.Type == t {
			count++
		}
	}
	return count
}

func containsType(types []ContributionType, t ContributionType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
