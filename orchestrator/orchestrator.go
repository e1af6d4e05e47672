package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexcodex/parley/agents"
	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
)

// Implementation selectors accepted by New.
const (
	ImplClassic = "classic"
	ImplMachine = "machine"
)

// ErrResumeUnsupported is returned by orchestrators that run in one pass and
// cannot pick a debate back up mid-phase.
var ErrResumeUnsupported = errors.New("orchestrator does not support resumption")

// Answerer collects the user's answers to the clarification questions the
// agents raised before round one. Implementations range from a terminal UI
// to reading a prepared answers file.
type Answerer interface {
	Answer(ctx context.Context, problem string, questions debate.ClarificationSet) (debate.ClarificationSet, error)
}

// Orchestrator drives a debate from problem statement to synthesis.
type Orchestrator interface {
	// Run creates a debate and drives it to completion, or to suspension
	// when an interactive step cannot be satisfied in this process.
	Run(ctx context.Context, problem string) (*debate.State, error)
	// Resume continues a previously suspended debate.
	Resume(ctx context.Context, debateID string) (*debate.State, error)
}

// Config is the tunable surface shared by both implementations.
type Config struct {
	Rounds               int
	Termination          string
	SynthesisMethod      string
	UseFullHistory       bool
	RoundTimeout         time.Duration
	Implementation       string
	ClarificationEnabled bool
	MaxClarifications    int
}

// Deps carries the collaborators an orchestrator coordinates. Debaters is
// the registration order; persisted contribution order follows it regardless
// of completion order.
type Deps struct {
	Store      *debate.Manager
	Debaters   []*agents.Debater
	Judge      *agents.Judge
	Answerer   Answerer
	Logger     framework.Logger
	Telemetry  framework.Telemetry
	Transcript *debate.Transcript
	Provenance map[string]debate.PromptProvenance
}

// New selects an implementation from configuration. The choice is logged so
// run output records which lifecycle was in effect.
func New(cfg Config, deps Deps) (Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("orchestrator: store is required")
	}
	if len(deps.Debaters) < 2 {
		return nil, errors.New("orchestrator: at least two debaters required")
	}
	if deps.Judge == nil {
		return nil, errors.New("orchestrator: judge is required")
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	logger := framework.EnsureLogger(deps.Logger)
	deps.Logger = logger

	base := engine{cfg: cfg, deps: deps}
	switch cfg.Implementation {
	case ImplMachine:
		logger.Printf("orchestrator: using state-machine implementation (%d rounds)", cfg.Rounds)
		return &Machine{engine: base}, nil
	case ImplClassic, "":
		logger.Printf("orchestrator: using classic implementation (%d rounds)", cfg.Rounds)
		return &Classic{engine: base}, nil
	default:
		return nil, fmt.Errorf("orchestrator: unknown implementation %q", cfg.Implementation)
	}
}
