package agents

import (
	"fmt"

	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
)

// BuildDeps carries the shared wiring every agent receives at assembly time.
type BuildDeps struct {
	Model          framework.LanguageModel
	Summarizer     framework.LanguageModel
	Tools          *framework.ToolRegistry
	Logger         framework.Logger
	Telemetry      framework.Telemetry
	Policy         SummarizationPolicy
	UseFullHistory bool
}

// NewDebater assembles a role-specialized debater from its config entry.
func NewDebater(cfg AgentConfig, deps BuildDeps) (*Debater, debate.PromptProvenance, error) {
	prompts, provenance, err := LoadRolePreamble(cfg.Role, cfg.PromptFile)
	if err != nil {
		return nil, debate.PromptProvenance{}, fmt.Errorf("agent %s: %w", cfg.ID, err)
	}
	iterations := cfg.MaxToolIterations
	if iterations <= 0 {
		iterations = DefaultMaxToolIterations
	}
	return &Debater{
		Agent: Agent{
			ID:                cfg.ID,
			Name:              cfg.Name,
			Model:             deps.Model,
			Tools:             deps.Tools,
			Logger:            deps.Logger,
			Telemetry:         deps.Telemetry,
			MaxToolIterations: iterations,
			Options: framework.LLMOptions{
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
			},
		},
		Role:           cfg.Role,
		Prompts:        prompts,
		Policy:         deps.Policy,
		Summarizer:     deps.Summarizer,
		UseFullHistory: deps.UseFullHistory,
	}, provenance, nil
}

// NewJudge assembles the judge. The judge runs without the summarization
// policy; it reads summaries, never writes them.
func NewJudge(cfg AgentConfig, method string, deps BuildDeps) (*Judge, debate.PromptProvenance, error) {
	prompts, provenance, err := LoadRolePreamble(cfg.Role, cfg.PromptFile)
	if err != nil {
		return nil, debate.PromptProvenance{}, fmt.Errorf("judge %s: %w", cfg.ID, err)
	}
	iterations := cfg.MaxToolIterations
	if iterations <= 0 {
		iterations = DefaultMaxToolIterations
	}
	return &Judge{
		Agent: Agent{
			ID:                cfg.ID,
			Name:              cfg.Name,
			Model:             deps.Model,
			Tools:             deps.Tools,
			Logger:            deps.Logger,
			Telemetry:         deps.Telemetry,
			MaxToolIterations: iterations,
			Options: framework.LLMOptions{
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
			},
		},
		Prompts:        prompts,
		Method:         method,
		UseFullHistory: deps.UseFullHistory,
	}, provenance, nil
}
