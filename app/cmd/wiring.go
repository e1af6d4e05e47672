package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lexcodex/parley/agents"
	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
	"github.com/lexcodex/parley/llm"
	"github.com/lexcodex/parley/orchestrator"
	"github.com/lexcodex/parley/tools"
)

// runtime is everything a run or resume invocation needs, assembled once
// from the global config.
type runtime struct {
	orch    orchestrator.Orchestrator
	store   *debate.Manager
	closers []io.Closer
}

func (r *runtime) Close() {
	for _, c := range r.closers {
		_ = c.Close()
	}
}

// buildRuntime assembles providers, agents, judge, store, and telemetry from
// the loaded configuration.
func buildRuntime(answerer orchestrator.Answerer) (*runtime, error) {
	cfg := globalCfg
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := framework.NewStderrLogger(cfg.Logging.Verbose)
	rt := &runtime{}

	telemetry, err := buildTelemetry(cfg, rt)
	if err != nil {
		return nil, err
	}

	models := map[string]framework.LanguageModel{}
	for name, provider := range cfg.Providers {
		model, err := buildModel(provider, telemetry, cfg.Logging.LLMDebug)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		models[name] = model
	}

	store, err := debate.NewManager(cfg.StateDir)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = store

	var transcript *debate.Transcript
	if cfg.TranscriptPath != "" {
		transcript, err = debate.NewTranscript(cfg.TranscriptPath)
		if err != nil {
			logger.Printf("transcript index unavailable, continuing without: %v", err)
		} else {
			rt.closers = append(rt.closers, transcript)
		}
	}

	registry := framework.NewToolRegistry()
	if err := registry.Register(tools.NewScratchpadTool()); err != nil {
		rt.Close()
		return nil, err
	}
	if err := registry.Register(tools.NewBriefTool()); err != nil {
		rt.Close()
		return nil, err
	}

	policy := agents.SummarizationPolicy{
		Enabled:   cfg.Debate.Summarization.Enabled,
		Threshold: cfg.Debate.Summarization.Threshold,
		MaxLength: cfg.Debate.Summarization.MaxLength,
		Method:    cfg.Debate.Summarization.Method,
	}

	provenance := map[string]debate.PromptProvenance{}
	var debaters []*agents.Debater
	for _, agentCfg := range cfg.Agents {
		model := models[agentCfg.Provider]
		deps := agents.BuildDeps{
			Model:          model,
			Summarizer:     model,
			Tools:          registry,
			Logger:         logger,
			Telemetry:      telemetry,
			Policy:         policy,
			UseFullHistory: cfg.Debate.UseFullHistory,
		}
		debater, prov, err := agents.NewDebater(withProviderModel(agentCfg, cfg), deps)
		if err != nil {
			rt.Close()
			return nil, err
		}
		debaters = append(debaters, debater)
		provenance[agentCfg.ID] = prov
	}

	judgeModel := models[cfg.Judge.Provider]
	judge, judgeProv, err := agents.NewJudge(withProviderModel(cfg.Judge, cfg), cfg.Debate.SynthesisMethod, agents.BuildDeps{
		Model:          judgeModel,
		Tools:          registry,
		Logger:         logger,
		Telemetry:      telemetry,
		UseFullHistory: cfg.Debate.UseFullHistory,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	provenance[cfg.Judge.ID] = judgeProv

	orch, err := orchestrator.New(orchestrator.Config{
		Rounds:               cfg.Debate.Rounds,
		Termination:          cfg.Debate.Termination,
		SynthesisMethod:      cfg.Debate.SynthesisMethod,
		UseFullHistory:       cfg.Debate.UseFullHistory,
		RoundTimeout:         time.Duration(cfg.Debate.RoundTimeoutSeconds) * time.Second,
		Implementation:       cfg.Debate.Implementation,
		ClarificationEnabled: cfg.Debate.ClarificationEnabled,
		MaxClarifications:    cfg.Debate.MaxClarifications,
	}, orchestrator.Deps{
		Store:      store,
		Debaters:   debaters,
		Judge:      judge,
		Answerer:   answerer,
		Logger:     logger,
		Telemetry:  telemetry,
		Transcript: transcript,
		Provenance: provenance,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.orch = orch
	return rt, nil
}

func buildTelemetry(cfg *agents.GlobalConfig, rt *runtime) (framework.Telemetry, error) {
	if cfg.Logging.TelemetryFile == "" {
		return nil, nil
	}
	sink, err := framework.NewJSONFileTelemetry(cfg.Logging.TelemetryFile)
	if err != nil {
		return nil, fmt.Errorf("telemetry file: %w", err)
	}
	rt.closers = append(rt.closers, sink)
	return sink, nil
}

func buildModel(provider agents.ProviderConfig, telemetry framework.Telemetry, debug bool) (framework.LanguageModel, error) {
	switch provider.Kind {
	case "openai", "":
		client, err := llm.NewOpenAIClient(provider.KeyEnv, provider.Model)
		if err != nil {
			return nil, err
		}
		if provider.BaseURL != "" {
			client.BaseURL = provider.BaseURL
		}
		client.Debug = debug
		if telemetry == nil {
			return client, nil
		}
		client.Telemetry = telemetry
		return llm.NewInstrumentedModel(client, telemetry, debug), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", provider.Kind)
	}
}

// withProviderModel fills an agent's model name from its provider when the
// agent entry leaves it blank.
func withProviderModel(agentCfg agents.AgentConfig, cfg *agents.GlobalConfig) agents.AgentConfig {
	if agentCfg.Model == "" {
		if provider, ok := cfg.Providers[agentCfg.Provider]; ok {
			agentCfg.Model = provider.Model
		}
	}
	return agentCfg
}
