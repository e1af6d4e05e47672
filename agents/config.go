package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configDirName = "parley_cfg"

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns parley_cfg/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// AgentConfig describes one debate participant.
type AgentConfig struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	Role              string  `yaml:"role"`
	Model             string  `yaml:"model"`
	Provider          string  `yaml:"provider"`
	Temperature       float64 `yaml:"temperature"`
	MaxToolIterations int     `yaml:"max_tool_iterations"`
	PromptFile        string  `yaml:"prompt_file"`
}

// ProviderConfig names a completion provider and its credential source.
type ProviderConfig struct {
	Kind    string `yaml:"kind"`
	KeyEnv  string `yaml:"key_env"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SummarizationConfig controls the context-compression policy.
type SummarizationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Threshold int    `yaml:"threshold"`
	MaxLength int    `yaml:"max_length"`
	Method    string `yaml:"method"`
}

// DebateConfig holds the orchestration knobs.
type DebateConfig struct {
	Rounds               int                 `yaml:"rounds"`
	Termination          string              `yaml:"termination"`
	SynthesisMethod      string              `yaml:"synthesis_method"`
	UseFullHistory       bool                `yaml:"use_full_history"`
	RoundTimeoutSeconds  int                 `yaml:"round_timeout_seconds"`
	Summarization        SummarizationConfig `yaml:"summarization"`
	Implementation       string              `yaml:"implementation"`
	ClarificationEnabled bool                `yaml:"clarification_enabled"`
	MaxClarifications    int                 `yaml:"max_clarifications"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Verbose       bool   `yaml:"verbose"`
	TelemetryFile string `yaml:"telemetry_file"`
	LLMDebug      bool   `yaml:"llm_debug"`
}

// GlobalConfig matches parley_cfg/config.yaml inside the workspace.
type GlobalConfig struct {
	Version        string                    `yaml:"version"`
	StateDir       string                    `yaml:"state_dir"`
	TranscriptPath string                    `yaml:"transcript_path"`
	Providers      map[string]ProviderConfig `yaml:"providers"`
	Agents         []AgentConfig             `yaml:"agents"`
	Judge          AgentConfig               `yaml:"judge"`
	Debate         DebateConfig              `yaml:"debate"`
	Logging        LoggingConfig             `yaml:"logging"`
}

// DefaultGlobalConfig returns the defaults used when no config file exists:
// two rounds, four debaters plus a judge, summarization on at a conservative
// threshold.
func DefaultGlobalConfig(workspace string) *GlobalConfig {
	return &GlobalConfig{
		Version:        "1.0.0",
		StateDir:       filepath.Join(ConfigDir(workspace), "debates"),
		TranscriptPath: filepath.Join(ConfigDir(workspace), "transcript.db"),
		Providers: map[string]ProviderConfig{
			"openai": {Kind: "openai", KeyEnv: "OPENAI_API_KEY", Model: "gpt-4o-mini"},
		},
		Agents: []AgentConfig{
			{ID: "architect", Name: "Architect", Role: "architect", Provider: "openai", Temperature: 0.7},
			{ID: "pragmatist", Name: "Pragmatist", Role: "pragmatist", Provider: "openai", Temperature: 0.5},
			{ID: "skeptic", Name: "Skeptic", Role: "skeptic", Provider: "openai", Temperature: 0.6},
			{ID: "innovator", Name: "Innovator", Role: "innovator", Provider: "openai", Temperature: 0.9},
		},
		Judge: AgentConfig{ID: "judge", Name: "Judge", Role: "judge", Provider: "openai", Temperature: 0.3},
		Debate: DebateConfig{
			Rounds:               2,
			SynthesisMethod:      "judge",
			UseFullHistory:       false,
			Summarization:        SummarizationConfig{Enabled: true, Threshold: 6000, MaxLength: 1500, Method: "llm"},
			Implementation:       "classic",
			ClarificationEnabled: false,
			MaxClarifications:    3,
		},
	}
}

// LoadGlobalConfig loads the config or returns defaults when missing.
func LoadGlobalConfig(path, workspace string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultGlobalConfig(workspace), nil
		}
		return nil, err
	}
	cfg := DefaultGlobalConfig(workspace)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveGlobalConfig writes the config to disk.
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the engine cannot run.
func (c *GlobalConfig) Validate() error {
	if len(c.Agents) < 2 {
		return fmt.Errorf("debate requires at least 2 agents, got %d", len(c.Agents))
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, agent := range c.Agents {
		if agent.ID == "" {
			return errors.New("agent id required")
		}
		if seen[agent.ID] {
			return fmt.Errorf("duplicate agent id %q", agent.ID)
		}
		seen[agent.ID] = true
		if _, ok := c.Providers[agent.Provider]; !ok {
			return fmt.Errorf("agent %q references unknown provider %q", agent.ID, agent.Provider)
		}
	}
	if c.Judge.ID == "" {
		return errors.New("judge configuration required")
	}
	if _, ok := c.Providers[c.Judge.Provider]; !ok {
		return fmt.Errorf("judge references unknown provider %q", c.Judge.Provider)
	}
	if c.Debate.Rounds < 1 {
		return fmt.Errorf("debate requires at least 1 round, got %d", c.Debate.Rounds)
	}
	return nil
}
