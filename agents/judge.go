package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
)

// Judge synthesizes the final recommendation from the full debate record.
// It never proposes, critiques, or refines.
type Judge struct {
	Agent
	Prompts        RolePrompts
	Method         string
	UseFullHistory bool
}

// Synthesize walks every round and produces the judge's recommendation. With
// full history off, an agent's persisted summary replaces its raw
// proposal/refinement text for the rounds the summary covers; agents without
// a summary always contribute in full.
func (j *Judge) Synthesize(ctx context.Context, st *debate.State, toolState *framework.State) (debate.SynthesisResult, error) {
	transcript := j.transcript(st)
	prompt := synthesisPrompt(st.Problem, FormatClarifications(st.Clarifications), transcript, j.Method)
	start := time.Now()
	result, err := j.CompleteWithTools(ctx, j.Prompts.System(j.Name), prompt, toolState)
	if err != nil {
		return debate.SynthesisResult{}, fmt.Errorf("judge %s: synthesize: %w", j.ID, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return debate.SynthesisResult{}, fmt.Errorf("judge %s: empty synthesis after %s", j.ID, time.Since(start))
	}
	return debate.SynthesisResult{
		Recommendation: result.Text,
		Method:         j.Method,
		Model:          j.Options.Model,
		Tokens:         result.Usage,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (j *Judge) transcript(st *debate.State) string {
	summarized := map[string]int{}
	if !j.UseFullHistory {
		summarized = latestSummaryRounds(st)
	}
	var sb strings.Builder
	for _, round := range st.Rounds {
		fmt.Fprintf(&sb, "=== Round %d ===\n", round.Number)
		for _, c := range round.Contributions {
			if stored, ok := summarized[c.AgentID]; ok && round.Number < stored &&
				(c.Type == debate.ContributionProposal || c.Type == debate.ContributionRefinement) {
				continue
			}
			switch c.Type {
			case debate.ContributionCritique:
				fmt.Fprintf(&sb, "[%s critiques %s]\n%s\n\n", c.AgentID, c.TargetAgentID, c.Content)
			default:
				fmt.Fprintf(&sb, "[%s %s]\n%s\n\n", c.AgentID, c.Type, c.Content)
			}
		}
	}
	if !j.UseFullHistory {
		agentIDs := make([]string, 0, len(summarized))
		for agentID := range summarized {
			agentIDs = append(agentIDs, agentID)
		}
		sort.Strings(agentIDs)
		for _, agentID := range agentIDs {
			stored := summarized[agentID]
			text := summaryStoredOn(st, agentID, stored)
			fmt.Fprintf(&sb, "=== Summary of %s through round %d ===\n%s\n\n", agentID, stored-1, text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// latestSummaryRounds maps each agent id to the highest round number a
// summary is stored on for it. The summary is produced while preparing that
// round's proposal, so it compresses the rounds strictly before it; the
// round it sits on still contributes in full.
func latestSummaryRounds(st *debate.State) map[string]int {
	stored := map[string]int{}
	for _, round := range st.Rounds {
		for agentID := range round.Summaries {
			if round.Number > stored[agentID] {
				stored[agentID] = round.Number
			}
		}
	}
	return stored
}

func summaryStoredOn(st *debate.State, agentID string, roundNumber int) string {
	for _, round := range st.Rounds {
		if round.Number == roundNumber {
			if s, ok := round.Summaries[agentID]; ok {
				return s.Text
			}
		}
	}
	return ""
}

func synthesisPrompt(problem, clarifications, transcript, method string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Problem under debate:\n%s\n", problem)
	if clarifications != "" {
		fmt.Fprintf(&sb, "\nClarifications gathered from the user:\n%s\n", clarifications)
	}
	fmt.Fprintf(&sb, "\nFull debate record:\n%s\n", transcript)
	sb.WriteString("\nSynthesize a single concrete recommendation. Weigh every proposal, critique, and refinement on its merits. ")
	switch method {
	case "consensus":
		sb.WriteString("Prefer positions the debaters converged on; note dissent explicitly where it remains.")
	case "ranked":
		sb.WriteString("Rank the final proposals from strongest to weakest, then recommend the strongest with your reasoning.")
	default:
		sb.WriteString("State the recommendation first, then the key trade-offs that drove it.")
	}
	return sb.String()
}
