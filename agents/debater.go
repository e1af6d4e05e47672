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

// SummarizationPolicy controls when an agent compresses its own prior work
// before building the next prompt.
type SummarizationPolicy struct {
	Enabled   bool
	Threshold int
	MaxLength int
	Method    string
}

// Debater is a role-specialized agent. It owns the template operations
// (propose, critique, refine) plus the summarization policy applied to its
// own accumulated content.
type Debater struct {
	Agent
	Role           string
	Prompts        RolePrompts
	Policy         SummarizationPolicy
	Summarizer     framework.LanguageModel
	UseFullHistory bool
}

// AgentRef identifies a peer agent in critique prompts.
type AgentRef struct {
	ID   string
	Name string
}

// Ref returns this debater's reference.
func (d *Debater) Ref() AgentRef {
	return AgentRef{ID: d.ID, Name: d.Name}
}

// OwnContentChars measures the agent's own proposal/refinement content.
// Critiques, authored or received, never count toward the threshold.
func (d *Debater) OwnContentChars(st *debate.State) int {
	total := 0
	for _, c := range st.ContributionsBy(d.ID, debate.ContributionProposal, debate.ContributionRefinement) {
		total += len(c.Content)
	}
	return total
}

// ShouldSummarize reports whether the agent's own content exceeds the
// configured threshold. Never true when the policy is disabled or history is
// empty.
func (d *Debater) ShouldSummarize(st *debate.State) bool {
	if !d.Policy.Enabled {
		return false
	}
	chars := d.OwnContentChars(st)
	return chars > 0 && chars > d.Policy.Threshold
}

// PrepareContext returns the prior-work context for the next prompt and, when
// compression happened, the summary that should be persisted. Summarization
// is best-effort: a failed call or an enabled-but-unwired summarizer logs a
// warning and falls back to the original context; correctness is never
// affected, only prompt size.
func (d *Debater) PrepareContext(ctx context.Context, st *debate.State) (string, *debate.Summary) {
	logger := framework.EnsureLogger(d.Logger)
	original := d.ownContent(st)
	if !d.ShouldSummarize(st) {
		return d.baseContext(st, original), nil
	}
	if d.Summarizer == nil {
		logger.Printf("agent %s: summarization enabled but no summarizer wired, using full context", d.ID)
		return original, nil
	}
	prompt := d.Prompts.Summarize(original, d.Policy.MaxLength)
	resp, err := d.Summarizer.Chat(ctx, []framework.Message{
		{Role: "system", Content: d.Prompts.System(d.Name)},
		{Role: "user", Content: prompt},
	}, d.options())
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		logger.Printf("agent %s: summarization failed (%v), using full context", d.ID, err)
		return original, nil
	}
	text := strings.TrimSpace(resp.Text)
	summary := &debate.Summary{
		AgentID:     d.ID,
		Text:        text,
		BeforeChars: d.OwnContentChars(st),
		AfterChars:  len(text),
		Method:      d.Policy.Method,
		Model:       d.Options.Model,
		CreatedAt:   time.Now().UTC(),
	}
	d.emitSummarization(st.ID, summary)
	return text, summary
}

// baseContext applies the full-history toggle when no compression happens
// this time: with full history off, a previously persisted summary stands in
// for the rounds strictly before the round it is stored on. The summary was
// produced while preparing that round's proposal, so that round's own
// content is not in it and is kept raw.
func (d *Debater) baseContext(st *debate.State, original string) string {
	if d.UseFullHistory {
		return original
	}
	summaryRound, summaryText := d.latestSummary(st)
	if summaryRound == 0 {
		return original
	}
	var sb strings.Builder
	sb.WriteString(summaryText)
	for _, round := range st.Rounds {
		if round.Number < summaryRound {
			continue
		}
		for _, c := range round.Contributions {
			if c.AgentID != d.ID {
				continue
			}
			if c.Type == debate.ContributionProposal || c.Type == debate.ContributionRefinement {
				fmt.Fprintf(&sb, "\n\nRound %d %s:\n%s", round.Number, c.Type, c.Content)
			}
		}
	}
	return sb.String()
}

func (d *Debater) latestSummary(st *debate.State) (int, string) {
	round := 0
	text := ""
	for _, r := range st.Rounds {
		if s, ok := r.Summaries[d.ID]; ok && r.Number > round {
			round = r.Number
			text = s.Text
		}
	}
	return round, text
}

func (d *Debater) ownContent(st *debate.State) string {
	var parts []string
	for _, round := range st.Rounds {
		for _, c := range round.Contributions {
			if c.AgentID != d.ID {
				continue
			}
			if c.Type == debate.ContributionProposal || c.Type == debate.ContributionRefinement {
				parts = append(parts, fmt.Sprintf("Round %d %s:\n%s", round.Number, c.Type, c.Content))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// Propose produces this agent's proposal for the current round. The returned
// summary is non-nil only when context compression happened and must be
// persisted by the caller.
func (d *Debater) Propose(ctx context.Context, st *debate.State, toolState *framework.State) (debate.Contribution, *debate.Summary, error) {
	priorContext, summary := d.PrepareContext(ctx, st)
	prompt := d.Prompts.Propose(st.Problem, FormatClarifications(st.Clarifications), priorContext)
	contribution, err := d.complete(ctx, debate.ContributionProposal, "", prompt, toolState)
	if err != nil {
		return debate.Contribution{}, nil, err
	}
	return contribution, summary, nil
}

// Critique reviews a peer's current proposal.
func (d *Debater) Critique(ctx context.Context, st *debate.State, target AgentRef, proposal string, toolState *framework.State) (debate.Contribution, error) {
	prompt := d.Prompts.Critique(st.Problem, target.Name, proposal)
	return d.complete(ctx, debate.ContributionCritique, target.ID, prompt, toolState)
}

// Refine revises this agent's own proposal using the critiques addressed to
// it in the current round.
func (d *Debater) Refine(ctx context.Context, st *debate.State, toolState *framework.State) (debate.Contribution, error) {
	round := st.CurrentRound()
	if round == nil {
		return debate.Contribution{}, fmt.Errorf("agent %s: refine: %w", d.ID, debate.ErrNoActiveRound)
	}
	own, ok := round.LatestProposal(d.ID)
	if !ok {
		return debate.Contribution{}, fmt.Errorf("agent %s: no proposal to refine in round %d", d.ID, round.Number)
	}
	critiques := round.CritiquesOf(d.ID)
	var sb strings.Builder
	if len(critiques) == 0 {
		sb.WriteString("(no critiques were raised against your proposal)")
	}
	for _, c := range critiques {
		fmt.Fprintf(&sb, "From %s (%s):\n%s\n\n", c.AgentID, c.AgentRole, c.Content)
	}
	prompt := d.Prompts.Refine(st.Problem, own.Content, strings.TrimSpace(sb.String()))
	return d.complete(ctx, debate.ContributionRefinement, "", prompt, toolState)
}

// ClarifyQuestions asks the model for up to limit clarifying questions about
// the problem, one per line. An empty slice means the agent needs nothing.
func (d *Debater) ClarifyQuestions(ctx context.Context, problem string, limit int) ([]string, error) {
	prompt := d.Prompts.Clarify(problem, limit)
	resp, err := d.Model.Chat(ctx, []framework.Message{
		{Role: "system", Content: d.Prompts.System(d.Name)},
		{Role: "user", Content: prompt},
	}, d.options())
	if err != nil {
		return nil, fmt.Errorf("agent %s: clarify: %w", d.ID, err)
	}
	return parseQuestions(resp.Text, limit), nil
}

func (d *Debater) complete(ctx context.Context, kind debate.ContributionType, targetID, prompt string, toolState *framework.State) (debate.Contribution, error) {
	start := time.Now()
	result, err := d.CompleteWithTools(ctx, d.Prompts.System(d.Name), prompt, toolState)
	if err != nil {
		return debate.Contribution{}, err
	}
	return debate.Contribution{
		AgentID:       d.ID,
		AgentRole:     d.Role,
		Type:          kind,
		TargetAgentID: targetID,
		Content:       result.Text,
		Metadata: debate.ContributionMetadata{
			LatencyMS: time.Since(start).Milliseconds(),
			Tokens:    result.Usage,
			Model:     d.Options.Model,
			ToolTrace: result.Trace,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (d *Debater) emitSummarization(debateID string, summary *debate.Summary) {
	if d.Telemetry == nil {
		return
	}
	d.Telemetry.Emit(framework.Event{
		Type:      framework.EventSummarization,
		DebateID:  debateID,
		AgentID:   d.ID,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"before_chars": summary.BeforeChars,
			"after_chars":  summary.AfterChars,
			"method":       summary.Method,
		},
	})
}

// FormatClarifications renders the answered clarification batches for prompt
// inclusion. Unanswered questions are skipped.
func FormatClarifications(set debate.ClarificationSet) string {
	if len(set) == 0 {
		return ""
	}
	agentIDs := make([]string, 0, len(set))
	for agentID := range set {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Strings(agentIDs)
	var sb strings.Builder
	for _, agentID := range agentIDs {
		for _, q := range set[agentID] {
			if !q.Answered {
				continue
			}
			fmt.Fprintf(&sb, "Q (%s): %s\nA: %s\n", agentID, q.Question, q.Answer)
		}
	}
	return strings.TrimSpace(sb.String())
}

func parseQuestions(text string, limit int) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. )")
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "none") {
			continue
		}
		questions = append(questions, line)
		if limit > 0 && len(questions) >= limit {
			break
		}
	}
	return questions
}
