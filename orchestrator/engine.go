package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lexcodex/parley/agents"
	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
	"github.com/lexcodex/parley/tools"
)

// engine holds the phase runners shared by both implementations. Every
// runner is idempotent against persisted state: work that already produced a
// contribution in the current round is skipped, which is what makes
// resumption safe.
type engine struct {
	cfg  Config
	deps Deps
}

func (e *engine) logger() framework.Logger {
	return framework.EnsureLogger(e.deps.Logger)
}

func (e *engine) emit(eventType framework.EventType, debateID string, round int, phase, message string) {
	if e.deps.Telemetry == nil {
		return
	}
	e.deps.Telemetry.Emit(framework.Event{
		Type:      eventType,
		DebateID:  debateID,
		Round:     round,
		Phase:     phase,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// newToolState seeds the ambient state tools read from. One state per
// process invocation: scratchpad notes survive across phases but not across
// suspensions.
func (e *engine) newToolState(st *debate.State) *framework.State {
	state := framework.NewState()
	state.Set(tools.BriefProblemKey, st.Problem)
	if clar := agents.FormatClarifications(st.Clarifications); clar != "" {
		state.Set(tools.BriefClarificationsKey, clar)
	}
	return state
}

func hasContribution(round *debate.Round, agentID string, kind debate.ContributionType, targetID string) bool {
	for _, c := range round.Contributions {
		if c.AgentID == agentID && c.Type == kind && c.TargetAgentID == targetID {
			return true
		}
	}
	return false
}

// gatherQuestions asks every debater for clarifying questions concurrently.
// Agents that fail are logged and contribute no questions.
func (e *engine) gatherQuestions(ctx context.Context, problem string) debate.ClarificationSet {
	limit := e.cfg.MaxClarifications
	if limit <= 0 {
		limit = 3
	}
	results := make([][]string, len(e.deps.Debaters))
	var wg sync.WaitGroup
	for i, d := range e.deps.Debaters {
		wg.Add(1)
		go func(i int, d *agents.Debater) {
			defer wg.Done()
			questions, err := d.ClarifyQuestions(ctx, problem, limit)
			if err != nil {
				e.logger().Printf("agent %s: clarification gathering failed: %v", d.ID, err)
				return
			}
			results[i] = questions
		}(i, d)
	}
	wg.Wait()

	set := debate.ClarificationSet{}
	for i, d := range e.deps.Debaters {
		for _, q := range results[i] {
			set[d.ID] = append(set[d.ID], debate.ClarificationQuestion{Question: q})
		}
	}
	return set
}

// proposePhase runs every debater that has not yet proposed in the current
// round. Completion order is insignificant; persistence follows registration
// order. A single agent's failure is recorded and skipped, but a round where
// nobody proposed is an error.
func (e *engine) proposePhase(ctx context.Context, debateID string, toolState *framework.State) error {
	st, err := e.deps.Store.Load(debateID)
	if err != nil {
		return err
	}
	round := st.CurrentRound()
	if round == nil {
		return fmt.Errorf("propose phase: %w", debate.ErrNoActiveRound)
	}
	e.emit(framework.EventPhaseStart, debateID, round.Number, "propose", "")

	type outcome struct {
		contribution debate.Contribution
		summary      *debate.Summary
		err          error
		ran          bool
	}
	results := make([]outcome, len(e.deps.Debaters))
	var wg sync.WaitGroup
	for i, d := range e.deps.Debaters {
		if hasContribution(round, d.ID, debate.ContributionProposal, "") {
			continue
		}
		wg.Add(1)
		go func(i int, d *agents.Debater) {
			defer wg.Done()
			c, summary, err := d.Propose(ctx, st, toolState)
			results[i] = outcome{contribution: c, summary: summary, err: err, ran: true}
		}(i, d)
	}
	wg.Wait()

	persisted := 0
	for i, d := range e.deps.Debaters {
		r := results[i]
		if !r.ran {
			persisted++
			continue
		}
		if r.err != nil {
			e.logger().Printf("agent %s: propose failed, skipping this round: %v", d.ID, r.err)
			e.emit(framework.EventAgentCompletion, debateID, round.Number, "propose", fmt.Sprintf("agent %s failed: %v", d.ID, r.err))
			continue
		}
		if r.summary != nil {
			if err := e.deps.Store.AddSummary(debateID, *r.summary); err != nil {
				return fmt.Errorf("persist summary for %s: %w", d.ID, err)
			}
		}
		if err := e.persistContribution(debateID, round.Number, r.contribution); err != nil {
			return err
		}
		persisted++
	}
	if persisted == 0 {
		return fmt.Errorf("propose phase: every agent failed in round %d", round.Number)
	}
	e.emit(framework.EventPhaseFinish, debateID, round.Number, "propose", "")
	return nil
}

// critiquePhase runs the all-pairs critique relation: every debater reviews
// every other debater's current proposal. Pairs whose target never proposed
// are skipped, as are pairs already persisted.
func (e *engine) critiquePhase(ctx context.Context, debateID string, toolState *framework.State) error {
	st, err := e.deps.Store.Load(debateID)
	if err != nil {
		return err
	}
	round := st.CurrentRound()
	if round == nil {
		return fmt.Errorf("critique phase: %w", debate.ErrNoActiveRound)
	}
	e.emit(framework.EventPhaseStart, debateID, round.Number, "critique", "")

	type pair struct {
		critic *agents.Debater
		target agents.AgentRef
		text   string
	}
	var pairs []pair
	for _, critic := range e.deps.Debaters {
		for _, target := range e.deps.Debaters {
			if critic.ID == target.ID {
				continue
			}
			proposal, ok := round.LatestProposal(target.ID)
			if !ok {
				continue
			}
			if hasContribution(round, critic.ID, debate.ContributionCritique, target.ID) {
				continue
			}
			pairs = append(pairs, pair{critic: critic, target: target.Ref(), text: proposal.Content})
		}
	}

	type outcome struct {
		contribution debate.Contribution
		err          error
	}
	results := make([]outcome, len(pairs))
	var wg sync.WaitGroup
	for i, p := range pairs {
		wg.Add(1)
		go func(i int, p pair) {
			defer wg.Done()
			c, err := p.critic.Critique(ctx, st, p.target, p.text, toolState)
			results[i] = outcome{contribution: c, err: err}
		}(i, p)
	}
	wg.Wait()

	for i, p := range pairs {
		if results[i].err != nil {
			e.logger().Printf("agent %s: critique of %s failed, skipping: %v", p.critic.ID, p.target.ID, results[i].err)
			continue
		}
		if err := e.persistContribution(debateID, round.Number, results[i].contribution); err != nil {
			return err
		}
	}
	e.emit(framework.EventPhaseFinish, debateID, round.Number, "critique", "")
	return nil
}

// refinePhase has each debater revise its own proposal using the critiques
// addressed to it. An agent whose refinement fails keeps its proposal as-is.
func (e *engine) refinePhase(ctx context.Context, debateID string, toolState *framework.State) error {
	st, err := e.deps.Store.Load(debateID)
	if err != nil {
		return err
	}
	round := st.CurrentRound()
	if round == nil {
		return fmt.Errorf("refine phase: %w", debate.ErrNoActiveRound)
	}
	e.emit(framework.EventPhaseStart, debateID, round.Number, "refine", "")

	type outcome struct {
		contribution debate.Contribution
		err          error
		ran          bool
	}
	results := make([]outcome, len(e.deps.Debaters))
	var wg sync.WaitGroup
	for i, d := range e.deps.Debaters {
		if !hasContribution(round, d.ID, debate.ContributionProposal, "") {
			continue
		}
		if hasContribution(round, d.ID, debate.ContributionRefinement, "") {
			continue
		}
		wg.Add(1)
		go func(i int, d *agents.Debater) {
			defer wg.Done()
			c, err := d.Refine(ctx, st, toolState)
			results[i] = outcome{contribution: c, err: err, ran: true}
		}(i, d)
	}
	wg.Wait()

	for i, d := range e.deps.Debaters {
		r := results[i]
		if !r.ran {
			continue
		}
		if r.err != nil {
			e.logger().Printf("agent %s: refine failed, keeping original proposal: %v", d.ID, r.err)
			continue
		}
		if err := e.persistContribution(debateID, round.Number, r.contribution); err != nil {
			return err
		}
	}
	e.emit(framework.EventPhaseFinish, debateID, round.Number, "refine", "")
	return nil
}

// synthesize invokes the judge over the full persisted record. A judge
// failure is fatal for the debate.
func (e *engine) synthesize(ctx context.Context, debateID string, toolState *framework.State) error {
	st, err := e.deps.Store.Load(debateID)
	if err != nil {
		return err
	}
	if st.Synthesis != nil {
		return nil
	}
	e.emit(framework.EventPhaseStart, debateID, len(st.Rounds), "synthesize", "")
	result, err := e.deps.Judge.Synthesize(ctx, st, toolState)
	if err != nil {
		return err
	}
	if err := e.deps.Store.SetSynthesis(debateID, result); err != nil {
		return err
	}
	e.emit(framework.EventPhaseFinish, debateID, len(st.Rounds), "synthesize", "")
	return nil
}

// driveRounds finishes any partially-run current round, then runs the
// remaining rounds up to the configured count. Within each round the three
// phase runners execute in order; their skip logic makes re-entry cheap.
func (e *engine) driveRounds(ctx context.Context, debateID string, toolState *framework.State) error {
	st, err := e.deps.Store.Load(debateID)
	if err != nil {
		return err
	}
	round := st.CurrentRound()
	if round != nil {
		// re-enter the current round unconditionally: the phase runners skip
		// persisted work, so a round interrupted anywhere (even mid-refine,
		// with some refinements already written) picks up where it stopped
		if err := e.runRound(ctx, debateID, round.Number, toolState); err != nil {
			return err
		}
	}

	for {
		st, err = e.deps.Store.Load(debateID)
		if err != nil {
			return err
		}
		if len(st.Rounds) >= e.cfg.Rounds {
			return nil
		}
		number, err := e.deps.Store.BeginRound(debateID)
		if err != nil {
			return err
		}
		if err := e.runRound(ctx, debateID, number, toolState); err != nil {
			return err
		}
	}
}

func (e *engine) runRound(ctx context.Context, debateID string, number int, toolState *framework.State) error {
	e.logger().Verbosef("debate %s: round %d starting", debateID, number)
	e.emit(framework.EventRoundStart, debateID, number, "", "")
	if err := e.proposePhase(ctx, debateID, toolState); err != nil {
		return err
	}
	if err := e.critiquePhase(ctx, debateID, toolState); err != nil {
		return err
	}
	return e.refinePhase(ctx, debateID, toolState)
}

func (e *engine) persistContribution(debateID string, round int, c debate.Contribution) error {
	if err := e.deps.Store.AddContribution(debateID, c); err != nil {
		return fmt.Errorf("persist contribution from %s: %w", c.AgentID, err)
	}
	if e.deps.Transcript != nil {
		if err := e.deps.Transcript.Record(debateID, round, c); err != nil {
			e.logger().Printf("transcript index write failed for %s: %v", c.AgentID, err)
		}
	}
	return nil
}

// fail stamps the debate failed, best-effort, and returns the original error.
func (e *engine) fail(debateID string, cause error) error {
	if err := e.deps.Store.SetStatus(debateID, debate.StatusFailed); err != nil {
		e.logger().Printf("debate %s: could not record failure: %v", debateID, err)
	}
	e.emit(framework.EventDebateFinish, debateID, 0, "", fmt.Sprintf("failed: %v", cause))
	return cause
}

func (e *engine) complete(debateID string) (*debate.State, error) {
	if err := e.deps.Store.SetStatus(debateID, debate.StatusCompleted); err != nil {
		return nil, err
	}
	e.emit(framework.EventDebateFinish, debateID, 0, "", "completed")
	return e.deps.Store.Load(debateID)
}
