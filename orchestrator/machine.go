package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
	"github.com/lexcodex/parley/llm"
)

// Suspension phases recorded by the state-machine orchestrator.
const (
	phaseAwaitAnswers = "await_answers"
)

// Machine models the debate lifecycle as individually resumable states. Its
// distinguishing behavior is suspension: when clarification questions need a
// user and no answerer is wired, the debate is parked on disk and a later
// process invocation picks it up without replaying completed work.
type Machine struct {
	engine
}

// Run creates a debate and drives it until completion or suspension.
func (m *Machine) Run(ctx context.Context, problem string) (*debate.State, error) {
	st, err := m.deps.Store.CreateDebate(problem)
	if err != nil {
		return nil, err
	}
	debateID := st.ID
	ctx = llm.WithDebateID(ctx, debateID)
	m.emit(framework.EventDebateStart, debateID, 0, "", problem)
	if len(m.deps.Provenance) > 0 {
		if err := m.deps.Store.SetProvenance(debateID, m.deps.Provenance); err != nil {
			return nil, m.fail(debateID, err)
		}
	}

	if m.cfg.ClarificationEnabled {
		questions := m.gatherQuestions(ctx, problem)
		if len(questions) > 0 {
			if m.deps.Answerer == nil {
				return m.suspendForAnswers(debateID, questions)
			}
			answered, err := m.deps.Answerer.Answer(ctx, problem, questions)
			if err != nil {
				return nil, m.fail(debateID, fmt.Errorf("collect clarification answers: %w", err))
			}
			if err := m.deps.Store.SetClarifications(debateID, answered); err != nil {
				return nil, m.fail(debateID, err)
			}
		}
	}
	return m.drive(ctx, debateID)
}

// Resume continues a suspended debate. A debate parked awaiting
// clarification answers requires an answerer; everything else re-enters the
// round loop, where the phase runners skip already-persisted work.
func (m *Machine) Resume(ctx context.Context, debateID string) (*debate.State, error) {
	st, err := m.deps.Store.Load(debateID)
	if err != nil {
		return nil, err
	}
	if st.Status.Terminal() {
		return nil, fmt.Errorf("debate %s is already %s", debateID, st.Status)
	}

	if st.Suspension != nil && st.Suspension.PendingClarifications {
		if m.deps.Answerer == nil {
			return nil, fmt.Errorf("debate %s is awaiting clarification answers and no answerer is wired", debateID)
		}
		answered, err := m.deps.Answerer.Answer(ctx, st.Problem, st.Clarifications)
		if err != nil {
			return nil, fmt.Errorf("collect clarification answers: %w", err)
		}
		if err := m.deps.Store.SetClarifications(debateID, answered); err != nil {
			return nil, err
		}
	}
	if err := m.deps.Store.SetSuspension(debateID, nil); err != nil {
		return nil, err
	}
	if err := m.deps.Store.SetStatus(debateID, debate.StatusRunning); err != nil {
		return nil, err
	}
	m.emit(framework.EventCheckpointRestored, debateID, 0, "", "resumed")
	return m.drive(ctx, debateID)
}

func (m *Machine) drive(ctx context.Context, debateID string) (*debate.State, error) {
	ctx = llm.WithDebateID(ctx, debateID)
	st, err := m.deps.Store.Load(debateID)
	if err != nil {
		return nil, err
	}
	toolState := m.newToolState(st)
	if err := m.driveRounds(ctx, debateID, toolState); err != nil {
		return nil, m.fail(debateID, err)
	}
	if err := m.synthesize(ctx, debateID, toolState); err != nil {
		return nil, m.fail(debateID, err)
	}
	return m.complete(debateID)
}

func (m *Machine) suspendForAnswers(debateID string, questions debate.ClarificationSet) (*debate.State, error) {
	if err := m.deps.Store.SetClarifications(debateID, questions); err != nil {
		return nil, m.fail(debateID, err)
	}
	suspension := &debate.Suspension{
		Phase:                 phaseAwaitAnswers,
		Round:                 0,
		PendingClarifications: true,
		SuspendedAt:           time.Now().UTC(),
	}
	if err := m.deps.Store.SetSuspension(debateID, suspension); err != nil {
		return nil, m.fail(debateID, err)
	}
	if err := m.deps.Store.SetStatus(debateID, debate.StatusSuspended); err != nil {
		return nil, m.fail(debateID, err)
	}
	m.emit(framework.EventCheckpointCreated, debateID, 0, phaseAwaitAnswers, "suspension checkpoint written")
	m.emit(framework.EventDebateSuspend, debateID, 0, phaseAwaitAnswers, "awaiting clarification answers")
	m.logger().Printf("debate %s suspended: %d clarification questions await answers", debateID, questionCount(questions))
	return m.deps.Store.Load(debateID)
}

func questionCount(set debate.ClarificationSet) int {
	count := 0
	for _, questions := range set {
		count += len(questions)
	}
	return count
}
