package orchestrator

import (
	"context"
	"fmt"

	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/framework"
	"github.com/lexcodex/parley/llm"
)

// Classic runs every phase of a debate in one pass. It never suspends: when
// clarification answers cannot be collected in-process the debate proceeds
// with the questions unanswered.
type Classic struct {
	engine
}

// Run drives a new debate to completion.
func (c *Classic) Run(ctx context.Context, problem string) (*debate.State, error) {
	st, err := c.deps.Store.CreateDebate(problem)
	if err != nil {
		return nil, err
	}
	debateID := st.ID
	ctx = llm.WithDebateID(ctx, debateID)
	c.emit(framework.EventDebateStart, debateID, 0, "", problem)
	if len(c.deps.Provenance) > 0 {
		if err := c.deps.Store.SetProvenance(debateID, c.deps.Provenance); err != nil {
			return nil, c.fail(debateID, err)
		}
	}

	if c.cfg.ClarificationEnabled {
		questions := c.gatherQuestions(ctx, problem)
		if len(questions) > 0 {
			if c.deps.Answerer != nil {
				answered, err := c.deps.Answerer.Answer(ctx, problem, questions)
				if err != nil {
					return nil, c.fail(debateID, fmt.Errorf("collect clarification answers: %w", err))
				}
				questions = answered
			} else {
				c.logger().Printf("debate %s: no answerer wired, proceeding with %d unanswered clarifications", debateID, len(questions))
			}
			if err := c.deps.Store.SetClarifications(debateID, questions); err != nil {
				return nil, c.fail(debateID, err)
			}
		}
	}

	st, err = c.deps.Store.Load(debateID)
	if err != nil {
		return nil, c.fail(debateID, err)
	}
	toolState := c.newToolState(st)
	if err := c.driveRounds(ctx, debateID, toolState); err != nil {
		return nil, c.fail(debateID, err)
	}
	if err := c.synthesize(ctx, debateID, toolState); err != nil {
		return nil, c.fail(debateID, err)
	}
	return c.complete(debateID)
}

// Resume is not part of the classic lifecycle.
func (c *Classic) Resume(ctx context.Context, debateID string) (*debate.State, error) {
	return nil, fmt.Errorf("classic orchestrator: %w", ErrResumeUnsupported)
}
