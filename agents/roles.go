package agents

import (
	"fmt"
	"os"
	"strings"

	"github.com/lexcodex/parley/debate"
)

// RolePrompts is the operation set every role provides: pure prompt builders
// with no control flow beyond string assembly. Roles live in a flat map
// keyed by role identifier rather than an inheritance hierarchy.
type RolePrompts struct {
	System    func(displayName string) string
	Propose   func(problem, clarifications, priorContext string) string
	Critique  func(problem, targetName, proposal string) string
	Refine    func(problem, ownProposal, critiques string) string
	Summarize func(content string, maxLength int) string
	Clarify   func(problem string, limit int) string
}

const genericPreamble = "You are a senior engineer participating in a structured design debate."

var rolePreambles = map[string]string{
	"architect":  "You are a systems architect. You value clean boundaries, long-term maintainability, and explicit contracts between components.",
	"pragmatist": "You are a pragmatic engineer. You value shipping, operational simplicity, and solutions proven in production over novelty.",
	"skeptic":    "You are a professional skeptic. You hunt for failure modes, hidden costs, and unstated assumptions in every proposal.",
	"innovator":  "You are an innovator. You push for unconventional approaches and question whether the obvious solution is the right one.",
	"judge":      "You are the judge of a structured design debate. You weigh every contribution impartially and synthesize a single concrete recommendation.",
}

// PromptsForRole returns the prompt set for a role id, falling back to a
// generic debater when the role is unknown.
func PromptsForRole(role string) RolePrompts {
	preamble, ok := rolePreambles[role]
	if !ok {
		preamble = genericPreamble
	}
	return promptsFromPreamble(preamble)
}

// LoadRolePreamble reads a role preamble override from a file and reports the
// resulting provenance.
func LoadRolePreamble(role, path string) (RolePrompts, debate.PromptProvenance, error) {
	if path == "" {
		return PromptsForRole(role), debate.PromptProvenance{Source: "built-in"}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RolePrompts{}, debate.PromptProvenance{}, fmt.Errorf("role prompt file: %w", err)
	}
	preamble := strings.TrimSpace(string(data))
	if preamble == "" {
		return RolePrompts{}, debate.PromptProvenance{}, fmt.Errorf("role prompt file %s is empty", path)
	}
	return promptsFromPreamble(preamble), debate.PromptProvenance{Source: "file", Path: path}, nil
}

func promptsFromPreamble(preamble string) RolePrompts {
	return RolePrompts{
		System: func(displayName string) string {
			return fmt.Sprintf("%s\nYou are participating as %q. Stay in character, be specific, and keep output focused on the problem.", preamble, displayName)
		},
		Propose: func(problem, clarifications, priorContext string) string {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Design problem:\n%s\n", problem)
			if clarifications != "" {
				fmt.Fprintf(&sb, "\nClarifications gathered from the user:\n%s\n", clarifications)
			}
			if priorContext != "" {
				fmt.Fprintf(&sb, "\nYour prior work on this problem:\n%s\n", priorContext)
			}
			sb.WriteString("\nPropose a concrete solution. State the key design decisions, their rationale, and the tradeoffs you are accepting.")
			return sb.String()
		},
		Critique: func(problem, targetName, proposal string) string {
			return fmt.Sprintf(
				"Design problem:\n%s\n\nProposal by %s:\n%s\n\nCritique this proposal. Identify concrete weaknesses, risks, and gaps. Be direct but constructive; do not restate the proposal.",
				problem, targetName, proposal)
		},
		Refine: func(problem, ownProposal, critiques string) string {
			return fmt.Sprintf(
				"Design problem:\n%s\n\nYour current proposal:\n%s\n\nCritiques addressed to you:\n%s\n\nRevise your proposal in light of these critiques. Keep what survives scrutiny, fix what does not, and say explicitly which critiques you accept or reject and why.",
				problem, ownProposal, critiques)
		},
		Summarize: func(content string, maxLength int) string {
			return fmt.Sprintf(
				"Summarize your own prior proposals and refinements below so you can continue the debate from a compact context. Preserve every design decision and open tradeoff. Stay under %d characters.\n\n%s",
				maxLength, content)
		},
		Clarify: func(problem string, limit int) string {
			return fmt.Sprintf(
				"Design problem:\n%s\n\nBefore proposing a solution, list up to %d clarifying questions whose answers would materially change your design. One question per line, no numbering. If nothing needs clarification, reply with NONE.",
				problem, limit)
		},
	}
}
