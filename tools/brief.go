package tools

import (
	"context"

	"github.com/lexcodex/parley/framework"
)

// State keys populated by the orchestrator before each phase.
const (
	BriefProblemKey        = "brief.problem"
	BriefClarificationsKey = "brief.clarifications"
)

// BriefTool lets agents re-read the problem statement and the clarification
// answers mid-completion instead of relying on what survived prompt
// compression.
type BriefTool struct{}

// NewBriefTool builds the tool.
func NewBriefTool() *BriefTool {
	return &BriefTool{}
}

func (t *BriefTool) Name() string     { return "debate_brief" }
func (t *BriefTool) Category() string { return "debate" }
func (t *BriefTool) Description() string {
	return "Look up the original problem statement and the user's clarification answers for this debate."
}

func (t *BriefTool) Parameters() []framework.ToolParameter {
	return nil
}

func (t *BriefTool) IsAvailable(ctx context.Context, state *framework.State) bool {
	return state != nil && state.GetString(BriefProblemKey) != ""
}

func (t *BriefTool) Execute(ctx context.Context, state *framework.State, args map[string]interface{}) (*framework.ToolResult, error) {
	problem := state.GetString(BriefProblemKey)
	if problem == "" {
		return framework.ToolError("no debate brief loaded"), nil
	}
	data := map[string]interface{}{"problem": problem}
	if clar := state.GetString(BriefClarificationsKey); clar != "" {
		data["clarifications"] = clar
	}
	return framework.ToolSuccess(data), nil
}
