package tools

import (
	"context"
	"strings"

	"github.com/lexcodex/parley/framework"
)

const scratchpadKey = "scratchpad.notes"

// ScratchpadTool gives agents a shared notepad scoped to the running debate.
// Notes written by one agent are readable by every other agent in the same
// run, which lets debaters leave evidence for their critiques.
type ScratchpadTool struct{}

// NewScratchpadTool builds the tool.
func NewScratchpadTool() *ScratchpadTool {
	return &ScratchpadTool{}
}

func (t *ScratchpadTool) Name() string     { return "scratchpad" }
func (t *ScratchpadTool) Category() string { return "debate" }

func (t *ScratchpadTool) Description() string {
	return "Write a note to the shared debate scratchpad, or read all notes written so far. Use action=write with a note, or action=read."
}

func (t *ScratchpadTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "action", Type: "string", Description: "Either 'write' or 'read'.", Required: true},
		{Name: "note", Type: "string", Description: "The note to record. Required when action is 'write'."},
	}
}

func (t *ScratchpadTool) IsAvailable(ctx context.Context, state *framework.State) bool {
	return state != nil
}

func (t *ScratchpadTool) Execute(ctx context.Context, state *framework.State, args map[string]interface{}) (*framework.ToolResult, error) {
	action, _ := args["action"].(string)
	switch action {
	case "write":
		note, _ := args["note"].(string)
		note = strings.TrimSpace(note)
		if note == "" {
			return framework.ToolError("write requires a non-empty note"), nil
		}
		state.Append(scratchpadKey, note)
		return framework.ToolSuccess(map[string]interface{}{"written": true}), nil
	case "read":
		notes := state.Entries(scratchpadKey)
		return framework.ToolSuccess(map[string]interface{}{
			"notes": notes,
			"count": len(notes),
		}), nil
	default:
		return framework.ToolError("unknown action %q, want write or read", action), nil
	}
}
