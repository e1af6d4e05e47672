package framework

// ToolTrace records tool activity that occurred during one completion. A nil
// trace means no tool activity at all; the loop never produces an empty,
// non-nil trace.
type ToolTrace struct {
	Iterations int          `json:"iterations"`
	Calls      []ToolCall   `json:"calls"`
	Results    []ToolResult `json:"results"`
}
