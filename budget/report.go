package budget

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ActionOp identifies a reduction operation applied during enforcement.
type ActionOp string

const (
	// ActionCapped: a category was truncated to its own cap.
	ActionCapped ActionOp = "capped"
	// ActionDropped: a category was emptied entirely.
	ActionDropped ActionOp = "dropped"
	// ActionReduced: the tool catalog was shrunk below its cap.
	ActionReduced ActionOp = "reduced"
	// ActionTrimmed: conversation turns were removed oldest-first.
	ActionTrimmed ActionOp = "trimmed"
	// ActionTruncated: the system prompt was hard-truncated to the floor.
	ActionTruncated ActionOp = "truncated"
)

// Action records one reduction applied to a category.
type Action struct {
	Op       ActionOp `json:"op"`
	Category Category `json:"category"`
	// NewSize is the category's estimated size after the action.
	NewSize int `json:"new_size"`
	// Items is the remaining element count for tools/messages, 0 otherwise.
	Items int `json:"items,omitempty"`
}

// String renders the action the way it appears in a budget log line.
func (a Action) String() string {
	switch a.Op {
	case ActionDropped:
		return fmt.Sprintf("%s dropped", a.Category)
	case ActionReduced, ActionTrimmed:
		return fmt.Sprintf("%s %s to %d", a.Category, a.Op, a.Items)
	default:
		return fmt.Sprintf("%s %s to %d", a.Category, a.Op, a.NewSize)
	}
}

// Sizes holds the estimated per-category sizes of a finalized request.
type Sizes struct {
	System         int `json:"system"`
	Tools          int `json:"tools"`
	Memory         int `json:"memory"`
	Messages       int `json:"messages"`
	ToolResults    int `json:"tool_results"`
	ReservedOutput int `json:"reserved_output"`
}

// Total sums every category plus the reserved output allowance.
func (s Sizes) Total() int {
	return s.System + s.Tools + s.Memory + s.Messages + s.ToolResults + s.ReservedOutput
}

// Report is the loggable summary of one enforcement pass. The core never
// persists or logs it itself; the host decides what to do with it.
type Report struct {
	Total   int   `json:"total"`
	Ceiling int   `json:"ceiling"`
	Sizes   Sizes `json:"sizes"`
	// Actions lists the reductions applied, in the order they ran.
	Actions []Action `json:"actions,omitempty"`
	// OverCeiling flags the pathological case where content exceeds the
	// ceiling even after every reduction.
	OverCeiling bool `json:"over_ceiling,omitempty"`
}

// Summarize builds a Report from measured sizes and the applied actions.
func Summarize(sizes Sizes, actions []Action) Report {
	return Report{
		Total:   sizes.Total(),
		Sizes:   sizes,
		Actions: actions,
	}
}

// String renders the report as a single human-scannable line.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "budget total=%d/%d system=%d tools=%d memory=%d messages=%d tool_results=%d reserved=%d",
		r.Total, r.Ceiling,
		r.Sizes.System, r.Sizes.Tools, r.Sizes.Memory, r.Sizes.Messages, r.Sizes.ToolResults, r.Sizes.ReservedOutput)
	if len(r.Actions) > 0 {
		parts := make([]string, len(r.Actions))
		for i, a := range r.Actions {
			parts[i] = a.String()
		}
		fmt.Fprintf(&sb, " actions=[%s]", strings.Join(parts, "; "))
	}
	if r.OverCeiling {
		sb.WriteString(" OVER CEILING")
	}
	return sb.String()
}

// MarshalZerologObject lets hosts log the report as one structured entry:
// log.Info().Object("budget", report).Msg("chat turn").
func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("total", r.Total).
		Int("ceiling", r.Ceiling).
		Int("system", r.Sizes.System).
		Int("tools", r.Sizes.Tools).
		Int("memory", r.Sizes.Memory).
		Int("messages", r.Sizes.Messages).
		Int("tool_results", r.Sizes.ToolResults).
		Int("reserved_output", r.Sizes.ReservedOutput)
	if len(r.Actions) > 0 {
		arr := zerolog.Arr()
		for _, a := range r.Actions {
			arr.Str(a.String())
		}
		e.Array("actions", arr)
	}
	if r.OverCeiling {
		e.Bool("over_ceiling", true)
	}
}
