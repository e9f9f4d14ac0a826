package budget

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes one capability offered to the model: a name plus
// the machine-readable schema of its input.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"input_schema,omitempty"`

	// Extra carries provider- or host-specific fields preserved opaquely.
	Extra map[string]any `json:"-"`
}

// size estimates what the definition costs inside the prompt: name,
// description, and serialized schema.
func (t ToolDefinition) size(est Estimator) int {
	return est.Estimate(t.Name) + est.Estimate(t.Description) + est.Estimate(string(t.Schema))
}

// SchemaFor generates a JSON schema for a tool's input struct, for hosts
// that register tools from Go types. Returns nil if v cannot be reflected.
func SchemaFor(v any) json.RawMessage {
	r := jsonschema.Reflector{DoNotReference: true}
	b, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil
	}
	return b
}

// CapTools reduces a tool catalog to fit a token limit.
//
// Every tool named in coreNames, plus the forced tool, is always kept — even
// when the core set alone exceeds the limit. The limit is a soft target;
// never breaking a required tool takes precedence. Remaining tools are added
// greedily in their original order until the next one would push past the
// limit. Output order: core/forced first (original relative order), then the
// extras.
func CapTools(tools []ToolDefinition, limit int, coreNames []string, forced string) []ToolDefinition {
	return capTools(tools, limit, coreNames, forced, defaultEstimator)
}

func capTools(tools []ToolDefinition, limit int, coreNames []string, forced string, est Estimator) []ToolDefinition {
	if len(tools) == 0 {
		return nil
	}

	core := make(map[string]bool, len(coreNames)+1)
	for _, name := range coreNames {
		core[name] = true
	}
	if forced != "" {
		core[forced] = true
	}

	kept := make([]ToolDefinition, 0, len(tools))
	used := 0
	for _, t := range tools {
		if core[t.Name] {
			kept = append(kept, t)
			used += t.size(est)
		}
	}

	for _, t := range tools {
		if core[t.Name] {
			continue
		}
		sz := t.size(est)
		if used+sz > limit {
			break
		}
		kept = append(kept, t)
		used += sz
	}
	return kept
}

// toolsSize estimates the prompt cost of a tool catalog.
func toolsSize(tools []ToolDefinition, est Estimator) int {
	total := 0
	for _, t := range tools {
		total += t.size(est)
	}
	return total
}
