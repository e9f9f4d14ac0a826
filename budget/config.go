package budget

import (
	"strconv"

	"github.com/caarlos0/env/v10"
)

// Config holds the hard context ceiling and the per-category caps, all in
// estimated tokens. Resolve once (per process or per request) and pass by
// value; a Config is never mutated after construction and is safe to share
// across concurrent chat turns.
type Config struct {
	// HardCeiling is the maximum total estimated size allowed for one
	// provider call, including the reserved output allowance.
	HardCeiling int

	SystemPromptCap int
	ToolSchemaCap   int
	MemoryCap       int
	ToolResultCap   int

	// ReservedOutput is counted against the ceiling but holds no input
	// content — it keeps room for the model's reply.
	ReservedOutput int

	// Estimator overrides the default character-count heuristic.
	// Nil uses CharEstimator.
	Estimator Estimator
}

// bound declares the default for a budget value and the [min,max] range an
// override must fall in to be accepted. Overrides outside the range (or not
// numeric at all) silently fall back to the default: a misconfigured budget
// degrades, it never takes a chat turn down.
type bound struct {
	def, min, max int
}

// Override keys, doubling as documentation of the tunable surface.
const (
	KeyHardCeiling     = "hard_ceiling"
	KeySystemPromptCap = "system_prompt_cap"
	KeyToolSchemaCap   = "tool_schema_cap"
	KeyMemoryCap       = "memory_cap"
	KeyToolResultCap   = "tool_result_cap"
	KeyReservedOutput  = "reserved_output"
)

var bounds = map[string]bound{
	KeyHardCeiling:     {def: 120_000, min: 4096, max: 2_000_000},
	KeySystemPromptCap: {def: 8000, min: 200, max: 64_000},
	KeyToolSchemaCap:   {def: 6000, min: 100, max: 32_000},
	KeyMemoryCap:       {def: 4000, min: 0, max: 32_000},
	KeyToolResultCap:   {def: 4000, min: 0, max: 32_000},
	KeyReservedOutput:  {def: 8000, min: 256, max: 64_000},
}

// ResolveConfig builds a Config from defaults plus an override map
// (values are decimal token counts). An override is applied only when it
// parses as an integer within its declared bound; anything else keeps the
// default. overrides may be nil.
func ResolveConfig(overrides map[string]string) Config {
	return Config{
		HardCeiling:     resolveValue(KeyHardCeiling, overrides),
		SystemPromptCap: resolveValue(KeySystemPromptCap, overrides),
		ToolSchemaCap:   resolveValue(KeyToolSchemaCap, overrides),
		MemoryCap:       resolveValue(KeyMemoryCap, overrides),
		ToolResultCap:   resolveValue(KeyToolResultCap, overrides),
		ReservedOutput:  resolveValue(KeyReservedOutput, overrides),
	}
}

func resolveValue(key string, overrides map[string]string) int {
	b := bounds[key]
	raw, ok := overrides[key]
	if !ok || raw == "" {
		return b.def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < b.min || n > b.max {
		return b.def
	}
	return n
}

// envOverrides maps the BUDGET_* environment surface. Values stay strings so
// that a malformed variable degrades to the default instead of failing the
// whole parse.
type envOverrides struct {
	HardCeiling     string `env:"BUDGET_HARD_CEILING"`
	SystemPromptCap string `env:"BUDGET_SYSTEM_PROMPT_CAP"`
	ToolSchemaCap   string `env:"BUDGET_TOOL_SCHEMA_CAP"`
	MemoryCap       string `env:"BUDGET_MEMORY_CAP"`
	ToolResultCap   string `env:"BUDGET_TOOL_RESULT_CAP"`
	ReservedOutput  string `env:"BUDGET_RESERVED_OUTPUT"`
}

// ConfigFromEnv resolves a Config from BUDGET_* environment variables,
// falling back to defaults for anything unset or invalid.
func ConfigFromEnv() Config {
	var o envOverrides
	_ = env.Parse(&o) // string targets — cannot fail on user input
	return ResolveConfig(map[string]string{
		KeyHardCeiling:     o.HardCeiling,
		KeySystemPromptCap: o.SystemPromptCap,
		KeyToolSchemaCap:   o.ToolSchemaCap,
		KeyMemoryCap:       o.MemoryCap,
		KeyToolResultCap:   o.ToolResultCap,
		KeyReservedOutput:  o.ReservedOutput,
	})
}

// systemPromptFloor is the minimal safe size the system prompt is
// hard-truncated to as the last reduction resort.
func systemPromptFloor() int {
	return bounds[KeySystemPromptCap].min
}

// DefaultValue returns the documented default for an override key,
// or 0 for an unknown key.
func DefaultValue(key string) int {
	return bounds[key].def
}
