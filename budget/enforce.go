package budget

import "strings"

// Input carries the raw content categories assembled by the host for one
// chat turn. Nil/empty categories are treated as empty content, not errors.
type Input struct {
	SystemPrompt        string
	Messages            []Turn
	Tools               []ToolDefinition
	MemoryText          string
	ToolResultSummaries string

	// CoreTools names the fixed subset of tools exempt from removal.
	// Nil uses DefaultCoreTools.
	CoreTools []string

	// ForcedTool names a single tool the caller requires regardless of caps.
	ForcedTool string
}

// Result is the finalized, in-budget content ready for the provider call,
// plus the report describing what enforcement did.
type Result struct {
	SystemPrompt        string
	Messages            []Turn
	Tools               []ToolDefinition
	MemoryText          string
	ToolResultSummaries string
	Report              Report
}

// DefaultCoreTools is the always-retained tool subset used when the caller
// does not name its own core set.
var DefaultCoreTools = []string{"memory_search", "memory_save"}

// Enforce applies the budget to one chat turn's content.
//
// It first caps each category independently (messages are exempt from this
// step), then checks the aggregate plus the reserved output allowance
// against the hard ceiling. If over, categories are reduced in a fixed
// order — memory dropped, tools shrunk to the core set, history trimmed
// oldest-first, system prompt hard-truncated — re-checking after each step.
//
// Two inputs are never removable: system-role turns and the most recent user
// turn. If content still exceeds the ceiling after every reduction
// (a single pathological category), the best-effort result is returned with
// Report.OverCeiling set; Enforce never fails.
func Enforce(in Input, cfg Config) Result {
	est := cfg.Estimator
	if est == nil {
		est = defaultEstimator
	}
	coreNames := in.CoreTools
	if coreNames == nil {
		coreNames = DefaultCoreTools
	}

	var actions []Action

	// Per-category capping. Messages are handled only by the ordered
	// reduction below.
	system := truncateTokens(in.SystemPrompt, cfg.SystemPromptCap, est)
	if system != in.SystemPrompt {
		actions = append(actions, Action{Op: ActionCapped, Category: CategorySystem, NewSize: est.Estimate(system)})
	}

	tools := capTools(in.Tools, cfg.ToolSchemaCap, coreNames, in.ForcedTool, est)
	if len(tools) != len(in.Tools) {
		actions = append(actions, Action{Op: ActionCapped, Category: CategoryTools, NewSize: toolsSize(tools, est), Items: len(tools)})
	}

	memory := truncateTokens(in.MemoryText, cfg.MemoryCap, est)
	if memory != in.MemoryText {
		actions = append(actions, Action{Op: ActionCapped, Category: CategoryMemory, NewSize: est.Estimate(memory)})
	}

	toolResults := truncateTokens(in.ToolResultSummaries, cfg.ToolResultCap, est)
	if toolResults != in.ToolResultSummaries {
		actions = append(actions, Action{Op: ActionCapped, Category: CategoryToolResults, NewSize: est.Estimate(toolResults)})
	}

	messages := make([]Turn, len(in.Messages))
	copy(messages, in.Messages)

	total := func() int {
		return est.Estimate(system) +
			toolsSize(tools, est) +
			est.Estimate(memory) +
			estimateTurns(messages, est) +
			est.Estimate(toolResults) +
			cfg.ReservedOutput
	}

	if total() > cfg.HardCeiling {
		// Step a: memory goes first — least critical for an immediate reply.
		if memory != "" {
			memory = ""
			actions = append(actions, Action{Op: ActionDropped, Category: CategoryMemory})
		}
	}

	if total() > cfg.HardCeiling {
		// Step b: shed optional tools from the tail until only core remains.
		reduced := false
		for total() > cfg.HardCeiling {
			i := lastOptionalTool(tools, coreNames, in.ForcedTool)
			if i < 0 {
				break
			}
			tools = append(tools[:i], tools[i+1:]...)
			reduced = true
		}
		if reduced {
			actions = append(actions, Action{Op: ActionReduced, Category: CategoryTools, NewSize: toolsSize(tools, est), Items: len(tools)})
		}
	}

	if total() > cfg.HardCeiling {
		// Step c: trim history oldest-first, keeping system turns and the
		// active user turn.
		trimmed := false
		for total() > cfg.HardCeiling {
			i := oldestRemovableTurn(messages)
			if i < 0 {
				break
			}
			messages = append(messages[:i], messages[i+1:]...)
			trimmed = true
		}
		if trimmed {
			actions = append(actions, Action{Op: ActionTrimmed, Category: CategoryMessages, NewSize: estimateTurns(messages, est), Items: len(messages)})
		}
	}

	if total() > cfg.HardCeiling {
		// Step d: last resort — hard-truncate the system prompt to the floor.
		cut := truncateTokens(system, systemPromptFloor(), est)
		if cut != system {
			system = cut
			actions = append(actions, Action{Op: ActionTruncated, Category: CategorySystem, NewSize: est.Estimate(system)})
		}
	}

	report := Summarize(Sizes{
		System:         est.Estimate(system),
		Tools:          toolsSize(tools, est),
		Memory:         est.Estimate(memory),
		Messages:       estimateTurns(messages, est),
		ToolResults:    est.Estimate(toolResults),
		ReservedOutput: cfg.ReservedOutput,
	}, actions)
	report.Ceiling = cfg.HardCeiling
	report.OverCeiling = report.Total > cfg.HardCeiling

	return Result{
		SystemPrompt:        system,
		Messages:            messages,
		Tools:               tools,
		MemoryText:          memory,
		ToolResultSummaries: toolResults,
		Report:              report,
	}
}

// lastOptionalTool returns the index of the last tool that is neither core
// nor forced, or -1 when only the protected set remains.
func lastOptionalTool(tools []ToolDefinition, coreNames []string, forced string) int {
	protected := make(map[string]bool, len(coreNames)+1)
	for _, name := range coreNames {
		protected[name] = true
	}
	if forced != "" {
		protected[forced] = true
	}
	for i := len(tools) - 1; i >= 0; i-- {
		if !protected[tools[i].Name] {
			return i
		}
	}
	return -1
}

// oldestRemovableTurn returns the index of the oldest turn that may be
// dropped: not system-role, and not the most recent user turn.
func oldestRemovableTurn(turns []Turn) int {
	lastUser := -1
	for i := range turns {
		if turns[i].Role == RoleUser {
			lastUser = i
		}
	}
	for i := range turns {
		if turns[i].Role == RoleSystem || i == lastUser {
			continue
		}
		return i
	}
	return -1
}

// truncationNotice marks hard-truncated text so the model knows content was
// removed.
const truncationNotice = "\n[trimmed to fit context budget]"

// truncateTokens shortens text to roughly limit tokens, cutting at a
// sentence boundary when one falls past the midpoint. Text already within
// the limit is returned unchanged, which keeps repeated enforcement
// idempotent. A limit <= 0 removes the text entirely.
func truncateTokens(text string, limit int, est Estimator) string {
	if text == "" || limit <= 0 {
		return ""
	}
	if est.Estimate(text) <= limit {
		return text
	}

	keep := limit * defaultCharsPerToken
	for keep > 0 {
		if keep > len(text) {
			keep = len(text)
		}
		cut := text[:keep]
		if idx := strings.LastIndexAny(cut, ".!?\n"); idx > keep/2 {
			cut = cut[:idx+1]
		}
		cut += truncationNotice
		if est.Estimate(cut) <= limit {
			return cut
		}
		keep -= defaultCharsPerToken * 4
	}
	return ""
}
