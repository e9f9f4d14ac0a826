// Package gate decides, per chat turn, whether the expensive long-term
// memory lookup should run at all, and whether a rolling conversation
// summary should be injected. Both decisions are pure pattern/config
// evaluation — no I/O, no state.
package gate

import (
	"regexp"
	"strings"
)

// memoryTriggers are case-insensitive substrings expressing recall intent:
// referencing a prior interaction, asking what was said, or picking an old
// thread back up. Any match turns memory retrieval on.
var memoryTriggers = []string{
	"remember when",
	"do you remember",
	"remember what",
	"remember that",
	"last time",
	"last session",
	"last conversation",
	"previously",
	"earlier you",
	"you said",
	"you told me",
	"you mentioned",
	"we discussed",
	"we talked about",
	"as i mentioned",
	"as we discussed",
	"remind me",
	"what did i say",
	"what did we",
	"what did you say",
	"from before",
}

// memoryTriggerPatterns catch recall phrasings too variable for plain
// substrings.
var memoryTriggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(recall|bring up)\b.*\b(conversation|discussion|chat|session)\b`),
	regexp.MustCompile(`(?i)\bpick up where (we|i|you) left off\b`),
	regexp.MustCompile(`(?i)\bwhat (were|was) (we|i) (doing|working on|talking about)\b`),
}

// recapTriggers express a request for a summary of the conversation so far.
var recapTriggers = []string{
	"recap",
	"summarize",
	"summary",
	"sum up",
	"catch me up",
	"where were we",
	"where did we leave off",
	"tl;dr",
}

// ShouldUseMemory reports whether memory retrieval should run for this turn.
//
// Precedence is fixed and short-circuits at the first matching rule:
//  1. AlwaysOff → false (hard override, always wins)
//  2. !Enabled  → false (master switch)
//  3. AlwaysOn  → true  (bypass patterns, for deterministic testing)
//  4. otherwise → true iff userText matches a recall trigger
//
// Reordering these rules changes observable behavior: AlwaysOn must never
// override AlwaysOff.
func ShouldUseMemory(userText string, cfg Config) bool {
	if cfg.AlwaysOff {
		return false
	}
	if !cfg.Enabled {
		return false
	}
	if cfg.AlwaysOn {
		return true
	}
	return matchesRecall(userText)
}

// ShouldInjectSummary reports whether the rolling conversation summary
// should be injected this turn. Independent of the memory precedence chain:
// it can be true even when ShouldUseMemory is false.
func ShouldInjectSummary(userText string, turnCount int, cfg Config) bool {
	threshold := cfg.SummaryTurnThreshold
	if threshold <= 0 {
		threshold = defaults.SummaryTurnThreshold
	}
	if turnCount > threshold {
		return true
	}
	return matchesRecap(userText)
}

func matchesRecall(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range memoryTriggers {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range memoryTriggerPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func matchesRecap(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range recapTriggers {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
