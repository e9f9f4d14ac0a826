package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldUseMemory_Precedence(t *testing.T) {
	matching := "do you remember what we decided?"

	// alwaysOff wins over everything, including alwaysOn.
	cfg := Config{Enabled: true, AlwaysOn: true, AlwaysOff: true}
	assert.False(t, ShouldUseMemory(matching, cfg))

	// Master switch off beats alwaysOn.
	cfg = Config{Enabled: false, AlwaysOn: true}
	assert.False(t, ShouldUseMemory(matching, cfg))

	// alwaysOn bypasses pattern matching.
	cfg = Config{Enabled: true, AlwaysOn: true}
	assert.True(t, ShouldUseMemory("hello there", cfg))

	// Default path: patterns decide.
	cfg = Config{Enabled: true}
	assert.True(t, ShouldUseMemory(matching, cfg))
	assert.False(t, ShouldUseMemory("what's the weather like?", cfg))
}

func TestShouldUseMemory_Triggers(t *testing.T) {
	cfg := Config{Enabled: true}

	hits := []string{
		"Remember when we set up the staging cluster?",
		"What did we talk about last time?",
		"you said the deadline was Friday",
		"As we discussed, the API should return JSON",
		"remind me what the password policy was",
		"Let's pick up where we left off",
		"what were we working on yesterday?",
		"Can you recall our previous conversation about pricing?",
	}
	for _, msg := range hits {
		assert.True(t, ShouldUseMemory(msg, cfg), "expected trigger: %q", msg)
	}

	misses := []string{
		"",
		"write a haiku about autumn",
		"how do I sort a slice in Go?",
		"remembering things is hard for computers",
	}
	for _, msg := range misses {
		assert.False(t, ShouldUseMemory(msg, cfg), "unexpected trigger: %q", msg)
	}
}

func TestShouldInjectSummary(t *testing.T) {
	cfg := Config{Enabled: true, SummaryTurnThreshold: 12}

	// Long conversations get the summary regardless of message content.
	assert.True(t, ShouldInjectSummary("anything", 13, cfg))
	assert.False(t, ShouldInjectSummary("anything", 12, cfg))

	// Recap intent triggers it at any length.
	assert.True(t, ShouldInjectSummary("give me a recap", 1, cfg))
	assert.True(t, ShouldInjectSummary("summarize what we've done", 1, cfg))
	assert.True(t, ShouldInjectSummary("where were we?", 1, cfg))
	assert.False(t, ShouldInjectSummary("hello", 1, cfg))
}

// Summary injection does not participate in the memory precedence chain:
// it can fire even when memory retrieval is forced off.
func TestShouldInjectSummary_IndependentOfMemoryGate(t *testing.T) {
	cfg := Config{Enabled: false, AlwaysOff: true, SummaryTurnThreshold: 12}
	assert.False(t, ShouldUseMemory("give me a recap", cfg))
	assert.True(t, ShouldInjectSummary("give me a recap", 1, cfg))
}

func TestResolveConfig(t *testing.T) {
	cfg := ResolveConfig(nil)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.AlwaysOn)
	assert.False(t, cfg.AlwaysOff)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 1200, cfg.MaxChunkChars)
	assert.Equal(t, 12, cfg.SummaryTurnThreshold)

	cfg = ResolveConfig(map[string]string{
		KeyEnabled:   "false",
		KeyAlwaysOff: "1",
		KeyTopK:      "10",
	})
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.AlwaysOff)
	assert.Equal(t, 10, cfg.TopK)
}

func TestResolveConfig_InvalidValuesFallBack(t *testing.T) {
	cfg := ResolveConfig(map[string]string{
		KeyEnabled:       "maybe",  // not a bool
		KeyTopK:          "0",      // below min 1
		KeyMaxChunkChars: "999999", // above max
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 1200, cfg.MaxChunkChars)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MEMORY_GATE_ALWAYS_ON", "true")
	t.Setenv("MEMORY_GATE_TOP_K", "3")
	t.Setenv("MEMORY_GATE_MAX_CHUNK_CHARS", "junk")

	cfg := ConfigFromEnv()
	assert.True(t, cfg.AlwaysOn)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 1200, cfg.MaxChunkChars)
}
