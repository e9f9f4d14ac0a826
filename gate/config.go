package gate

import (
	"strconv"

	"github.com/caarlos0/env/v10"
)

// Config controls the memory gate. Immutable after resolution; share by
// value across concurrent turns.
type Config struct {
	// Enabled is the master switch for memory retrieval.
	Enabled bool
	// AlwaysOn bypasses pattern matching (deterministic testing).
	// It never overrides AlwaysOff.
	AlwaysOn bool
	// AlwaysOff forces retrieval off regardless of every other setting.
	AlwaysOff bool
	// TopK is how many memory chunks retrieval should return.
	TopK int
	// MaxChunkChars truncates each retrieved chunk.
	MaxChunkChars int
	// SummaryTurnThreshold is the conversation length past which the rolling
	// summary is injected.
	SummaryTurnThreshold int
}

var defaults = Config{
	Enabled:              true,
	TopK:                 5,
	MaxChunkChars:        1200,
	SummaryTurnThreshold: 12,
}

// Override keys for ResolveConfig.
const (
	KeyEnabled              = "enabled"
	KeyAlwaysOn             = "always_on"
	KeyAlwaysOff            = "always_off"
	KeyTopK                 = "top_k"
	KeyMaxChunkChars        = "max_chunk_chars"
	KeySummaryTurnThreshold = "summary_turn_threshold"
)

// ResolveConfig builds a Config from defaults plus an override map.
// Unparseable or out-of-range values keep the default — a malformed gate
// setting must never take a chat turn down. overrides may be nil.
func ResolveConfig(overrides map[string]string) Config {
	cfg := defaults
	cfg.Enabled = resolveBool(overrides, KeyEnabled, cfg.Enabled)
	cfg.AlwaysOn = resolveBool(overrides, KeyAlwaysOn, cfg.AlwaysOn)
	cfg.AlwaysOff = resolveBool(overrides, KeyAlwaysOff, cfg.AlwaysOff)
	cfg.TopK = resolveInt(overrides, KeyTopK, cfg.TopK, 1, 50)
	cfg.MaxChunkChars = resolveInt(overrides, KeyMaxChunkChars, cfg.MaxChunkChars, 100, 20_000)
	cfg.SummaryTurnThreshold = resolveInt(overrides, KeySummaryTurnThreshold, cfg.SummaryTurnThreshold, 1, 500)
	return cfg
}

func resolveBool(overrides map[string]string, key string, fallback bool) bool {
	raw, ok := overrides[key]
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func resolveInt(overrides map[string]string, key string, fallback, min, max int) int {
	raw, ok := overrides[key]
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return fallback
	}
	return n
}

type envOverrides struct {
	Enabled              string `env:"MEMORY_GATE_ENABLED"`
	AlwaysOn             string `env:"MEMORY_GATE_ALWAYS_ON"`
	AlwaysOff            string `env:"MEMORY_GATE_ALWAYS_OFF"`
	TopK                 string `env:"MEMORY_GATE_TOP_K"`
	MaxChunkChars        string `env:"MEMORY_GATE_MAX_CHUNK_CHARS"`
	SummaryTurnThreshold string `env:"MEMORY_GATE_SUMMARY_TURN_THRESHOLD"`
}

// ConfigFromEnv resolves a Config from MEMORY_GATE_* environment variables.
func ConfigFromEnv() Config {
	var o envOverrides
	_ = env.Parse(&o) // string targets — cannot fail on user input
	return ResolveConfig(map[string]string{
		KeyEnabled:              o.Enabled,
		KeyAlwaysOn:             o.AlwaysOn,
		KeyAlwaysOff:            o.AlwaysOff,
		KeyTopK:                 o.TopK,
		KeyMaxChunkChars:        o.MaxChunkChars,
		KeySummaryTurnThreshold: o.SummaryTurnThreshold,
	})
}
