// Package budget enforces per-request token budgets for chat completions.
// It estimates the size of each prompt category, caps categories
// independently, and applies a fixed-order reduction when the aggregate
// exceeds the hard context ceiling.
package budget

// Estimator approximates the token count of a text string.
// Implementations must be monotonic: longer input never yields a smaller count.
type Estimator interface {
	Estimate(text string) int
}

// defaultCharsPerToken is the rule-of-thumb ratio for English text.
const defaultCharsPerToken = 4

// CharEstimator estimates tokens by character count (~4 chars per token).
// This is an approximation, not tokenizer output — counts can differ from the
// provider's by a few percent. Use TiktokenEstimator for closer parity.
type CharEstimator struct {
	// CharsPerToken overrides the ratio; <= 0 uses the default of 4.
	CharsPerToken int
}

// Estimate returns the approximate token count, rounding up.
func (e CharEstimator) Estimate(text string) int {
	cpt := e.CharsPerToken
	if cpt <= 0 {
		cpt = defaultCharsPerToken
	}
	if len(text) == 0 {
		return 0
	}
	return (len(text) + cpt - 1) / cpt
}

var defaultEstimator Estimator = CharEstimator{}

// EstimateTokens estimates the token count of a text string using the
// default character-count heuristic.
func EstimateTokens(text string) int {
	return defaultEstimator.Estimate(text)
}

// turnOverheadTokens approximates the per-message cost of role tags and
// message framing in the provider wire format.
const turnOverheadTokens = 4

// EstimateTurns estimates the total token count of a conversation slice,
// including per-turn formatting overhead.
func EstimateTurns(turns []Turn) int {
	return estimateTurns(turns, defaultEstimator)
}

func estimateTurns(turns []Turn, est Estimator) int {
	total := 0
	for i := range turns {
		total += turnOverheadTokens
		total += est.Estimate(turns[i].Content)
	}
	return total
}
