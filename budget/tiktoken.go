package budget

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is cl100k_base, used by GPT-4-era models and a reasonable
// approximation for other providers.
const defaultEncoding = "cl100k_base"

// TiktokenEstimator counts tokens with a real BPE vocabulary for hosts that
// need closer provider parity than the character heuristic. It satisfies the
// same Estimator contract, so swapping it in changes no other component.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named encoding ("" uses cl100k_base).
// The first load may fetch the BPE rank file into the local tiktoken cache.
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("budget.NewTiktokenEstimator: %w", err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

// Estimate returns the exact token count under the loaded encoding.
// Still reported as an estimate: the provider's tokenizer may differ.
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}
