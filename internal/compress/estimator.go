package compress

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator approximates the token count of a text.
type Estimator interface {
	Estimate(text string) float64
}

// CharEstimator counts len(text)/CharsPerToken, fractional.
type CharEstimator struct{}

func (CharEstimator) Estimate(text string) float64 {
	return float64(len(text)) / CharsPerToken
}

// TiktokenEstimator counts cl100k_base tokens. The encoding is loaded on
// first use; if it cannot be loaded (offline, no BPE cache) the estimator
// degrades to CharEstimator.
type TiktokenEstimator struct {
	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback CharEstimator
}

// NewTiktokenEstimator creates a lazily-initialised estimator.
func NewTiktokenEstimator() *TiktokenEstimator {
	return &TiktokenEstimator{}
}

func (t *TiktokenEstimator) Estimate(text string) float64 {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		return t.fallback.Estimate(text)
	}
	return float64(len(t.enc.Encode(text, nil, nil)))
}

// Exact reports whether the real encoding is in use.
func (t *TiktokenEstimator) Exact() bool {
	t.Estimate("")
	return t.enc != nil
}

// EstimatorFor maps a TOKEN_ESTIMATOR setting to an Estimator.
func EstimatorFor(name string) Estimator {
	if name == "tiktoken" {
		return NewTiktokenEstimator()
	}
	return CharEstimator{}
}
