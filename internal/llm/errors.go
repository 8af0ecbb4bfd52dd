package llm

import (
	"errors"
	"fmt"
)

// ProviderError is returned when an LLM provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// retryableCodes are the statuses a provider uses to say it is overloaded
// or temporarily down.
var retryableCodes = map[int]bool{
	429: true,
	502: true,
	503: true,
	529: true,
}

// IsUnavailable reports whether err is a declared unavailability that a
// caller may answer by trying another provider.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return retryableCodes[pe.Code]
	}
	return false
}
