// Package compress bounds the conversation history sent to the model:
// older turns are summarized within a fixed token budget while the most
// recent turns are kept verbatim.
package compress

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/session"
)

const (
	// RawContextCount is how many trailing messages are always kept verbatim.
	RawContextCount = 3
	// MaxSummaryTokens caps the estimated tokens handed to the summarizer.
	MaxSummaryTokens = 6000
	// CharsPerToken is the heuristic ratio used by CharEstimator.
	CharsPerToken = 4
	// FallbackCount is how many trailing messages survive a failed summary.
	FallbackCount = 5
)

// SummaryPrefix introduces the summary system message.
const SummaryPrefix = "Previous Conversation Summary: "

// Summarizer turns a prompt into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Compressor implements the summarize-old, keep-recent policy.
type Compressor struct {
	summarizer Summarizer
	estimator  Estimator
	log        *logging.Logger
}

// New creates a Compressor. A nil estimator means CharEstimator.
func New(summarizer Summarizer, estimator Estimator, log *logging.Logger) *Compressor {
	if estimator == nil {
		estimator = CharEstimator{}
	}
	return &Compressor{summarizer: summarizer, estimator: estimator, log: log.Sub("compress")}
}

// Compress converts history into model messages, summarizing when the
// history is longer than RawContextCount. current is the pending user
// request, used to steer the summary.
func (c *Compressor) Compress(ctx context.Context, history []session.Message, current string) []llm.Message {
	if len(history) == 0 {
		return []llm.Message{}
	}
	if len(history) <= RawContextCount {
		return Convert(history)
	}

	recent := history[len(history)-RawContextCount:]
	candidates := SelectCandidates(history[:len(history)-RawContextCount], c.estimator)
	prompt := SummaryPrompt(current, candidates)

	summary, err := c.summarizer.Summarize(ctx, prompt)
	if err != nil {
		c.log.Warn().Err(err).Msg("history compression failed; falling back to truncation")
		return Convert(history[max(0, len(history)-FallbackCount):])
	}

	out := make([]llm.Message, 0, RawContextCount+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: SummaryPrefix + summary})
	return append(out, Convert(recent)...)
}

// SelectCandidates walks older messages newest to oldest, keeping each
// while the running estimate stays within MaxSummaryTokens. The first
// message that would overflow stops the walk. The result is chronological.
func SelectCandidates(older []session.Message, est Estimator) []session.Message {
	var total float64
	start := len(older)
	for i := len(older) - 1; i >= 0; i-- {
		tokens := est.Estimate(older[i].Content)
		if total+tokens > MaxSummaryTokens {
			break
		}
		total += tokens
		start = i
	}
	return older[start:]
}

// SummaryPrompt renders the summarization request.
func SummaryPrompt(current string, candidates []session.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following conversation history, focusing on key facts and user preferences that might be relevant to the new user request: '%s'. Ignore irrelevant details like casual chatter or completed tool outputs unless they provide necessary context.\n\nHistory:\n", current)
	for _, m := range candidates {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(m.Role), m.Content)
	}
	return b.String()
}

// Convert maps stored messages to model messages verbatim. Roles other
// than user and assistant are dropped.
func Convert(history []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case session.RoleUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case session.RoleAssistant:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return out
}
