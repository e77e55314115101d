package chunk

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter estimates the token count of a piece of text. The engine is
// agnostic to the counting unit; callers plug in whatever matches their
// downstream model.
type TokenCounter func(text string) int

// HeuristicCounter approximates tokens as chars/4. Cheap, deterministic,
// and close enough for budget enforcement when no real tokenizer is wired.
func HeuristicCounter(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / TokensPerChar
	if n < 1 {
		n = 1
	}
	return n
}

// NewTiktokenCounter returns a counter backed by tiktoken's cl100k_base
// encoding. Falls back to an error (not a silent heuristic) so callers can
// decide how to degrade.
func NewTiktokenCounter() (TokenCounter, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	return func(text string) int {
		if text == "" {
			return 0
		}
		ids, _, err := enc.Encode(text)
		if err != nil {
			// Encoding failures are not actionable mid-count; degrade to
			// the heuristic for this string.
			return HeuristicCounter(text)
		}
		return len(ids)
	}, nil
}
