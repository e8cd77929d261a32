package llm

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens for budget checks. tiktoken loads its BPE
// ranks lazily and may fail in offline environments; the counter then falls
// back to a character-based estimate so the pipeline keeps working.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTokenCounter(model string) *TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	}
	return &TokenCounter{enc: enc}
}

func (tc *TokenCounter) Count(text string) int {
	if tc.enc == nil {
		return EstimateTokens(text)
	}
	return len(tc.enc.Encode(text, nil, nil))
}

// EstimateTokens approximates one token per four characters.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
