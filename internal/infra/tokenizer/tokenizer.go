package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/repo-rag/internal/core/ingestion"
)

// DefaultEncoding は text-embedding-3 系モデルで使われるエンコーディング
const DefaultEncoding = "cl100k_base"

// TokenCounter は tiktoken によるトークン数計測と切り詰めを提供する
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しい TokenCounter を作成する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{encoding: encoding}, nil
}

var _ ingestion.TokenCounter = (*TokenCounter)(nil)

// Count はテキストのトークン数を返す
func (tc *TokenCounter) Count(text string) (int, error) {
	return len(tc.encoding.Encode(text, nil, nil)), nil
}

// Truncate は maxTokens を超える部分をトークン境界で切り落としたテキストを返す
func (tc *TokenCounter) Truncate(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return text, nil
	}

	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}

	return tc.encoding.Decode(tokens[:maxTokens]), nil
}
