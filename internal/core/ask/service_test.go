package ask

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/repo-rag/internal/core/ingestion"
)

type stubEmbedder struct {
	called bool
	err    error
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.called = true
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 2, 3}, nil
}

type stubStore struct {
	matches    []Match
	lastTopK   int
	lastFilter mo.Option[Filter]
	err        error
}

func (s *stubStore) Query(ctx context.Context, vector []float32, topK int, filter mo.Option[Filter]) ([]Match, error) {
	s.lastTopK = topK
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

type stubGenerator struct {
	lastPrompt string
	answer     string
	err        error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type stubTokenCounter struct{}

func (c *stubTokenCounter) Count(text string) (int, error) {
	return len(text), nil
}

func (c *stubTokenCounter) Truncate(text string, maxTokens int) (string, error) {
	if len(text) <= maxTokens {
		return text, nil
	}
	return text[:maxTokens], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fileMatch(path, text string, score float64) Match {
	return Match{
		Score: score,
		Metadata: map[string]string{
			ingestion.MetaKeySourceType: string(ingestion.SourceTypeFile),
			ingestion.MetaKeyPath:       path,
			ingestion.MetaKeyText:       text,
		},
	}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	svc := NewAskService(&stubStore{}, &stubEmbedder{}, &stubGenerator{}, WithAskLogger(testLogger()))

	_, err := svc.Ask(context.Background(), AskParams{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAskRejectsUnknownSourceFilter(t *testing.T) {
	svc := NewAskService(&stubStore{}, &stubEmbedder{}, &stubGenerator{}, WithAskLogger(testLogger()))

	_, err := svc.Ask(context.Background(), AskParams{
		Query:        "what changed",
		SourceFilter: mo.Some(ingestion.SourceType("branch")),
	})
	assert.ErrorIs(t, err, ErrInvalidSourceFilter)
}

func TestAskUsesDefaultTopKAndNoFilter(t *testing.T) {
	store := &stubStore{matches: []Match{fileMatch("a.go", "text a", 0.9)}}
	embedder := &stubEmbedder{}
	generator := &stubGenerator{answer: "answer"}

	svc := NewAskService(store, embedder, generator, WithAskLogger(testLogger()))

	result, err := svc.Ask(context.Background(), AskParams{Query: "what changed"})
	require.NoError(t, err)

	assert.True(t, embedder.called)
	assert.Equal(t, DefaultTopK, store.lastTopK)
	assert.True(t, store.lastFilter.IsAbsent())
	assert.Equal(t, "answer", result.Answer)
}

func TestAskAppliesSourceFilter(t *testing.T) {
	store := &stubStore{}
	svc := NewAskService(store, &stubEmbedder{}, &stubGenerator{answer: "ok"}, WithAskLogger(testLogger()))

	_, err := svc.Ask(context.Background(), AskParams{
		Query:        "what changed",
		SourceFilter: mo.Some(ingestion.SourceTypeCommit),
	})
	require.NoError(t, err)

	filter := store.lastFilter.MustGet()
	assert.Equal(t, ingestion.MetaKeySourceType, filter.Key)
	assert.Equal(t, "commit", filter.Value)
}

func TestAskBuildsPromptWithSentinelOnZeroMatches(t *testing.T) {
	generator := &stubGenerator{answer: "分かりません"}
	svc := NewAskService(&stubStore{}, &stubEmbedder{}, generator, WithAskLogger(testLogger()))

	result, err := svc.Ask(context.Background(), AskParams{Query: "what changed"})
	require.NoError(t, err)

	// 0件でも生成モデルへの問い合わせは行われ、センチネルがそのまま埋め込まれる
	assert.Contains(t, generator.lastPrompt, "## コンテキスト\n"+NoContextSentinel+"\n")
	assert.Equal(t, "分かりません", result.Answer)
	assert.Empty(t, result.Sources)
}

func TestAskConcatenatesMatchTextsInRankingOrder(t *testing.T) {
	store := &stubStore{matches: []Match{
		fileMatch("a.go", "text a", 0.9),
		fileMatch("b.go", "text b", 0.8),
	}}
	generator := &stubGenerator{answer: "answer"}

	svc := NewAskService(store, &stubEmbedder{}, generator, WithAskLogger(testLogger()))

	result, err := svc.Ask(context.Background(), AskParams{Query: "what changed"})
	require.NoError(t, err)

	assert.Contains(t, generator.lastPrompt, "text a"+ContextDelimiter+"text b")

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "a.go", result.Sources[0].Path)
	assert.Equal(t, 0.9, result.Sources[0].Score)
}

func TestAskDropsTrailingMatchesBeyondTokenLimit(t *testing.T) {
	store := &stubStore{matches: []Match{
		fileMatch("a.go", strings.Repeat("a", 40), 0.9),
		fileMatch("b.go", strings.Repeat("b", 40), 0.8),
		fileMatch("c.go", strings.Repeat("c", 40), 0.7),
	}}
	generator := &stubGenerator{answer: "answer"}

	svc := NewAskService(store, &stubEmbedder{}, generator,
		WithAskLogger(testLogger()),
		WithContextTokenLimit(&stubTokenCounter{}, 100),
	)

	_, err := svc.Ask(context.Background(), AskParams{Query: "what changed"})
	require.NoError(t, err)

	assert.Contains(t, generator.lastPrompt, strings.Repeat("a", 40))
	assert.Contains(t, generator.lastPrompt, strings.Repeat("b", 40))
	assert.NotContains(t, generator.lastPrompt, strings.Repeat("c", 40))
}

func TestAskPropagatesGeneratorFailure(t *testing.T) {
	svc := NewAskService(
		&stubStore{matches: []Match{fileMatch("a.go", "text", 0.9)}},
		&stubEmbedder{},
		&stubGenerator{err: errors.New("model overloaded")},
		WithAskLogger(testLogger()),
	)

	_, err := svc.Ask(context.Background(), AskParams{Query: "what changed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
