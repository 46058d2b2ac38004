package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/mo"

	"github.com/jinford/repo-rag/internal/core/ingestion"
)

var (
	// ErrEmptyQuery は質問文が空の場合のエラー
	ErrEmptyQuery = errors.New("query is required")

	// ErrInvalidSourceFilter は source_type フィルタ値が不正な場合のエラー
	ErrInvalidSourceFilter = errors.New("source filter must be \"file\" or \"commit\"")
)

// AskService は質問応答のビジネスロジックを提供する
type AskService struct {
	store             VectorStore
	embedder          Embedder
	generator         Generator
	tokenCounter      ingestion.TokenCounter
	contextTokenLimit int
	logger            *slog.Logger
}

type askServiceOptions struct {
	tokenCounter      ingestion.TokenCounter
	contextTokenLimit int
	logger            *slog.Logger
}

// AskServiceOption は AskService のオプション設定
type AskServiceOption func(*askServiceOptions)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(o *askServiceOptions) {
		o.logger = logger
	}
}

// WithContextTokenLimit はコンテキストブロックのトークン上限を設定する
// 上限を超える検索結果は末尾から丸ごと落とされる（分割はしない）
func WithContextTokenLimit(counter ingestion.TokenCounter, limit int) AskServiceOption {
	return func(o *askServiceOptions) {
		o.tokenCounter = counter
		o.contextTokenLimit = limit
	}
}

// NewAskService は新しい AskService を作成する
func NewAskService(
	store VectorStore,
	embedder Embedder,
	generator Generator,
	opts ...AskServiceOption,
) *AskService {
	options := askServiceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &AskService{
		store:             store,
		embedder:          embedder,
		generator:         generator,
		tokenCounter:      options.tokenCounter,
		contextTokenLimit: options.contextTokenLimit,
		logger:            options.logger,
	}
}

// Ask は質問に対してRAGベースで回答を生成する
func (s *AskService) Ask(ctx context.Context, params AskParams) (*AskResult, error) {
	if params.Query == "" {
		return nil, ErrEmptyQuery
	}
	if filter, ok := params.SourceFilter.Get(); ok {
		if filter != ingestion.SourceTypeFile && filter != ingestion.SourceTypeCommit {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSourceFilter, filter)
		}
	}

	topK := params.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	// 1. クエリを検索用の意図で embedding する
	vector, err := s.embedder.EmbedQuery(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("クエリの embedding に失敗: %w", err)
	}

	// 2. メタデータ込みで top-k 類似検索
	storeFilter := mo.None[Filter]()
	if sourceType, ok := params.SourceFilter.Get(); ok {
		storeFilter = mo.Some(Filter{
			Key:   ingestion.MetaKeySourceType,
			Value: string(sourceType),
		})
	}

	matches, err := s.store.Query(ctx, vector, topK, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("類似検索に失敗: %w", err)
	}

	s.logger.Info("類似検索が完了",
		"query", params.Query,
		"topK", topK,
		"matches", len(matches),
		"filtered", params.SourceFilter.IsPresent(),
	)

	// 3. コンテキストブロックを構築（0件ならセンチネル文字列をそのまま渡す）
	texts := s.contextTexts(matches)
	contextBlock := BuildContext(texts)

	// 4. プロンプトを構築して回答を生成
	prompt := BuildAskPrompt(params.Query, contextBlock)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("回答の生成に失敗: %w", err)
	}

	sources := make([]SourceReference, 0, len(matches))
	for _, match := range matches {
		sources = append(sources, SourceReference{
			SourceType: match.Metadata[ingestion.MetaKeySourceType],
			Path:       match.Metadata[ingestion.MetaKeyPath],
			Score:      match.Score,
		})
	}

	s.logger.Info("質問応答が完了",
		"answerLength", len(answer),
		"sources", len(sources),
	)

	return &AskResult{
		Answer:  answer,
		Sources: sources,
	}, nil
}

// contextTexts は検索結果からコンテキストに使うテキストをランキング順で取り出す
// トークン上限が設定されている場合、上限を超えた以降の結果は丸ごと落とす
func (s *AskService) contextTexts(matches []Match) []string {
	texts := make([]string, 0, len(matches))
	total := 0

	for _, match := range matches {
		text := match.Metadata[ingestion.MetaKeyText]

		if s.tokenCounter != nil && s.contextTokenLimit > 0 {
			count, err := s.tokenCounter.Count(text)
			if err != nil {
				// 計測に失敗したテキストは上限判定をスキップしてそのまま採用する
				texts = append(texts, text)
				continue
			}
			if total+count > s.contextTokenLimit && len(texts) > 0 {
				s.logger.Info("コンテキストのトークン上限に到達",
					"included", len(texts),
					"dropped", len(matches)-len(texts),
				)
				break
			}
			total += count
		}

		texts = append(texts, text)
	}

	return texts
}
