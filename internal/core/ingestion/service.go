package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// DefaultBatchSize は Embedding API 1回あたりの最大レコード数
// 外部サービスのペイロード上限に合わせた値であり、並列化のためのものではない
const DefaultBatchSize = 100

// ErrEmbeddingCountMismatch は Embedding の返却数が入力数と一致しない場合のエラー
// 位置ベースで vector をレコードに対応付けるため、件数不一致は黙って進めず即座に失敗させる
var ErrEmbeddingCountMismatch = errors.New("embedding count does not match batch size")

// IngestResult は取り込み処理の結果を表す
type IngestResult struct {
	CommitRecords int
	FileRecords   int
	SkippedFiles  int
	Batches       int
	IndexTotal    int64
	Duration      time.Duration
}

// IngestService はリポジトリ取り込みのユースケースを提供する
// 取り込みは常に全件削除→全件再投入（full-replace）であり、途中失敗からの再開はできない
type IngestService struct {
	source    RecordSource
	embedder  Embedder
	store     VectorStore
	batchSize int
	logger    *slog.Logger
}

type ingestServiceOptions struct {
	batchSize int
	logger    *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger は IngestService にロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithBatchSize はバッチサイズを上書きする
func WithBatchSize(size int) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.batchSize = size
	}
}

// NewIngestService は新しい IngestService を作成する
func NewIngestService(
	source RecordSource,
	embedder Embedder,
	store VectorStore,
	opts ...IngestServiceOption,
) *IngestService {
	options := ingestServiceOptions{
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.batchSize <= 0 {
		options.batchSize = DefaultBatchSize
	}

	return &IngestService{
		source:    source,
		embedder:  embedder,
		store:     store,
		batchSize: options.batchSize,
		logger:    options.logger,
	}
}

// Ingest はリポジトリの全コミット・全ファイルをレコード化し、
// インデックスを全件置き換える
func (s *IngestService) Ingest(ctx context.Context) (*IngestResult, error) {
	startTime := time.Now()

	records, skipped, err := s.source.Gather(ctx)
	if err != nil {
		return nil, fmt.Errorf("レコードの収集に失敗: %w", err)
	}

	result := &IngestResult{SkippedFiles: skipped}
	for _, record := range records {
		switch SourceType(record.Metadata[MetaKeySourceType]) {
		case SourceTypeCommit:
			result.CommitRecords++
		case SourceTypeFile:
			result.FileRecords++
		}
	}

	s.logger.Info("レコードを収集",
		"commits", result.CommitRecords,
		"files", result.FileRecords,
		"skipped", result.SkippedFiles,
	)

	// full-replace: 最初のバッチを投入する前にインデックスを空にする
	if err := s.store.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("インデックスの初期化に失敗: %w", err)
	}

	for batch := range slices.Chunk(records, s.batchSize) {
		if err := s.upsertBatch(ctx, batch); err != nil {
			return nil, err
		}
		result.Batches++

		s.logger.Info("バッチを投入",
			"batch", result.Batches,
			"size", len(batch),
		)
	}

	// 取り込み後のレポート用。失敗しても取り込み自体は成功している
	if stats, err := s.store.Stats(ctx); err != nil {
		s.logger.Warn("インデックス統計の取得に失敗", "error", err)
	} else {
		result.IndexTotal = stats.TotalRecords
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// upsertBatch は1バッチ分のテキストを Embedding してストアへ投入する
// Embedding API は入力順を保って返す契約であり、位置ベースで対応付ける
func (s *IngestService) upsertBatch(ctx context.Context, batch []*Record) error {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding の生成に失敗: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCountMismatch, len(vectors), len(batch))
	}

	entries := make([]Entry, len(batch))
	for i, record := range batch {
		entries[i] = Entry{
			ID:       record.ID,
			Vector:   vectors[i],
			Metadata: record.Metadata,
		}
	}

	if err := s.store.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("ストアへの upsert に失敗: %w", err)
	}

	return nil
}
