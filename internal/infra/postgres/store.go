package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/repo-rag/internal/core/ask"
	"github.com/jinford/repo-rag/internal/core/ingestion"
)

// Store は pgvector を使ったベクトルインデックスの実装
// 1つのインデックス = 1テーブル（id, embedding, metadata）で構成する
type Store struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// NewStore は新しい Store を作成する
// tableName は設定のインデックス名をそのまま使う
func NewStore(pool *pgxpool.Pool, tableName string, dimension int) *Store {
	return &Store{
		pool:      pool,
		table:     tableName,
		dimension: dimension,
	}
}

var (
	_ ingestion.VectorStore = (*Store)(nil)
	_ ask.VectorStore       = (*Store)(nil)
)

// tableIdent はテーブル名をSQL識別子としてクォートする
// テーブル名はSQLパラメータにできないため、識別子エスケープで埋め込む
func (s *Store) tableIdent() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureSchema は拡張とインデックステーブルを作成する
// 小規模リポジトリが前提のため、ANNインデックスは張らず逐次スキャンに任せる
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding VECTOR(%d) NOT NULL,
			metadata JSONB NOT NULL
		)`, s.tableIdent(), s.dimension)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create index table: %w", err)
	}

	return nil
}

// DeleteAll はインデックスの全エントリを削除する
func (s *Store) DeleteAll(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE %s", s.tableIdent())
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to delete all entries: %w", err)
	}
	return nil
}

// Upsert はエントリ群を一括で insert-or-update する
func (s *Store) Upsert(ctx context.Context, entries []ingestion.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`, s.tableIdent())

	batch := &pgx.Batch{}
	for _, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", entry.ID, err)
		}
		batch.Queue(query, entry.ID, pgvector.NewVector(entry.Vector), metadataJSON)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert entries: %w", err)
		}
	}

	return nil
}

// Query はコサイン類似度による top-k 近傍検索を行う
// filter が指定された場合はメタデータフィールドの等価条件で絞り込む
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter mo.Option[ask.Filter]) ([]ask.Match, error) {
	query := fmt.Sprintf(`
		SELECT metadata, 1 - (embedding <=> $1) AS score
		FROM %s`, s.tableIdent())

	args := []any{pgvector.NewVector(vector)}
	if f, ok := filter.Get(); ok {
		query += " WHERE metadata->>$2 = $3"
		args = append(args, f.Key, f.Value)
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var matches []ask.Match
	for rows.Next() {
		var metadataJSON []byte
		var score float64
		if err := rows.Scan(&metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}

		metadata := map[string]string{}
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		matches = append(matches, ask.Match{
			Score:    score,
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}

// Stats はインデックスの統計情報を返す
func (s *Store) Stats(ctx context.Context) (*ingestion.IndexStats, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s", s.tableIdent())

	var total int64
	if err := s.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	return &ingestion.IndexStats{
		TotalRecords: total,
		Dimension:    s.dimension,
	}, nil
}
