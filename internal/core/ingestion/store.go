package ingestion

import "context"

// Entry はベクトルストアへ upsert する (id, vector, metadata) の組
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// IndexStats はインデックスの統計情報（取り込み後のレポート用）
type IndexStats struct {
	TotalRecords int64
	Dimension    int
}

// VectorStore は取り込みパイプラインが利用するベクトルストア操作
type VectorStore interface {
	// DeleteAll はインデックスの全エントリを削除する（full-replace の前処理）
	DeleteAll(ctx context.Context) error

	// Upsert はエントリ群を一括で insert-or-update する
	Upsert(ctx context.Context, entries []Entry) error

	// Stats はインデックスの統計情報を返す
	Stats(ctx context.Context) (*IndexStats, error)
}
