package ask

import (
	"context"

	"github.com/samber/mo"

	"github.com/jinford/repo-rag/internal/core/ingestion"
)

// DefaultTopK は類似検索で取得する近傍レコード数のデフォルト値
const DefaultTopK = 7

// Match はベクトルストアが返す (スコア, メタデータ) の組
// このシステムが消費するのは metadata の text のみ
type Match struct {
	Score    float64
	Metadata map[string]string
}

// Filter はメタデータフィールドに対する等価述語
type Filter struct {
	Key   string
	Value string
}

// VectorStore は質問応答パイプラインが利用するベクトルストア操作
type VectorStore interface {
	// Query はクエリベクトルに対する top-k 近傍をスコア降順で返す
	// filter が指定された場合はメタデータの等価条件で絞り込む
	Query(ctx context.Context, vector []float32, topK int, filter mo.Option[Filter]) ([]Match, error)
}

// Embedder はクエリテキストをベクトルに変換するインターフェース
// ドキュメント取り込み時とは embedding の意図が異なる（検索マッチング最適化）
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator はプロンプトから回答テキストを生成するインターフェース
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AskParams は質問応答のパラメータを表す
type AskParams struct {
	Query        string                          // ユーザーの質問文（必須）
	SourceFilter mo.Option[ingestion.SourceType] // ソース種別での絞り込み（省略時は全種別）
	TopK         int                             // 検索上限（0以下ならデフォルト値）
}

// SourceReference は回答の根拠となった検索結果の参照情報
type SourceReference struct {
	SourceType string
	Path       string // ファイルレコードのみ
	Score      float64
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer  string // 生成モデルの回答（後処理なし）
	Sources []SourceReference
}
