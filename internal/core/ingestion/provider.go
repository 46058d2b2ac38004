package ingestion

import "context"

// RecordSource はリポジトリの現在状態から全レコードを取得するインターフェース
// Git 以外のソース管理システムに対応するための拡張ポイント
type RecordSource interface {
	// Gather はリポジトリの全コミットと全テキストファイルをレコード化して返す
	// 順序は1回の取り込み内で安定していればよい
	// バイナリ等のデコード不能ファイルはスキップされ、スキップ件数が返る
	Gather(ctx context.Context) (records []*Record, skipped int, err error)
}

// Embedder はテキストをベクトルに変換するインターフェース
// ドキュメント取り込みとクエリで embedding の意図が異なるため、呼び分けを明示する
type Embedder interface {
	// EmbedDocuments は複数テキストの Embedding を入力順を保って生成する
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenCounter はテキストのトークン数計測と切り詰めを提供する
type TokenCounter interface {
	Count(text string) (int, error)
	// Truncate は maxTokens を超える部分を切り落としたテキストを返す
	Truncate(text string, maxTokens int) (string, error)
}
