package ingestion

import (
	"fmt"
	"time"
)

// SourceType はレコードの取り込み元種別を表す
type SourceType string

const (
	// SourceTypeFile はファイル由来のレコード
	SourceTypeFile SourceType = "file"
	// SourceTypeCommit はコミット由来のレコード
	SourceTypeCommit SourceType = "commit"
)

// メタデータのキー定義
// text はクエリ時にセカンダリ取得なしで元テキストを復元するための自己記述ペイロード
const (
	MetaKeySourceType = "source_type"
	MetaKeyText       = "text"
	MetaKeyPath       = "path"
)

// Record は取り込み処理の単位（1コミットまたは1ファイル）を表す
// ID は1回の取り込み内で一意であり、決定的に導出される
type Record struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// CommitData はコミットレコードの構築に必要な情報
type CommitData struct {
	Hash    string
	Author  string
	Date    time.Time
	Message string
}

// NewCommitRecord はコミット情報からレコードを構築する
func NewCommitRecord(c CommitData) *Record {
	text := fmt.Sprintf(
		"Commit: %s\nAuthor: %s\nDate: %s\nMessage: %s",
		c.Hash,
		c.Author,
		c.Date.Format(time.RFC3339),
		c.Message,
	)

	return &Record{
		ID:   "commit-" + c.Hash,
		Text: text,
		Metadata: map[string]string{
			MetaKeySourceType: string(SourceTypeCommit),
			MetaKeyText:       text,
		},
	}
}

// NewFileRecord はファイルパスとデコード済み内容からレコードを構築する
func NewFileRecord(path, content string) *Record {
	text := fmt.Sprintf("File: %s\n\n%s", path, content)

	return &Record{
		ID:   "file-" + path,
		Text: text,
		Metadata: map[string]string{
			MetaKeySourceType: string(SourceTypeFile),
			MetaKeyText:       text,
			MetaKeyPath:       path,
		},
	}
}
