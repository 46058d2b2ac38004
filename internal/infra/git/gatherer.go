package git

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	enry "github.com/go-enry/go-enry/v2"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jinford/repo-rag/internal/core/ingestion"
)

// DefaultMaxFileTokens はファイル内容を切り詰めるトークン上限のデフォルト値
// Embedding モデルの入力上限（8192トークン）にヘッダ分の余裕を持たせた値
const DefaultMaxFileTokens = 8000

// Gatherer はローカル Git リポジトリから取り込みレコードを収集する
// ingestion.RecordSource の実装
type Gatherer struct {
	repoPath      string
	ref           string
	tokenCounter  ingestion.TokenCounter
	maxFileTokens int
	logger        *slog.Logger
}

type gathererOptions struct {
	ref           string
	tokenCounter  ingestion.TokenCounter
	maxFileTokens int
	logger        *slog.Logger
}

// GathererOption は Gatherer のオプション設定
type GathererOption func(*gathererOptions)

// WithRef は取り込み対象の ref（ブランチ・タグ・コミットハッシュ）を指定する
// 省略時は HEAD を使用する
func WithRef(ref string) GathererOption {
	return func(o *gathererOptions) {
		o.ref = ref
	}
}

// WithTokenTruncation はファイル内容のトークン切り詰めを有効化する
func WithTokenTruncation(counter ingestion.TokenCounter, maxTokens int) GathererOption {
	return func(o *gathererOptions) {
		o.tokenCounter = counter
		o.maxFileTokens = maxTokens
	}
}

// WithGathererLogger は Gatherer にロガーを設定する
func WithGathererLogger(logger *slog.Logger) GathererOption {
	return func(o *gathererOptions) {
		o.logger = logger
	}
}

// NewGatherer は新しい Gatherer を作成する
func NewGatherer(repoPath string, opts ...GathererOption) *Gatherer {
	options := gathererOptions{
		maxFileTokens: DefaultMaxFileTokens,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Gatherer{
		repoPath:      repoPath,
		ref:           options.ref,
		tokenCounter:  options.tokenCounter,
		maxFileTokens: options.maxFileTokens,
		logger:        options.logger,
	}
}

var _ ingestion.RecordSource = (*Gatherer)(nil)

// Gather はリポジトリの全コミットと全テキストファイルをレコード化する
// リポジトリが開けない場合は致命的エラー、個別ファイルのデコード失敗はスキップして継続する
func (g *Gatherer) Gather(ctx context.Context) ([]*ingestion.Record, int, error) {
	repo, err := git.PlainOpen(g.repoPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open repository at %s: %w", g.repoPath, err)
	}

	headHash, err := g.resolveRef(repo)
	if err != nil {
		return nil, 0, err
	}

	ignore, err := newIgnoreFilter(g.repoPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build ignore filter: %w", err)
	}

	var records []*ingestion.Record

	commitRecords, err := g.gatherCommits(repo, headHash)
	if err != nil {
		return nil, 0, err
	}
	records = append(records, commitRecords...)

	fileRecords, skipped, err := g.gatherFiles(repo, headHash, ignore)
	if err != nil {
		return nil, 0, err
	}
	records = append(records, fileRecords...)

	return records, skipped, nil
}

// gatherCommits は HEAD から到達可能な全コミットをレコード化する
func (g *Gatherer) gatherCommits(repo *git.Repository, from plumbing.Hash) ([]*ingestion.Record, error) {
	commitIter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer commitIter.Close()

	var records []*ingestion.Record
	err = commitIter.ForEach(func(commit *object.Commit) error {
		records = append(records, ingestion.NewCommitRecord(ingestion.CommitData{
			Hash:    commit.Hash.String(),
			Author:  commit.Author.Name,
			Date:    commit.Author.When,
			Message: strings.TrimRight(commit.Message, "\n"),
		}))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	return records, nil
}

// gatherFiles は HEAD のファイルツリーをレコード化する
// バイナリ・デコード不能・読み込み失敗・除外パターン一致のファイルはスキップする
func (g *Gatherer) gatherFiles(repo *git.Repository, from plumbing.Hash, ignore *ignoreFilter) ([]*ingestion.Record, int, error) {
	commit, err := repo.CommitObject(from)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get tree: %w", err)
	}

	var records []*ingestion.Record
	skipped := 0

	err = tree.Files().ForEach(func(f *object.File) error {
		if ignore.ShouldIgnore(f.Name) {
			skipped++
			g.logger.Debug("ファイルをスキップ", "path", f.Name, "reason", "ignored")
			return nil
		}

		content, ok := g.decodeFile(f)
		if !ok {
			skipped++
			g.logger.Debug("ファイルをスキップ", "path", f.Name, "reason", "binary")
			return nil
		}

		if g.tokenCounter != nil {
			truncated, err := g.tokenCounter.Truncate(content, g.maxFileTokens)
			if err == nil {
				content = truncated
			}
		}

		records = append(records, ingestion.NewFileRecord(f.Name, content))
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate files: %w", err)
	}

	return records, skipped, nil
}

// decodeFile は blob をテキストとしてデコードする
// バイナリ内容や読み込み失敗は ok=false を返し、呼び出し側でスキップする
func (g *Gatherer) decodeFile(f *object.File) (string, bool) {
	reader, err := f.Reader()
	if err != nil {
		return "", false
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}

	if enry.IsBinary(data) || !utf8.Valid(data) {
		return "", false
	}

	return string(data), true
}

// resolveRef は指定 ref をコミットハッシュに解決する。省略時は HEAD を使う
func (g *Gatherer) resolveRef(repo *git.Repository) (plumbing.Hash, error) {
	if g.ref == "" {
		headRef, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		return headRef.Hash(), nil
	}

	branchRef, err := repo.Reference(plumbing.NewBranchReferenceName(g.ref), true)
	if err == nil {
		return branchRef.Hash(), nil
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", g.ref), true)
	if err == nil {
		return remoteRef.Hash(), nil
	}

	tagRef, err := repo.Reference(plumbing.NewTagReferenceName(g.ref), true)
	if err == nil {
		return tagRef.Hash(), nil
	}

	hash := plumbing.NewHash(g.ref)
	if !hash.IsZero() {
		if _, err := repo.CommitObject(hash); err == nil {
			return hash, nil
		}
	}

	return plumbing.ZeroHash, fmt.Errorf("failed to resolve ref: %s", g.ref)
}
