package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	coreingestion "github.com/jinford/repo-rag/internal/core/ingestion"
	infragit "github.com/jinford/repo-rag/internal/infra/git"
)

// IngestAction はリポジトリ取り込みコマンドのアクション
// インデックスは全件削除のうえ再構築される（full-replace）
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	repo := cmd.String("repo")
	ref := cmd.String("ref")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("リポジトリ取り込みを開始",
		"repo", repo,
		"ref", ref,
		"index", appCtx.Config.Index.Name,
	)

	// リモートURLの場合はローカルへクローンしてから取り込む
	client := infragit.NewClient(appCtx.Config.Git.CloneDir)
	repoPath, err := client.Materialize(ctx, repo, ref)
	if err != nil {
		return fmt.Errorf("リポジトリの取得に失敗: %w", err)
	}

	gathererOpts := []infragit.GathererOption{
		infragit.WithRef(ref),
	}
	if appCtx.TokenCounter != nil {
		gathererOpts = append(gathererOpts,
			infragit.WithTokenTruncation(appCtx.TokenCounter, infragit.DefaultMaxFileTokens),
		)
	}
	gatherer := infragit.NewGatherer(repoPath, gathererOpts...)

	svc := coreingestion.NewIngestService(
		gatherer,
		appCtx.Embedder,
		appCtx.Store,
		coreingestion.WithBatchSize(appCtx.Config.Index.BatchSize),
	)

	result, err := svc.Ingest(ctx)
	if err != nil {
		slog.Error("リポジトリ取り込みに失敗しました", "error", err)
		return err
	}

	slog.Info("リポジトリ取り込みが完了しました",
		"commits", result.CommitRecords,
		"files", result.FileRecords,
		"skipped", result.SkippedFiles,
		"batches", result.Batches,
		"indexTotal", result.IndexTotal,
		"duration", result.Duration,
	)

	fmt.Printf("取り込み完了: コミット %d 件 / ファイル %d 件（スキップ %d 件）\n",
		result.CommitRecords, result.FileRecords, result.SkippedFiles)
	fmt.Printf("インデックス %s の総レコード数: %d\n",
		appCtx.Config.Index.Name, result.IndexTotal)

	return nil
}
