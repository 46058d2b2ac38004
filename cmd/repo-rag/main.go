package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/repo-rag/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "repo-rag",
		Usage: "Gitリポジトリのコミット履歴とファイルを対象にしたRAG質問応答ツール",
		Commands: []*cli.Command{
			{
				Name:  "ingest",
				Usage: "リポジトリをベクトルインデックスへ取り込む（既存インデックスは全件置き換え）",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "repo",
						Usage: "リポジトリのローカルパスまたはGit URL（省略時はカレントディレクトリ）",
						Value: ".",
					},
					&cli.StringFlag{
						Name:  "ref",
						Usage: "ブランチ名・タグ名・コミットハッシュ（省略時はHEAD）",
					},
				},
				Action: appcli.IngestAction,
			},
			{
				Name:      "ask",
				Usage:     "インデックスに対して自然言語で質問する",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "ソース種別で絞り込み (file/commit)",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "検索する近傍レコード数（省略時は設定値）",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "回答の根拠となった検索結果も表示する",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "stats",
				Usage: "インデックスの統計情報を表示する",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: appcli.StatsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
