package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/repo-rag/internal/core/ask"
	coreingestion "github.com/jinford/repo-rag/internal/core/ingestion"
)

// AskContextTokenLimit は生成プロンプトに含めるコンテキストのトークン上限
const AskContextTokenLimit = 6000

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	source := cmd.String("source")
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")
	topK := cmd.Int("top-k")

	sourceFilter := mo.None[coreingestion.SourceType]()
	switch source {
	case "":
		// フィルタなし（全ソース種別を対象）
	case "file", "commit":
		sourceFilter = mo.Some(coreingestion.SourceType(source))
	default:
		return fmt.Errorf("--source には file または commit を指定してください: %q", source)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("質問応答を開始",
		"question", question,
		"source", source,
	)

	opts := []coreask.AskServiceOption{}
	if appCtx.TokenCounter != nil {
		opts = append(opts, coreask.WithContextTokenLimit(appCtx.TokenCounter, AskContextTokenLimit))
	}

	svc := coreask.NewAskService(
		appCtx.Store,
		appCtx.Embedder,
		appCtx.Generator,
		opts...,
	)

	// フラグ未指定時は設定値を使う
	if topK <= 0 {
		topK = appCtx.Config.Index.TopK
	}

	result, err := svc.Ask(ctx, coreask.AskParams{
		Query:        question,
		SourceFilter: sourceFilter,
		TopK:         topK,
	})
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	fmt.Println(result.Answer)

	if showSources && len(result.Sources) > 0 {
		fmt.Println("\n--- 参照ソース ---")
		for i, source := range result.Sources {
			label := source.SourceType
			if source.Path != "" {
				label = fmt.Sprintf("%s %s", source.SourceType, source.Path)
			}
			fmt.Printf("[%d] %s スコア: %.4f\n", i+1, label, source.Score)
		}
	}

	slog.Info("質問応答が完了しました", "sources", len(result.Sources))
	return nil
}
