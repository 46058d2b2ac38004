package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// StatsAction はインデックス統計を表示するコマンドのアクション
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("インデックス統計の取得に失敗: %w", err)
	}

	fmt.Printf("インデックス: %s\n", appCtx.Config.Index.Name)
	fmt.Printf("総レコード数: %d\n", stats.TotalRecords)
	fmt.Printf("ベクトル次元: %d\n", stats.Dimension)

	return nil
}
