package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/repo-rag/internal/core/ingestion"
	"github.com/jinford/repo-rag/internal/infra/openai"
	"github.com/jinford/repo-rag/internal/infra/postgres"
	"github.com/jinford/repo-rag/internal/infra/tokenizer"
	"github.com/jinford/repo-rag/pkg/config"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
// グローバルなクライアント状態は持たず、起動時にここで明示的に構築する
type AppContext struct {
	Config       *config.Config
	Store        *postgres.Store
	Embedder     *openai.Embedder
	Generator    *openai.Generator
	TokenCounter ingestion.TokenCounter // 取得失敗時は nil（切り詰めなしで動作）

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAppContext は設定を読み込み・検証し、外部サービスクライアントを構築する
// 必須設定の欠落は外部呼び出しが始まる前にここで検出される
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	pool, err := postgres.Connect(ctx, postgres.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	store := postgres.NewStore(pool, cfg.Index.Name, cfg.OpenAI.EmbeddingDimension)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("インデックススキーマの作成に失敗: %w", err)
	}

	embedder := openai.NewEmbedder(cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	generator, err := openai.NewGenerator(cfg.OpenAI.APIKey,
		openai.WithLLMModel(cfg.OpenAI.LLMModel),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("生成クライアントの作成に失敗: %w", err)
	}

	logger := slog.Default()

	var tokenCounter ingestion.TokenCounter
	if counter, err := tokenizer.NewTokenCounter(); err != nil {
		logger.Warn("トークンカウンタの初期化に失敗したため、切り詰めなしで続行します", "error", err)
	} else {
		tokenCounter = counter
	}

	return &AppContext{
		Config:       cfg,
		Store:        store,
		Embedder:     embedder,
		Generator:    generator,
		TokenCounter: tokenCounter,
		pool:         pool,
		logger:       logger,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.pool != nil {
		ac.pool.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.logger != nil {
		return ac.logger
	}
	return slog.Default()
}
