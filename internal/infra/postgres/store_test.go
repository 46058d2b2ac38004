package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/repo-rag/internal/core/ask"
	"github.com/jinford/repo-rag/internal/core/ingestion"
)

// setupStore は pgvector コンテナを起動して Store を作成する
// Docker が使えない環境ではテストをスキップする
func setupStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=reporag",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=reporag_test",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dockerPool.Purge(resource)
	})
	_ = resource.Expire(180)

	var store *Store
	dockerPool.MaxWait = 60 * time.Second
	err = dockerPool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		port := 0
		if _, err := fmt.Sscanf(resource.GetPort("5432/tcp"), "%d", &port); err != nil {
			return err
		}

		pool, err := Connect(ctx, ConnectionParams{
			Host:     "localhost",
			Port:     port,
			User:     "reporag",
			Password: "secret",
			DBName:   "reporag_test",
			SSLMode:  "disable",
		})
		if err != nil {
			return err
		}

		store = NewStore(pool, "repo_rag_test", 3)
		return store.EnsureSchema(ctx)
	})
	require.NoError(t, err)

	return store
}

func testEntries() []ingestion.Entry {
	fileMeta := func(path, text string) map[string]string {
		return map[string]string{
			ingestion.MetaKeySourceType: "file",
			ingestion.MetaKeyPath:       path,
			ingestion.MetaKeyText:       text,
		}
	}
	return []ingestion.Entry{
		{ID: "file-a.go", Vector: []float32{1, 0, 0}, Metadata: fileMeta("a.go", "File: a.go\n\npackage a")},
		{ID: "file-b.go", Vector: []float32{0.9, 0.1, 0}, Metadata: fileMeta("b.go", "File: b.go\n\npackage b")},
		{
			ID:     "commit-abc123",
			Vector: []float32{0, 1, 0},
			Metadata: map[string]string{
				ingestion.MetaKeySourceType: "commit",
				ingestion.MetaKeyText:       "Commit: abc123\nAuthor: alice\nDate: 2025-06-01T12:00:00Z\nMessage: fix bug",
			},
		},
	}
}

func TestStoreIntegration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testEntries()))

	t.Run("query returns matches in similarity order", func(t *testing.T) {
		matches, err := store.Query(ctx, []float32{1, 0, 0}, 7, mo.None[ask.Filter]())
		require.NoError(t, err)
		require.Len(t, matches, 3)

		assert.Equal(t, "a.go", matches[0].Metadata[ingestion.MetaKeyPath])
		assert.Equal(t, "b.go", matches[1].Metadata[ingestion.MetaKeyPath])
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("query respects topK", func(t *testing.T) {
		matches, err := store.Query(ctx, []float32{1, 0, 0}, 1, mo.None[ask.Filter]())
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("source filter excludes other source types", func(t *testing.T) {
		filter := mo.Some(ask.Filter{Key: ingestion.MetaKeySourceType, Value: "commit"})
		matches, err := store.Query(ctx, []float32{1, 0, 0}, 7, filter)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "commit", matches[0].Metadata[ingestion.MetaKeySourceType])
	})

	t.Run("upsert is idempotent by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, testEntries()))

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalRecords)
		assert.Equal(t, 3, stats.Dimension)
	})

	t.Run("delete all empties the index", func(t *testing.T) {
		require.NoError(t, store.DeleteAll(ctx))

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalRecords)

		matches, err := store.Query(ctx, []float32{1, 0, 0}, 7, mo.None[ask.Filter]())
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
