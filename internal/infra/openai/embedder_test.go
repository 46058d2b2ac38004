package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	_, err := NewGenerator("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestNewGeneratorOptionsOverrideDefaults(t *testing.T) {
	generator, err := NewGenerator("dummy-key", WithLLMModel("gpt-4o"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", generator.ModelName())
}
