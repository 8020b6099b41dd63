package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults", func(t *testing.T) {
		t.Setenv("FINTOR_DATABASE_URL", "postgres://localhost:5432/fintor")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.False(t, cfg.Debug)
		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "postgres://localhost:5432/fintor", cfg.DatabaseURL)
	})

	t.Run("reads overrides from environment", func(t *testing.T) {
		t.Setenv("FINTOR_DATABASE_URL", "postgres://db:5432/fintor")
		t.Setenv("FINTOR_PORT", "9090")
		t.Setenv("FINTOR_DEBUG", "true")
		t.Setenv("FINTOR_OPENAI_API_KEY", "sk-test")
		t.Setenv("FINTOR_EMBEDDING_MODEL", "text-embedding-ada-002")
		t.Setenv("FINTOR_ENVIRONMENT", "production")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.True(t, cfg.Debug)
		assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
		assert.Equal(t, "text-embedding-ada-002", cfg.EmbeddingModel)
		assert.Equal(t, "production", cfg.Environment)
		assert.True(t, cfg.HasOpenAI())
	})

	t.Run("fails without a database url", func(t *testing.T) {
		t.Setenv("FINTOR_DATABASE_URL", "")

		_, err := Load()

		assert.Error(t, err)
	})
}

func TestConfig_HasOpenAI(t *testing.T) {
	assert.False(t, (&Config{}).HasOpenAI())
	assert.True(t, (&Config{OpenAIAPIKey: "sk-x"}).HasOpenAI())
}
