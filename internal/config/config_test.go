package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CURATOR_API_KEY", "CURATOR_AI_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "storycurator.db", cfg.DB.Path)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Empty(t, cfg.AI.Model)
	assert.Equal(t, 4069, cfg.AI.MaxTokens)
	assert.Equal(t, 7, cfg.Review.CategoryWorkers)
	assert.Equal(t, 5, cfg.Review.StoryWorkers)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
data:
  dir: corpus
ai:
  provider: gemini
  model: gemini-1.5-pro
  max_tokens: 2048
review:
  story_workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "corpus", cfg.Data.Dir)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Model)
	assert.Equal(t, 2048, cfg.AI.MaxTokens)
	assert.Equal(t, 2, cfg.Review.StoryWorkers)
	// Untouched sections keep their defaults.
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, 7, cfg.Review.CategoryWorkers)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CURATOR_API_KEY", "sk-from-env")
	t.Setenv("CURATOR_AI_PROVIDER", "gemini")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ai:
  provider: openai
  api_key: sk-from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "sk-from-env", cfg.AI.APIKey)
}

func TestLoadConfig_ProviderKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CURATOR_AI_PROVIDER", "gemini")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.AI.APIKey)

	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.AI.APIKey)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [not a mapping"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
