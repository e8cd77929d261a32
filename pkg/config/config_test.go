package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5
  story_temperature: 0.9

embedding:
  model: "nomic-embed-text:latest"

index:
  backend: "pgvector"
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768

pipeline:
  chunk_size: 400
  chunk_overlap: 80
  batch_size: 5
  max_batch_tokens: 4000
  evidence_cap: 3
  retrieval_k: 8
  fetch_k: 16

server:
  port: "9090"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 0.9, config.LLM.StoryTemperature)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, "test_chunks", config.Index.TableName)
	assert.Equal(t, 400, config.Pipeline.ChunkSize)
	assert.Equal(t, 5, config.Pipeline.BatchSize)
	assert.Equal(t, 3, config.Pipeline.EvidenceCap)
	assert.Equal(t, "9090", config.Server.Port)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("llm:\n  model: mistral\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 0.3, config.LLM.Temperature)
	assert.Equal(t, 0.7, config.LLM.StoryTemperature)
	assert.Equal(t, "memory", config.Index.Backend)
	assert.Equal(t, 300, config.Pipeline.ChunkSize)
	assert.Equal(t, 50, config.Pipeline.ChunkOverlap)
	assert.Equal(t, 10, config.Pipeline.BatchSize)
	assert.Equal(t, 6000, config.Pipeline.MaxBatchTokens)
	assert.Equal(t, 5, config.Pipeline.EvidenceCap)
	assert.Equal(t, 10, config.Pipeline.RetrievalK)
	assert.Equal(t, 20, config.Pipeline.FetchK)
	assert.Equal(t, config.LLM.BaseURL, config.Embedding.BaseURL)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid llm config",
			mutate: func(c *Config) {
				c.LLM.MaxTokens = 5000
				c.LLM.Temperature = 3.0
				c.LLM.RateLimit = -1
			},
			expectedErrs: 3,
			errorMessages: []string{
				"llm.max_tokens: max_tokens must be between 1 and 4096",
				"llm.temperature: temperature must be between 0 and 2",
				"llm.rate_limit: rate_limit must be positive",
			},
		},
		{
			name: "pgvector backend requires url",
			mutate: func(c *Config) {
				c.Index.Backend = "pgvector"
				c.Index.URL = ""
			},
			expectedErrs: 1,
			errorMessages: []string{
				"index.url: connection URL is required for the pgvector backend",
			},
		},
		{
			name: "unknown index backend",
			mutate: func(c *Config) {
				c.Index.Backend = "faiss"
			},
			expectedErrs: 1,
		},
		{
			name: "invalid pipeline config",
			mutate: func(c *Config) {
				c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize
				c.Pipeline.RetrievalK = c.Pipeline.FetchK + 1
			},
			expectedErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("PORT", "7070")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Index.URL)
	assert.Equal(t, "7070", config.Server.Port)
}
