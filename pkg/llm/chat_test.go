package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tove/storyforge/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigInvalidTemperature(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 3.0})
	assert.Error(t, err)
	assert.Nil(t, engine)
}

func TestNewWithConfigNegativeMaxTokens(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1})
	assert.Error(t, err)
	assert.Nil(t, engine)
}

func TestWithTemperature(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 0.3})
	assert.NoError(t, err)

	hotter := engine.WithTemperature(0.7)
	assert.NotNil(t, hotter)
	assert.NotSame(t, engine, hotter)
}

func TestNewEmbedderWithConfig(t *testing.T) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   "nomic-embed-text:latest",
		BaseURL: "http://localhost:11434",
	})
	assert.NoError(t, err)
	assert.NotNil(t, embedder)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, llm.EstimateTokens(""))
	assert.Equal(t, 1, llm.EstimateTokens("abc"))
	assert.Equal(t, 3, llm.EstimateTokens("hello world!"))
}
