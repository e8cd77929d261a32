package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	StoryTemperature   float64 `yaml:"story_temperature"`
	RateLimit          float64 `yaml:"rate_limit"`
	CallTimeoutSeconds int     `yaml:"call_timeout_seconds"`
}

type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type IndexConfig struct {
	Backend   string `yaml:"backend"` // "memory" or "pgvector"
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
}

type PipelineConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	BatchSize      int `yaml:"batch_size"`
	MaxBatchTokens int `yaml:"max_batch_tokens"`
	EvidenceCap    int `yaml:"evidence_cap"`
	RetrievalK     int `yaml:"retrieval_k"`
	FetchK         int `yaml:"fetch_k"`
}

type ServerConfig struct {
	Port       string `yaml:"port"`
	OutputsDir string `yaml:"outputs_dir"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Server    ServerConfig    `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/storyforge/config.yaml"),
			"/etc/storyforge/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.StoryTemperature == 0 {
		config.LLM.StoryTemperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 2.0
	}
	if config.LLM.CallTimeoutSeconds == 0 {
		config.LLM.CallTimeoutSeconds = 60
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}

	if config.Index.Backend == "" {
		config.Index.Backend = "memory"
	}
	if config.Index.TableName == "" {
		config.Index.TableName = "evidence_chunks"
	}
	if config.Index.VectorDim == 0 {
		config.Index.VectorDim = 768
	}

	if config.Pipeline.ChunkSize == 0 {
		config.Pipeline.ChunkSize = 300
	}
	if config.Pipeline.ChunkOverlap == 0 {
		config.Pipeline.ChunkOverlap = 50
	}
	if config.Pipeline.BatchSize == 0 {
		config.Pipeline.BatchSize = 10
	}
	if config.Pipeline.MaxBatchTokens == 0 {
		config.Pipeline.MaxBatchTokens = 6000
	}
	if config.Pipeline.EvidenceCap == 0 {
		config.Pipeline.EvidenceCap = 5
	}
	if config.Pipeline.RetrievalK == 0 {
		config.Pipeline.RetrievalK = 10
	}
	if config.Pipeline.FetchK == 0 {
		config.Pipeline.FetchK = 20
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Index.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
