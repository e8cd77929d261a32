package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.StoryTemperature < 0 || c.LLM.StoryTemperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.story_temperature",
			Message: "story_temperature must be between 0 and 2",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Index config
	switch c.Index.Backend {
	case "memory":
	case "pgvector":
		if c.Index.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "index.url",
				Message: "connection URL is required for the pgvector backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "index.backend",
			Message: fmt.Sprintf("unknown backend %q, must be memory or pgvector", c.Index.Backend),
		})
	}

	if c.Index.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "index.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "pipeline.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Pipeline.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Pipeline.MaxBatchTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_batch_tokens",
			Message: "max_batch_tokens must be positive",
		})
	}

	if c.Pipeline.EvidenceCap < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.evidence_cap",
			Message: "evidence_cap must be positive",
		})
	}

	if c.Pipeline.RetrievalK < 1 || c.Pipeline.RetrievalK > c.Pipeline.FetchK {
		errors = append(errors, ValidationError{
			Field:   "pipeline.retrieval_k",
			Message: "retrieval_k must be positive and at most fetch_k",
		})
	}

	return errors
}
