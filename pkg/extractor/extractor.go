package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
	"github.com/tove/storyforge/pkg/llm"
)

// Config controls the map-reduce summarization that keeps a large corpus
// inside the model's context budget.
type Config struct {
	BatchSize      int // documents per synthesis batch
	MaxBatchTokens int // syntheses above this ceiling are dropped
	Logger         *zap.Logger
}

// Extractor reduces raw documents to categorized topics in three stages:
// per-document summary, batched synthesis, final categorization.
type Extractor struct {
	config Config
	llm    types.CompletionClient
	tokens types.TokenCounter
	logger *zap.Logger
}

func NewWithConfig(config Config, completions types.CompletionClient, tokens types.TokenCounter) (*Extractor, error) {
	if completions == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.MaxBatchTokens == 0 {
		config.MaxBatchTokens = 6000
	}
	if tokens == nil {
		tokens = estimateCounter{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		config: config,
		llm:    completions,
		tokens: tokens,
		logger: logger,
	}, nil
}

// estimateCounter is the fallback when no tokenizer is supplied.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int { return llm.EstimateTokens(text) }

type docSummary struct {
	name    string
	summary string
}

// ExtractTopics runs the full reduction. Failed summaries or syntheses drop
// their unit and the run continues; only a failed final categorization
// yields the canonical empty TopicSet with an error.
func (e *Extractor) ExtractTopics(ctx context.Context, documents map[string]string) (models.TopicSet, error) {
	summaries := e.summarizeAll(ctx, documents)
	retained := e.synthesizeBatches(ctx, summaries)

	user, err := topicPrompt.Format(map[string]any{
		"documents": strings.Join(retained, "\n\n"),
	})
	if err != nil {
		return models.NewTopicSet(), fmt.Errorf("failed to format topic prompt: %w", err)
	}

	response, err := e.llm.Complete(ctx, topicSystem, user)
	if err != nil {
		return models.NewTopicSet(), fmt.Errorf("topic extraction failed: %w", err)
	}

	return ParseTopics(response), nil
}

// summarizeAll produces one focused summary per document, in sorted
// filename order. A failed or empty summary drops the document, not the run.
func (e *Extractor) summarizeAll(ctx context.Context, documents map[string]string) []docSummary {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]docSummary, 0, len(names))
	for _, name := range names {
		user, err := summaryPrompt.Format(map[string]any{"content": documents[name]})
		if err != nil {
			e.logger.Error("failed to format summary prompt", zap.String("file", name), zap.Error(err))
			continue
		}

		summary, err := e.llm.Complete(ctx, summarySystem, user)
		if err != nil {
			e.logger.Error("initial summary failed", zap.String("file", name), zap.Error(err))
			continue
		}
		if strings.TrimSpace(summary) == "" {
			continue
		}

		summaries = append(summaries, docSummary{name: name, summary: summary})
		e.logger.Info("created initial summary", zap.String("file", name))
	}

	return summaries
}

// synthesizeBatches merges summaries into per-batch overviews. A synthesis
// over the token ceiling is dropped from the aggregate rather than re-split;
// the warn log keeps the loss observable.
func (e *Extractor) synthesizeBatches(ctx context.Context, summaries []docSummary) []string {
	var retained []string

	for i := 0; i < len(summaries); i += e.config.BatchSize {
		end := i + e.config.BatchSize
		if end > len(summaries) {
			end = len(summaries)
		}
		batchNum := i/e.config.BatchSize + 1

		parts := make([]string, 0, end-i)
		for _, ds := range summaries[i:end] {
			parts = append(parts, fmt.Sprintf("File: %s\n%s", ds.name, ds.summary))
		}

		user, err := synthesisPrompt.Format(map[string]any{
			"summaries": strings.Join(parts, "\n\n"),
		})
		if err != nil {
			e.logger.Error("failed to format synthesis prompt", zap.Int("batch", batchNum), zap.Error(err))
			continue
		}

		synthesis, err := e.llm.Complete(ctx, synthesisSystem, user)
		if err != nil {
			e.logger.Error("batch synthesis failed", zap.Int("batch", batchNum), zap.Error(err))
			continue
		}

		if tokens := e.tokens.Count(synthesis); tokens > e.config.MaxBatchTokens {
			e.logger.Warn("dropping oversized batch synthesis",
				zap.Int("batch", batchNum),
				zap.Int("tokens", tokens),
				zap.Int("ceiling", e.config.MaxBatchTokens),
			)
			continue
		}

		retained = append(retained, synthesis)
		e.logger.Info("processed batch", zap.Int("batch", batchNum))
	}

	return retained
}
