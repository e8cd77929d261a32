package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/pkg/evidence"
	"github.com/tove/storyforge/pkg/extractor"
	"github.com/tove/storyforge/pkg/story"
)

// Config carries the orchestrator's own knobs. Stage behavior is configured
// on the stages themselves.
type Config struct {
	Logger     *zap.Logger
	OnProgress func(stage string)
}

// Processor sequences topic extraction, evidence collection and story
// generation over one document batch.
type Processor struct {
	config    Config
	extractor *extractor.Extractor
	collector *evidence.Collector
	generator *story.Generator
	logger    *zap.Logger
}

func New(config Config, ex *extractor.Extractor, col *evidence.Collector, gen *story.Generator) (*Processor, error) {
	if ex == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if col == nil {
		return nil, fmt.Errorf("evidence collector is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("story generator is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Processor{
		config:    config,
		extractor: ex,
		collector: col,
		generator: gen,
		logger:    config.Logger,
	}, nil
}

// Process runs the full pipeline. It always returns a well-formed result,
// success or error; nothing escapes this boundary. The only fatal
// condition is extraction producing no topics in any category — every
// later stage degrades and the run continues.
func (p *Processor) Process(ctx context.Context, documents map[string]string) (result models.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during document processing", zap.Any("panic", r))
			result = errorResult(fmt.Sprintf("document processing failed: %v", r))
		}
	}()

	p.progress("extracting topics")
	topics, err := p.extractor.ExtractTopics(ctx, documents)
	if err != nil {
		p.logger.Error("topic extraction failed", zap.Error(err))
	}
	if topics.IsEmpty() {
		return errorResult("no topics were extracted from documents")
	}

	p.progress("collecting evidence")
	evidenceSet, err := p.collector.Collect(ctx, documents, topics)
	if err != nil {
		// Stories still render without evidence; the stage degrades to empty.
		p.logger.Error("evidence collection failed", zap.Error(err))
		evidenceSet = models.EvidenceSet{}
	}

	p.progress("generating stories")
	stories := make([]models.Story, 0, len(models.Categories()))
	for _, category := range models.Categories() {
		topicList := topics.ByCategory(category)
		if len(topicList) == 0 {
			continue
		}

		s, err := p.generator.Generate(ctx, category, topicList, evidenceSet)
		if err != nil {
			p.logger.Error("story generation failed",
				zap.String("category", string(category)),
				zap.Error(err),
			)
			continue
		}
		stories = append(stories, *s)
	}

	categories := make([]string, len(stories))
	for i, s := range stories {
		categories[i] = string(s.Category)
	}

	return models.ProcessingResult{
		Status:  models.StatusSuccess,
		Stories: stories,
		Metadata: &models.ResultMetadata{
			DocumentCount:    len(documents),
			GeneratedStories: len(stories),
			Categories:       categories,
		},
	}
}

func (p *Processor) progress(stage string) {
	if p.config.OnProgress != nil {
		p.config.OnProgress(stage)
	}
}

func errorResult(message string) models.ProcessingResult {
	return models.ProcessingResult{
		Status:  models.StatusError,
		Message: message,
		Stories: []models.Story{},
	}
}
