package evidence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
	"github.com/tove/storyforge/pkg/chunker"
)

const validationSystem = "You review evidence snippets and decide which ones genuinely support a topic."

var validationPrompt = prompts.NewPromptTemplate(`Topic: {{.topic}}
Category: {{.category}}

Review these pieces of evidence and confirm they support the topic:
{{.evidence}}

Return only the indices of relevant evidence (e.g., 0,2,4).`, []string{"topic", "category", "evidence"})

// Config controls retrieval width and how much evidence survives curation.
type Config struct {
	EvidenceCap int // items kept per topic after validation
	RetrievalK  int // candidates kept from the index
	FetchK      int // candidate pool width before the cut to RetrievalK
	Logger      *zap.Logger
}

// Collector gathers curated evidence per topic by chunking the documents,
// indexing the chunks, and retrieving, scoring and validating candidates.
type Collector struct {
	config   Config
	llm      types.CompletionClient
	chunker  *chunker.Chunker
	newIndex types.IndexFactory
	logger   *zap.Logger
}

func NewWithConfig(config Config, completions types.CompletionClient, ch *chunker.Chunker, newIndex types.IndexFactory) (*Collector, error) {
	if completions == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if ch == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if newIndex == nil {
		return nil, fmt.Errorf("index factory is required")
	}
	if config.EvidenceCap == 0 {
		config.EvidenceCap = 5
	}
	if config.RetrievalK == 0 {
		config.RetrievalK = 10
	}
	if config.FetchK == 0 {
		config.FetchK = 20
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		config:   config,
		llm:      completions,
		chunker:  ch,
		newIndex: newIndex,
		logger:   logger,
	}, nil
}

// Collect returns up to EvidenceCap validated evidence items per topic.
// Chunks and the index are built fresh here and discarded with the run. An
// error means the whole collection failed; the caller degrades to an empty
// set and the story stage copes with missing evidence.
func (c *Collector) Collect(ctx context.Context, documents map[string]string, topics models.TopicSet) (models.EvidenceSet, error) {
	chunks, err := c.chunker.Split(documents)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk documents: %w", err)
	}

	evidenceSet := make(models.EvidenceSet)
	if len(chunks) == 0 {
		return evidenceSet, nil
	}

	idx, err := c.newIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	if closer, ok := idx.(interface{ Close() }); ok {
		defer closer.Close()
	}

	if err := idx.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	for _, category := range models.Categories() {
		for _, topic := range topics.ByCategory(category) {
			items, err := c.collectForTopic(ctx, idx, category, topic)
			if err != nil {
				return nil, err
			}
			evidenceSet[topic] = items
			c.logger.Info("collected evidence",
				zap.String("topic", topic),
				zap.Int("items", len(items)),
			)
		}
	}

	return evidenceSet, nil
}

type scoredCandidate struct {
	chunk models.Chunk
	score float64
}

func (c *Collector) collectForTopic(ctx context.Context, idx types.VectorIndex, category models.Category, topic string) ([]models.EvidenceItem, error) {
	candidates, err := idx.Search(ctx, topic, c.config.RetrievalK, c.config.FetchK)
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence for %q: %w", topic, err)
	}
	if len(candidates) == 0 {
		return []models.EvidenceItem{}, nil
	}

	scored := make([]scoredCandidate, len(candidates))
	for i, candidate := range candidates {
		scored[i] = scoredCandidate{
			chunk: candidate.Chunk,
			score: (candidate.Similarity + HeuristicScore(candidate.Chunk, topic)) / 2,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > c.config.EvidenceCap {
		scored = scored[:c.config.EvidenceCap]
	}

	kept, err := c.validate(ctx, category, topic, scored)
	if err != nil {
		return nil, err
	}

	items := make([]models.EvidenceItem, len(kept))
	for i, sc := range kept {
		kind := models.RelevanceSupporting
		if sc.chunk.IsQuote {
			kind = models.RelevanceDirectQuote
		}
		items[i] = models.EvidenceItem{
			Text:      sc.chunk.Content,
			Source:    sc.chunk.Source,
			Relevance: kind,
		}
	}

	return items, nil
}

// HeuristicScore rates a chunk's usefulness as evidence for a topic,
// independent of embedding similarity. Quotes and numbers carry the most
// weight; enough words for context and a literal topic keyword add the rest.
func HeuristicScore(chunk models.Chunk, topic string) float64 {
	var score float64

	if chunk.IsQuote {
		score += 0.3
	}
	if chunk.HasNumbers {
		score += 0.3
	}
	if len(strings.Fields(chunk.Content)) >= 10 {
		score += 0.2
	}

	content := strings.ToLower(chunk.Content)
	for _, keyword := range strings.Fields(strings.ToLower(topic)) {
		if strings.Contains(content, keyword) {
			score += 0.2
			break
		}
	}

	return score
}

// validate asks the model which candidates genuinely support the topic. A
// malformed reply keeps every candidate: validation fails open, never
// closed. A transport failure is a real error and escalates.
func (c *Collector) validate(ctx context.Context, category models.Category, topic string, candidates []scoredCandidate) ([]scoredCandidate, error) {
	texts := make([]string, len(candidates))
	for i, sc := range candidates {
		texts[i] = fmt.Sprintf("%d. %s", i, sc.chunk.Content)
	}

	user, err := validationPrompt.Format(map[string]any{
		"topic":    topic,
		"category": string(category),
		"evidence": strings.Join(texts, "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format validation prompt: %w", err)
	}

	response, err := c.llm.Complete(ctx, validationSystem, user)
	if err != nil {
		return nil, fmt.Errorf("evidence validation for %q failed: %w", topic, err)
	}

	indices, err := parseIndices(response, len(candidates))
	if err != nil {
		c.logger.Warn("could not parse validation reply, keeping all candidates",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return candidates, nil
	}

	kept := make([]scoredCandidate, 0, len(indices))
	for _, i := range indices {
		kept = append(kept, candidates[i])
	}
	return kept, nil
}

// parseIndices parses a comma-separated index list, dropping out-of-range
// entries. Any non-integer token fails the whole parse; the caller then
// keeps the unfiltered candidates.
func parseIndices(response string, n int) ([]int, error) {
	indices := make([]int, 0, n)
	for _, part := range strings.Split(strings.TrimSpace(response), ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		if i >= 0 && i < n {
			indices = append(indices, i)
		}
	}
	return indices, nil
}
