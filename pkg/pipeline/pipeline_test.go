package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
	"github.com/tove/storyforge/pkg/chunker"
	"github.com/tove/storyforge/pkg/evidence"
	"github.com/tove/storyforge/pkg/extractor"
	"github.com/tove/storyforge/pkg/pipeline"
	"github.com/tove/storyforge/pkg/story"
)

// scriptedLLM dispatches on the prompt's leading instruction so one stub
// serves every pipeline stage deterministically.
type scriptedLLM struct {
	topicsReply string
	storyErrFor string // category name whose story call fails
}

func (s *scriptedLLM) Complete(_ context.Context, _, user string) (string, error) {
	switch {
	case strings.HasPrefix(user, "Summarize this content"):
		return "summary: " + user[len(user)-40:], nil
	case strings.HasPrefix(user, "Synthesize these summaries"):
		return "combined overview of the feedback batch", nil
	case strings.HasPrefix(user, "Analyze this information"):
		return s.topicsReply, nil
	case strings.HasPrefix(user, "Topic: "):
		return "0,1,2,3,4", nil
	case strings.HasPrefix(user, "Generate a product story"):
		if s.storyErrFor != "" && strings.Contains(user, "category: "+s.storyErrFor) {
			return "", fmt.Errorf("model refused")
		}
		return "A 12 word narrative that cites the evidence and proposes action.", nil
	}
	return "", fmt.Errorf("unexpected prompt")
}

// keywordIndex matches chunks to queries by shared lowercase words.
type keywordIndex struct {
	chunks []models.Chunk
}

func (ki *keywordIndex) Add(_ context.Context, chunks []models.Chunk) error {
	ki.chunks = append(ki.chunks, chunks...)
	return nil
}

func (ki *keywordIndex) Search(_ context.Context, query string, k, _ int) ([]types.ScoredChunk, error) {
	var results []types.ScoredChunk
	for _, chunk := range ki.chunks {
		content := strings.ToLower(chunk.Content)
		for _, word := range strings.Fields(strings.ToLower(query)) {
			if strings.Contains(content, word) {
				results = append(results, types.ScoredChunk{Chunk: chunk, Similarity: 0.9})
				break
			}
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func newProcessor(t *testing.T, llm types.CompletionClient, factory types.IndexFactory) *pipeline.Processor {
	t.Helper()

	ex, err := extractor.NewWithConfig(extractor.Config{}, llm, nil)
	require.NoError(t, err)

	ch := chunker.NewWithConfig(chunker.Config{})
	col, err := evidence.NewWithConfig(evidence.Config{}, llm, &ch, factory)
	require.NoError(t, err)

	gen, err := story.New(llm, nil)
	require.NoError(t, err)

	p, err := pipeline.New(pipeline.Config{}, ex, col, gen)
	require.NoError(t, err)
	return p
}

func stubFactory() types.IndexFactory {
	return func() (types.VectorIndex, error) { return &keywordIndex{}, nil }
}

var testDocuments = map[string]string{
	"report1.txt": `The app crashes frequently. "It crashes every morning," said one user.`,
	"report2.txt": "Everything else works well and users like the design.",
}

const topicsReply = "CONCERNS:\n- crashes frequently\nWINS:\n- users like the design"

func TestProcessEndToEnd(t *testing.T) {
	p := newProcessor(t, &scriptedLLM{topicsReply: topicsReply}, stubFactory())

	result := p.Process(context.Background(), testDocuments)

	require.Equal(t, models.StatusSuccess, result.Status)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, 2, result.Metadata.DocumentCount)
	assert.Equal(t, 2, result.Metadata.GeneratedStories)
	assert.Equal(t, []string{"concerns", "wins"}, result.Metadata.Categories)

	require.Len(t, result.Stories, 2)
	concerns := result.Stories[0]
	assert.Equal(t, models.CategoryConcerns, concerns.Category)
	assert.Equal(t, []string{"crashes frequently"}, concerns.Topics)
	assert.NotZero(t, concerns.WordCount)

	// evidence for the crash topic must cite the document that contains it
	te := concerns.EvidenceUsed["crashes frequently"]
	evidenceItems := append(append([]models.EvidenceItem{}, te.Quotes...), te.Support...)
	require.NotEmpty(t, evidenceItems)
	for _, item := range evidenceItems {
		assert.Equal(t, "report1.txt", item.Source)
	}
}

func TestProcessNoTopicsIsFatal(t *testing.T) {
	p := newProcessor(t, &scriptedLLM{topicsReply: "nothing matched the expected format"}, stubFactory())

	result := p.Process(context.Background(), testDocuments)

	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, "no topics were extracted from documents", result.Message)
	assert.Empty(t, result.Stories)
	assert.Nil(t, result.Metadata)
}

func TestProcessStoryFailureSkipsCategory(t *testing.T) {
	p := newProcessor(t, &scriptedLLM{topicsReply: topicsReply, storyErrFor: "concerns"}, stubFactory())

	result := p.Process(context.Background(), testDocuments)

	require.Equal(t, models.StatusSuccess, result.Status)
	require.Len(t, result.Stories, 1)
	assert.Equal(t, models.CategoryWins, result.Stories[0].Category)
	assert.Equal(t, []string{"wins"}, result.Metadata.Categories)
	assert.Equal(t, 2, result.Metadata.DocumentCount)
}

func TestProcessEvidenceFailureDegrades(t *testing.T) {
	badFactory := func() (types.VectorIndex, error) { return nil, fmt.Errorf("no index backend") }
	p := newProcessor(t, &scriptedLLM{topicsReply: topicsReply}, badFactory)

	result := p.Process(context.Background(), testDocuments)

	// stories still render, they just carry no evidence
	require.Equal(t, models.StatusSuccess, result.Status)
	require.Len(t, result.Stories, 2)
	for _, s := range result.Stories {
		for _, te := range s.EvidenceUsed {
			assert.Empty(t, te.Quotes)
			assert.Empty(t, te.Support)
		}
	}
}

func TestProcessIdempotent(t *testing.T) {
	p := newProcessor(t, &scriptedLLM{topicsReply: topicsReply}, stubFactory())

	first := p.Process(context.Background(), testDocuments)
	second := p.Process(context.Background(), testDocuments)

	require.Equal(t, first, second)
}
