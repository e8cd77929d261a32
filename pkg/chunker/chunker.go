package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/tove/storyforge/internal/models"
)

// Config controls how documents are split for evidence retrieval. Chunks
// are small so a single piece of evidence stays quotable.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

type Chunker struct {
	config   Config
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config Config) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 300
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}),
	)

	return Chunker{
		config:   config,
		splitter: splitter,
	}
}

// Split breaks every document into metadata-tagged chunks. Documents are
// visited in sorted filename order so chunk ordering is stable across runs.
func (c *Chunker) Split(documents map[string]string) ([]models.Chunk, error) {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)

	var chunks []models.Chunk
	for _, name := range names {
		texts, err := c.splitter.SplitText(documents[name])
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", name, err)
		}
		for i, text := range texts {
			chunks = append(chunks, models.Chunk{
				Content:    text,
				Source:     name,
				ChunkIndex: i,
				IsQuote:    containsQuote(text),
				HasNumbers: containsDigit(text),
			})
		}
	}

	return chunks, nil
}

func containsQuote(s string) bool {
	return strings.ContainsAny(s, "\"“”")
}

func containsDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}
