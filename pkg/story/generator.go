package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/internal/types"
)

const storySystem = `You are a technical product analyst writing data-driven stories.
Focus on creating clear, actionable insights supported by evidence.

Story Structure:
1. Headline - Capture key insight
2. Executive Summary - Main finding with key metrics
3. Analysis - Detailed discussion with evidence
4. Technical Context - Relevant technical details
5. Action Items - Clear next steps
6. Evidence Summary - Supporting data and quotes`

var storyPrompt = prompts.NewPromptTemplate(`Generate a product story for category: {{.category}}

Topics to cover:
{{.topics}}

Available Evidence:
{{.evidence}}

Requirements:
- Write 200-300 words
- Include specific metrics and data points
- Use direct quotes where relevant
- Maintain journalistic style
- Maintain technical accuracy
- Provide clear action items
- Cite sources properly`, []string{"category", "topics", "evidence"})

// Generator renders one narrative story per category from its topics and
// the collected evidence.
type Generator struct {
	llm    types.CompletionClient
	logger *zap.Logger
}

func New(completions types.CompletionClient, logger *zap.Logger) (*Generator, error) {
	if completions == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		llm:    completions,
		logger: logger,
	}, nil
}

// Generate produces the story for one category. An error skips the
// category, never the run. Topics without evidence still appear in the
// prompt so the narrative can note the absence.
func (g *Generator) Generate(ctx context.Context, category models.Category, topics []string, evidenceSet models.EvidenceSet) (*models.Story, error) {
	evidenceUsed := make(map[string]models.TopicEvidence, len(topics))
	for _, topic := range topics {
		var te models.TopicEvidence
		for _, item := range evidenceSet[topic] {
			if item.Relevance == models.RelevanceDirectQuote {
				te.Quotes = append(te.Quotes, item)
			} else {
				te.Support = append(te.Support, item)
			}
		}
		evidenceUsed[topic] = te
	}

	user, err := storyPrompt.Format(map[string]any{
		"category": string(category),
		"topics":   formatTopics(topics),
		"evidence": formatEvidence(topics, evidenceUsed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format story prompt: %w", err)
	}

	narrative, err := g.llm.Complete(ctx, storySystem, user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s story: %w", category, err)
	}

	wordCount := len(strings.Fields(narrative))
	g.logger.Info("generated story",
		zap.String("category", string(category)),
		zap.Int("topics", len(topics)),
		zap.Int("words", wordCount),
	)

	return &models.Story{
		Category:     category,
		Topics:       topics,
		Story:        narrative,
		EvidenceUsed: evidenceUsed,
		WordCount:    wordCount,
	}, nil
}

func formatTopics(topics []string) string {
	lines := make([]string, len(topics))
	for i, topic := range topics {
		lines[i] = "- " + topic
	}
	return strings.Join(lines, "\n")
}

func formatEvidence(topics []string, evidenceUsed map[string]models.TopicEvidence) string {
	var b strings.Builder
	for _, topic := range topics {
		te := evidenceUsed[topic]
		fmt.Fprintf(&b, "\nFor %s:\n", topic)
		if len(te.Quotes) > 0 {
			b.WriteString("Quotes:\n")
			for _, quote := range te.Quotes {
				fmt.Fprintf(&b, "- %s (Source: %s)\n", quote.Text, quote.Source)
			}
		}
		if len(te.Support) > 0 {
			b.WriteString("Supporting Evidence:\n")
			for _, support := range te.Support {
				fmt.Fprintf(&b, "- %s (Source: %s)\n", support.Text, support.Source)
			}
		}
	}
	return b.String()
}
