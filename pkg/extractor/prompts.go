package extractor

import "github.com/tmc/langchaingo/prompts"

const (
	summarySystem   = "Extract only the most important information that could be used in product stories."
	synthesisSystem = "Combine these summaries into a coherent overview that preserves all key information."
	topicSystem     = "Extract key product insights both positive and negative from these summaries."
)

var summaryPrompt = prompts.NewPromptTemplate(`Summarize this content focusing ONLY on:
- Specific metrics and data points
- Direct user quotes and feedback
- Technical issues with impact
- Feature requests with context
- Success metrics and outcomes
- User pain points and their frequency
- Positive feedback patterns

Exclude any general descriptions or non-essential information.
Requirements:
- Preserve exact numbers and statistics
- Keep direct quotes that show impact
- Maintain specific examples
- Include frequency of issues/feedback
- Note patterns across users

Be extremely concise but precise.

Content: {{.content}}`, []string{"content"})

var synthesisPrompt = prompts.NewPromptTemplate(`Synthesize these summaries into a single overview:
- Group related information
- Combine similar metrics
- Maintain specific quotes and evidence
- Highlight patterns and trends
- Preserve unique insights

Summaries: {{.summaries}}`, []string{"summaries"})

var topicPrompt = prompts.NewPromptTemplate(`Analyze this information and identify:

CONCERNS:
- List major and even minor issues with supporting evidence
- Include impact and metrics where available

WINS:
- List significant successes with metrics
- Include user feedback and outcomes

OPPORTUNITIES:
- List potential improvements
- Include user needs and business value

Use specific data points and quotes when available.
Prefix topic lines with "- " and quoted lines with "> " under each header.

Information to analyze: {{.documents}}`, []string{"documents"})
