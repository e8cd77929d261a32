package extractor

import (
	"strings"

	"github.com/tove/storyforge/internal/models"
)

// ParseTopics parses the categorization response into a TopicSet. The
// grammar is line-oriented: an exact, case-insensitive "CONCERNS:",
// "WINS:" or "OPPORTUNITIES:" line switches the active category, "- "
// lines append a topic, "> " lines append a quote. Bullets before the
// first header and unrecognized lines are dropped. Model output is an
// untrusted input surface; parsing never fails.
func ParseTopics(response string) models.TopicSet {
	result := models.NewTopicSet()

	var current models.Category
	var active bool

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if category, ok := headerCategory(line); ok {
			current = category
			active = true
			continue
		}
		if !active {
			continue
		}

		switch {
		case strings.HasPrefix(line, "- "):
			result.AddTopic(current, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "> "):
			result.AddQuote(current, strings.TrimSpace(line[2:]))
		}
	}

	return result
}

func headerCategory(line string) (models.Category, bool) {
	switch strings.ToUpper(line) {
	case "CONCERNS:":
		return models.CategoryConcerns, true
	case "WINS:":
		return models.CategoryWins, true
	case "OPPORTUNITIES:":
		return models.CategoryOpportunities, true
	}
	return "", false
}
