package models

// Category is one of the three fixed classification buckets.
type Category string

const (
	CategoryConcerns      Category = "concerns"
	CategoryWins          Category = "wins"
	CategoryOpportunities Category = "opportunities"
)

// Categories returns the closed category set in its fixed iteration order.
func Categories() [3]Category {
	return [3]Category{CategoryConcerns, CategoryWins, CategoryOpportunities}
}

// QuoteSet holds the inline quotes extracted alongside topics, per category.
type QuoteSet struct {
	Concerns      []string `json:"concerns"`
	Wins          []string `json:"wins"`
	Opportunities []string `json:"opportunities"`
}

// TopicSet is the output of topic extraction: ordered topic lists and inline
// quotes for exactly the three categories. The category set is closed; the
// struct layout enforces that no category can be invented or dropped.
type TopicSet struct {
	Concerns      []string `json:"concerns"`
	Wins          []string `json:"wins"`
	Opportunities []string `json:"opportunities"`
	Quotes        QuoteSet `json:"quotes"`
}

// NewTopicSet returns the canonical empty TopicSet with all category keys
// present and empty.
func NewTopicSet() TopicSet {
	return TopicSet{
		Concerns:      []string{},
		Wins:          []string{},
		Opportunities: []string{},
		Quotes: QuoteSet{
			Concerns:      []string{},
			Wins:          []string{},
			Opportunities: []string{},
		},
	}
}

// ByCategory returns the topic list for a category, in extraction order.
func (ts *TopicSet) ByCategory(c Category) []string {
	switch c {
	case CategoryConcerns:
		return ts.Concerns
	case CategoryWins:
		return ts.Wins
	case CategoryOpportunities:
		return ts.Opportunities
	}
	return nil
}

// QuotesFor returns the inline quotes recorded under a category.
func (ts *TopicSet) QuotesFor(c Category) []string {
	switch c {
	case CategoryConcerns:
		return ts.Quotes.Concerns
	case CategoryWins:
		return ts.Quotes.Wins
	case CategoryOpportunities:
		return ts.Quotes.Opportunities
	}
	return nil
}

func (ts *TopicSet) AddTopic(c Category, topic string) {
	switch c {
	case CategoryConcerns:
		ts.Concerns = append(ts.Concerns, topic)
	case CategoryWins:
		ts.Wins = append(ts.Wins, topic)
	case CategoryOpportunities:
		ts.Opportunities = append(ts.Opportunities, topic)
	}
}

func (ts *TopicSet) AddQuote(c Category, quote string) {
	switch c {
	case CategoryConcerns:
		ts.Quotes.Concerns = append(ts.Quotes.Concerns, quote)
	case CategoryWins:
		ts.Quotes.Wins = append(ts.Quotes.Wins, quote)
	case CategoryOpportunities:
		ts.Quotes.Opportunities = append(ts.Quotes.Opportunities, quote)
	}
}

// IsEmpty reports whether no category holds any topic. Quotes alone do not
// count; they only annotate topics.
func (ts *TopicSet) IsEmpty() bool {
	return len(ts.Concerns) == 0 && len(ts.Wins) == 0 && len(ts.Opportunities) == 0
}

// Chunk is a bounded text fragment split out of a source document for
// indexing. Chunks live for a single evidence-collection run.
type Chunk struct {
	Content    string
	Source     string
	ChunkIndex int
	IsQuote    bool
	HasNumbers bool
}

// RelevanceKind classifies how an evidence item supports its topic.
type RelevanceKind string

const (
	RelevanceDirectQuote RelevanceKind = "direct_quote"
	RelevanceSupporting  RelevanceKind = "supporting_evidence"
)

// EvidenceItem is one curated snippet backing a topic.
type EvidenceItem struct {
	Text      string        `json:"text"`
	Source    string        `json:"source"`
	Relevance RelevanceKind `json:"relevance"`
}

// EvidenceSet maps topic strings to their curated evidence, at most the
// configured cap per topic after validation.
type EvidenceSet map[string][]EvidenceItem

// TopicEvidence splits a topic's evidence into direct quotes and supporting
// context for story rendering.
type TopicEvidence struct {
	Quotes  []EvidenceItem `json:"quotes"`
	Support []EvidenceItem `json:"support"`
}

// Story is the narrative artifact produced for one category.
type Story struct {
	Category     Category                 `json:"category"`
	Topics       []string                 `json:"topics"`
	Story        string                   `json:"story"`
	EvidenceUsed map[string]TopicEvidence `json:"evidence_used"`
	WordCount    int                      `json:"word_count"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ResultMetadata summarizes a successful run.
type ResultMetadata struct {
	DocumentCount    int      `json:"document_count"`
	GeneratedStories int      `json:"generated_stories"`
	Categories       []string `json:"categories"`
}

// ProcessingResult is the sole externally visible artifact of a pipeline
// run. Callers always receive one, success or error, never a raw failure.
type ProcessingResult struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Stories  []Story         `json:"stories"`
	Metadata *ResultMetadata `json:"metadata,omitempty"`
}
