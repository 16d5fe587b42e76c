package search

import (
	"sort"
	"strings"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

// Term weights per field slot. The first matching slot wins for each term,
// checked in priority order: title, description, tags, full text.
const (
	weightTitle       = 3.0
	weightDescription = 2.0
	weightTags        = 2.0
	weightFullText    = 1.0

	phraseBonusTitle       = 0.5
	phraseBonusDescription = 0.3
)

// Result is a ranked hit: a ticket id with its similarity score in (0, 1].
type Result struct {
	ID    int64   `json:"id"`
	Score float64 `json:"similarity_score"`
}

// Filters maps a filterable attribute name (status, priority, category,
// assignee, reporter) to a single acceptable value or a set of values.
// Filters are a conjunction of exact-match tests. An unrecognized attribute
// name matches no document.
type Filters map[string]any

// Engine ranks indexed documents against free-text queries. It is stateless
// per call; all state lives in the Index.
type Engine struct {
	index *Index
}

// NewEngine returns an Engine reading from ix.
func NewEngine(ix *Index) *Engine {
	return &Engine{index: ix}
}

// Query scores every indexed document against the lower-cased query and the
// filter conjunction, then returns at most limit results ordered by score
// descending, ties by ascending id. A document is included only when its
// score is strictly positive; scores are clamped to 1.0.
func (e *Engine) Query(query string, filters Filters, limit int) []Result {
	if limit < 1 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	terms := strings.Fields(q)

	var hits []Result
	for _, doc := range e.index.Documents() {
		if !matchesFilters(doc, filters) {
			continue
		}
		score := scoreDocument(doc, q, terms)
		if score <= 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		hits = append(hits, Result{ID: doc.ID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Similar reuses the keyword ranker with the ticket's own title and
// description as the query, dropping the ticket itself from the output.
func (e *Engine) Similar(t *domain.Ticket, limit int) []Result {
	if t == nil || limit < 1 {
		return nil
	}
	query := strings.TrimSpace(t.Title + " " + t.Description)
	hits := e.Query(query, nil, limit+1)
	out := make([]Result, 0, limit)
	for _, h := range hits {
		if h.ID == t.ID {
			continue
		}
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}

// matchesFilters applies the filter conjunction. A scalar expected value is
// treated as a singleton set. Nil or empty expected values are skipped.
func matchesFilters(doc Document, filters Filters) bool {
	for attr, expected := range filters {
		if expected == nil {
			continue
		}
		have, known := doc.Attributes[strings.ToLower(attr)]
		accepted := acceptedValues(expected)
		if len(accepted) == 0 {
			continue
		}
		if !known {
			return false
		}
		if _, ok := accepted[have]; !ok {
			return false
		}
	}
	return true
}

// acceptedValues normalizes a scalar-or-set filter value into a lower-cased
// membership set.
func acceptedValues(expected any) map[string]struct{} {
	out := make(map[string]struct{})
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	switch v := expected.(type) {
	case string:
		add(v)
	case []string:
		for _, s := range v {
			add(s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case domain.Status:
		add(string(v))
	case domain.Priority:
		add(string(v))
	case domain.Category:
		add(string(v))
	}
	return out
}

// scoreDocument computes the normalized term-coverage score plus the phrase
// bonus. With zero query terms only the phrase checks contribute.
func scoreDocument(doc Document, phrase string, terms []string) float64 {
	var score float64
	if len(terms) > 0 {
		var sum float64
		for _, term := range terms {
			switch {
			case strings.Contains(doc.Title, term):
				sum += weightTitle
			case strings.Contains(doc.Description, term):
				sum += weightDescription
			case strings.Contains(doc.Tags, term):
				sum += weightTags
			case strings.Contains(doc.FullText, term):
				sum += weightFullText
			}
		}
		score = sum / (float64(len(terms)) * weightTitle)
	}

	if phrase != "" {
		if strings.Contains(doc.Title, phrase) {
			score += phraseBonusTitle
		} else if strings.Contains(doc.Description, phrase) {
			score += phraseBonusDescription
		}
	}
	return score
}
