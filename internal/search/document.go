// Package search provides a simple, deterministic, concurrency-safe in-memory
// keyword index over ticket records, plus the ranking engine that scores
// indexed documents against free-text queries and attribute filters. It is
// intentionally small and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Documents are immutable snapshots; updates replace wholesale
//   - Deterministic scoring and sorting (ties broken by ascending id)
//   - A single RWMutex guards the mapping; reads run concurrently
//
// The index is a cache derived from persisted tickets. It is never the source
// of truth and is rebuilt from the store at startup.
package search

import (
	"errors"
	"strings"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

// ErrNilTicket is returned when a document is built from a nil ticket.
var ErrNilTicket = errors.New("search: nil ticket")

// ErrMissingID is returned when a ticket has no usable identifier.
var ErrMissingID = errors.New("search: ticket id must be positive")

// Document is the derived searchable form of a single ticket. All text slots
// are stored lower-cased. FullText concatenates the text slots with the
// attribute values (status, priority, category, reporter, assignee) and the
// resolution notes, so terms matching only those fields still score at the
// lowest weight tier. It is recomputed in full on each build.
type Document struct {
	ID          int64
	Title       string
	Description string
	Tags        string
	FullText    string
	Attributes  map[string]string
}

// NewDocument builds a Document from the ticket's current field values.
// The ticket must have a positive id; everything else is normalized rather
// than rejected.
func NewDocument(t *domain.Ticket) (Document, error) {
	if t == nil {
		return Document{}, ErrNilTicket
	}
	if t.ID <= 0 {
		return Document{}, ErrMissingID
	}

	title := strings.ToLower(strings.TrimSpace(t.Title))
	desc := strings.ToLower(strings.TrimSpace(t.Description))
	tags := strings.ToLower(strings.TrimSpace(strings.Join(t.Tags, " ")))

	status := strings.ToLower(string(t.Status))
	priority := strings.ToLower(string(t.Priority))
	category := strings.ToLower(string(t.Category))
	assignee := strings.ToLower(strings.TrimSpace(t.Assignee))
	reporter := strings.ToLower(strings.TrimSpace(t.Reporter))
	notes := strings.ToLower(strings.TrimSpace(t.ResolutionNotes))

	parts := make([]string, 0, 9)
	for _, p := range []string{title, desc, status, priority, category, reporter, assignee, tags, notes} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return Document{
		ID:          t.ID,
		Title:       title,
		Description: desc,
		Tags:        tags,
		FullText:    strings.Join(parts, " "),
		Attributes: map[string]string{
			"status":   status,
			"priority": priority,
			"category": category,
			"assignee": assignee,
			"reporter": reporter,
		},
	}, nil
}
