package search

import (
	"sync"

	"github.com/tbourn/go-ticket-backend/internal/domain"
)

// Stats summarizes the index contents.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
}

// Index owns the id to Document mapping. All methods are safe for concurrent
// use; writes hold an exclusive lock only for the in-memory mutation, never
// across persistence calls.
type Index struct {
	mu   sync.RWMutex
	docs map[int64]Document
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{docs: make(map[int64]Document)}
}

// Add builds a Document from the ticket and inserts or overwrites it under
// the ticket's id. Construction failures are returned to the caller, who is
// expected to log and continue; the store write is never rolled back.
func (ix *Index) Add(t *domain.Ticket) error { return ix.put(t) }

// Update replaces the document for the ticket's id. It is identical to Add;
// there is no partial reindex.
func (ix *Index) Update(t *domain.Ticket) error { return ix.put(t) }

func (ix *Index) put(t *domain.Ticket) error {
	doc, err := NewDocument(t)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	ix.docs[doc.ID] = doc
	ix.mu.Unlock()
	return nil
}

// Remove deletes the document for id. Removing an id that is not indexed is
// a no-op, so there is no error or success return; only Add and Update can
// fail, and only while constructing the document.
func (ix *Index) Remove(id int64) {
	ix.mu.Lock()
	delete(ix.docs, id)
	ix.mu.Unlock()
}

// Documents returns a snapshot slice of every indexed document. Order is
// unspecified; callers that need determinism must sort.
func (ix *Index) Documents() []Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Document, 0, len(ix.docs))
	for _, d := range ix.docs {
		out = append(out, d)
	}
	return out
}

// Get returns the document for id and whether it exists.
func (ix *Index) Get(id int64) (Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	d, ok := ix.docs[id]
	return d, ok
}

// Stats reports the number of indexed documents.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{TotalDocuments: len(ix.docs)}
}

// Reset clears all documents. Administrative operation, not used in the
// normal request flow.
func (ix *Index) Reset() {
	ix.mu.Lock()
	ix.docs = make(map[int64]Document)
	ix.mu.Unlock()
}
