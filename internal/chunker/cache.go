package chunker

import (
	"sync"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
)

// Cache memoizes computed chunk sets by document id. Documents are immutable,
// so entries are written at most once and never invalidated. Chunking is a
// pure function of the page text, so concurrent writers on the same key store
// identical results and whichever lands first wins.
type Cache struct {
	entries sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

// GetOrCompute returns the cached chunk set for documentID, computing and
// storing it on first use.
func (c *Cache) GetOrCompute(documentID string, compute func() []models.Chunk) []models.Chunk {
	if cached, ok := c.entries.Load(documentID); ok {
		return cached.([]models.Chunk)
	}
	chunks := compute()
	actual, _ := c.entries.LoadOrStore(documentID, chunks)
	return actual.([]models.Chunk)
}

// Len reports the number of cached documents.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
