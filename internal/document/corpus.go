package document

import (
	"fmt"
	"sync"
)

// ErrNotFound is returned when a document id is not present in the corpus.
var ErrNotFound = fmt.Errorf("document not found")

// Corpus is the in-memory set of document pairs the search engine and
// viewer operate on. Insertion order is preserved so result ordering
// stays stable across searches.
//
// List and Get hand out copies. A search therefore scans a stable
// snapshot even if a document is replaced while the scan runs.
type Corpus struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Pair
}

func NewCorpus() *Corpus {
	return &Corpus{
		byID: make(map[string]Pair),
	}
}

// Add inserts the pair, or replaces the existing record with the same ID.
// A replacement keeps the document's original position in the corpus order.
func (c *Corpus) Add(p Pair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.byID[p.ID] = p
}

func (c *Corpus) Get(id string) (Pair, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	if !ok {
		return Pair{}, ErrNotFound
	}
	return p, nil
}

// List returns the documents in insertion order. The returned slice is
// a snapshot owned by the caller.
func (c *Corpus) List() []Pair {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ret := make([]Pair, 0, len(c.order))
	for _, id := range c.order {
		ret = append(ret, c.byID[id])
	}
	return ret
}

func (c *Corpus) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
