// Package sources defines the contract between worldstat and the external
// providers it reads indicator data from.
//
// A Source fetches raw observations for a Request and returns them
// buffered in a Batch. Individual failures are reported in the batch and
// never abort the fetch; a non-nil error means the whole source failed:
//
//	batch, err := src.Fetch(ctx, sources.Request{
//	    Countries:  []countries.Code{"USA", "JPN"},
//	    Indicators: []indicators.Name{"energy", "gdp"},
//	    Retrieval:  sources.RetrievalWindow,
//	})
package sources

import (
	"context"
	"slices"
	"sync"
)

// ID represents the identifier of a configured data source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Kind names an adapter implementation.
type Kind string

// Adapter kinds.
const (
	KindWorldBank Kind = "worldbank"
	KindOWID      Kind = "owid"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// Source represents a provider of raw indicator observations.
type Source interface {
	// ID returns the configured identifier of this source
	ID() ID

	// Fetch retrieves observations for the request.
	// Sources handle their own concurrency internally.
	Fetch(ctx context.Context, req Request) (*Batch, error)
}

// Sources is a thread-safe container for managing multiple data sources.
type Sources struct {
	mu      sync.RWMutex
	sources map[ID]Source
}

// NewSources creates a new Sources instance.
func NewSources(list ...Source) *Sources {
	s := &Sources{
		sources: make(map[ID]Source, len(list)),
	}
	for _, src := range list {
		s.sources[src.ID()] = src
	}
	return s
}

// Get returns a source by ID.
func (s *Sources) Get(id ID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a source by ID.
func (s *Sources) Set(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID()] = src
}

// Delete deletes a source by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns all sources ordered by ID.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		list = append(list, src)
	}
	slices.SortFunc(list, func(a, b Source) int {
		return compareID(a.ID(), b.ID())
	})
	return list
}

// IDs returns all source IDs in sorted order.
func (s *Sources) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareID)
	return ids
}

func compareID(a, b ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
