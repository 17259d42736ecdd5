package indicators

import (
	"fmt"

	"github.com/agentstation/worldstat/pkg/errors"
)

// Set is an ordered collection of indicators with lookup by name.
// A Set is read-only after construction and safe for concurrent use.
type Set struct {
	order  []Name
	byName map[Name]Indicator
}

// NewSet builds a set, rejecting invalid or duplicate declarations.
func NewSet(list ...Indicator) (*Set, error) {
	s := &Set{byName: make(map[Name]Indicator, len(list))}
	for _, ind := range list {
		if err := ind.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byName[ind.Name]; dup {
			return nil, errors.NewValidationError("name", ind.Name, fmt.Sprintf("duplicate indicator %q", ind.Name))
		}
		s.byName[ind.Name] = ind
		s.order = append(s.order, ind.Name)
	}
	return s, nil
}

// Get returns the indicator with the given name.
func (s *Set) Get(name Name) (Indicator, bool) {
	ind, ok := s.byName[name]
	return ind, ok
}

// Names returns indicator names in declaration order.
func (s *Set) Names() []Name {
	return append([]Name(nil), s.order...)
}

// List returns indicators in declaration order.
func (s *Set) List() []Indicator {
	out := make([]Indicator, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Len returns the number of indicators.
func (s *Set) Len() int {
	return len(s.order)
}
