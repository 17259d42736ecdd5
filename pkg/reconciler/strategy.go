package reconciler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/sources"
)

// StrategyType represents the type of reconciliation strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

// Name returns the name of the strategy type.
func (s StrategyType) Name() string {
	str := s.String()
	// Replace hyphens with spaces and title case each word
	words := strings.Split(str, "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

const (
	// StrategyTypeSourceOrder uses source ordering to resolve conflicts.
	StrategyTypeSourceOrder StrategyType = "source-order"
)

// Strategy defines how reconciliation should be performed.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// FoldOrder returns the order sources are folded in for an indicator,
	// lowest precedence first. The last source folded wins a collision.
	// An empty indicator asks for the default order.
	FoldOrder(indicator indicators.Name, available []sources.ID) []sources.ID

	// ValidateResult validates the reconciliation result
	ValidateResult(result *Result) error
}

// baseStrategy provides common strategy functionality.
type baseStrategy struct {
	typ         StrategyType
	description string
}

// Type returns the strategy type.
func (s *baseStrategy) Type() StrategyType {
	return s.typ
}

// Description returns a human-readable description.
func (s *baseStrategy) Description() string {
	return s.description
}

// ValidateResult validates the reconciliation result.
func (s *baseStrategy) ValidateResult(result *Result) error {
	if result == nil {
		return &errors.ValidationError{
			Field:   "result",
			Message: "cannot be nil",
		}
	}
	return validateRecords(result.Records)
}

// SourceOrderStrategy resolves conflicts using a fixed source precedence order.
// Sources earlier in the priority slice have higher precedence than sources later in the slice.
// Sources missing from the slice rank below every listed source, ordered by ID.
type SourceOrderStrategy struct {
	baseStrategy
	sourcePriorityOrder []sources.ID // First element = highest priority
	indicatorOverrides  map[indicators.Name][]sources.ID
}

// NewSourceOrderStrategy creates a new source priority order strategy.
// The priorityOrder slice determines precedence: earlier elements have higher priority.
func NewSourceOrderStrategy(priorityOrder []sources.ID) *SourceOrderStrategy {
	return &SourceOrderStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeSourceOrder,
			description: fmt.Sprintf("Resolves conflicts using source priority order: %v", priorityOrder),
		},
		sourcePriorityOrder: dedupe(priorityOrder),
		indicatorOverrides:  make(map[indicators.Name][]sources.ID),
	}
}

// WithIndicatorPriority overrides the priority list for one indicator.
func (s *SourceOrderStrategy) WithIndicatorPriority(indicator indicators.Name, priorityOrder ...sources.ID) *SourceOrderStrategy {
	s.indicatorOverrides[indicator] = dedupe(priorityOrder)
	return s
}

// Priority returns the priority list for an indicator, highest first.
func (s *SourceOrderStrategy) Priority(indicator indicators.Name) []sources.ID {
	if order, ok := s.indicatorOverrides[indicator]; ok {
		return slices.Clone(order)
	}
	return slices.Clone(s.sourcePriorityOrder)
}

// Overrides returns the indicators with their own priority list.
func (s *SourceOrderStrategy) Overrides() []indicators.Name {
	return slices.Sorted(maps.Keys(s.indicatorOverrides))
}

// FoldOrder returns unlisted sources by ID, then listed sources from the
// lowest to the highest priority.
func (s *SourceOrderStrategy) FoldOrder(indicator indicators.Name, available []sources.ID) []sources.ID {
	priority := s.Priority(indicator)

	listed := make(map[sources.ID]bool, len(priority))
	for _, id := range priority {
		listed[id] = true
	}

	present := make(map[sources.ID]bool, len(available))
	var order []sources.ID
	for _, id := range available {
		present[id] = true
		if !listed[id] {
			order = append(order, id)
		}
	}
	slices.Sort(order)
	order = slices.Compact(order)

	for i := len(priority) - 1; i >= 0; i-- {
		id := priority[i]
		if present[id] {
			order = append(order, id)
		}
	}
	return order
}

// dedupe keeps the first occurrence of each ID.
func dedupe(ids []sources.ID) []sources.ID {
	seen := make(map[sources.ID]bool, len(ids))
	out := make([]sources.ID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
