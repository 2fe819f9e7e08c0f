package scanner

import (
	"fmt"
	"sort"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Strategy captures a single payload format implementation (HTML table, JSON, XML).
type Strategy interface {
	Kind() domain.ParserKind
	Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error)
}

// Registry keeps a mapping from parser kinds to their implementations.
type Registry struct {
	strategies map[domain.ParserKind]Strategy
}

var _ ports.Extractor = (*Registry)(nil)

// NewRegistry builds a registry with the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: map[domain.ParserKind]Strategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[domain.ParserKind]Strategy{}
	}
	r.strategies[strategy.Kind()] = strategy
}

// Resolve returns a strategy by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.ParserKind) (Strategy, error) {
	if strategy, ok := r.strategies[kind]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("parser %s is not registered", kind)
}

// Kinds lists registered parser kinds in lexical order.
func (r *Registry) Kinds() []domain.ParserKind {
	kinds := make([]domain.ParserKind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Extract dispatches payload to the strategy registered for src.ParserKind.
func (r *Registry) Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error) {
	strategy, err := r.Resolve(src.ParserKind)
	if err != nil {
		return domain.Extraction{}, domain.Unparseable(src.ParserKind, "no extractor", err)
	}
	return strategy.Extract(payload, src)
}
