package step

import (
	"context"

	"github.com/kbukum/datapipe/resource"
)

// SliceSupplier yields a fixed list of resources in order.
type SliceSupplier struct {
	items []resource.Resource
	pos   int
}

// FromSlice creates a supplier over items.
func FromSlice(items ...resource.Resource) *SliceSupplier {
	return &SliceSupplier{items: items}
}

// HasNext implements Supplier.
func (s *SliceSupplier) HasNext(context.Context) (bool, error) {
	return s.pos < len(s.items), nil
}

// Next implements Supplier.
func (s *SliceSupplier) Next(context.Context) (resource.Resource, error) {
	if s.pos >= len(s.items) {
		return nil, ErrExhausted
	}
	r := s.items[s.pos]
	s.pos++
	return r, nil
}

// Len returns the number of resources not yet consumed.
func (s *SliceSupplier) Len() int { return len(s.items) - s.pos }

// Rewind restarts the supplier from the first resource.
func (s *SliceSupplier) Rewind() { s.pos = 0 }

// Rebuild implements Rebuilder.
func (s *SliceSupplier) Rebuild() error {
	s.Rewind()
	return nil
}
