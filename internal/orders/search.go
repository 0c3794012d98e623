package orders

import (
	"context"
	"strings"
)

// Search resolves free-form tracking input to an order. Direct id lookup
// first; on a miss the full collection is scanned newest-first for an exact,
// case-insensitive, or prefix match. The prefix case exists because customers
// are handed a truncated "invoice number" (the first characters of the real
// id) and there is no dedicated index to resolve it.
func (s *Store) Search(ctx context.Context, term string) (*Order, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrOrderNotFound
	}

	if o, err := s.Get(ctx, term); err != nil {
		return nil, err
	} else if o != nil {
		return o, nil
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(term)
	for i := range all {
		id := all[i].OrderID
		if id == term || strings.ToLower(id) == lower || strings.HasPrefix(strings.ToLower(id), lower) {
			return &all[i], nil
		}
	}
	return nil, ErrOrderNotFound
}
