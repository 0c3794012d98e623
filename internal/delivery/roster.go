// Package delivery backs the associate dashboard: the day's workload and the
// scan-to-confirm flow.
package delivery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mcelectronics/backend/internal/assignments"
	"github.com/mcelectronics/backend/internal/orders"
)

// Roster is an in-memory snapshot of the full root orders collection, taken
// at dashboard load. Scan resolution runs against every order, not just the
// associate's assignments, so an associate can confirm any parcel that ends
// up in their hands. The snapshot is stale by design; Refresh reloads it.
type Roster struct {
	mu          sync.RWMutex
	associateID string
	entries     []orders.Order

	orders *orders.Store
}

func LoadRoster(ctx context.Context, o *orders.Store, associateID string) (*Roster, error) {
	r := &Roster{associateID: associateID, orders: o}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh reloads the snapshot from the root collection.
func (r *Roster) Refresh(ctx context.Context) error {
	entries, err := r.orders.ListAll(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Assigned returns the orders currently routed to this associate. Delivered
// orders stay on the list for the day's metrics.
func (r *Roster) Assigned() []orders.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]orders.Order, 0, len(r.entries))
	for _, o := range r.entries {
		if o.DeliveryAssignedTo == r.associateID {
			out = append(out, o)
		}
	}
	return out
}

// Resolve matches scanner or keyed-in input against the snapshot. An exact id
// match wins; failing that, a case-insensitive substring match in either
// direction (scanners often deliver the id embedded in framing characters,
// and humans type truncated invoice numbers). First match wins.
func (r *Roster) Resolve(term string) (*orders.Order, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].OrderID == term {
			o := r.entries[i]
			return &o, true
		}
	}

	lower := strings.ToLower(term)
	for i := range r.entries {
		id := strings.ToLower(r.entries[i].OrderID)
		if strings.Contains(id, lower) || strings.Contains(lower, id) {
			o := r.entries[i]
			return &o, true
		}
	}
	return nil, false
}

// ApplyDelivered updates the snapshot copy of an order after a confirmed
// delivery, so the dashboard reflects it without a full reload.
func (r *Roster) ApplyDelivered(orderID, deliveredBy string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].OrderID == orderID {
			r.entries[i].Status = orders.StatusDelivered
			r.entries[i].DeliveredBy = deliveredBy
			t := at
			r.entries[i].DeliveredAt = &t
			return
		}
	}
}

// Stats summarizes the associate's workload for the dashboard header.
type Stats struct {
	AssignedToday  int `json:"assignedToday"`
	DeliveredToday int `json:"deliveredToday"`
	Pending        int `json:"pending"`
}

// Stats counts this associate's assignments and deliveries against local
// midnight. Other associates' orders on the snapshot do not count.
func (r *Roster) Stats(now time.Time) Stats {
	midnight := assignments.StartOfDay(now)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	for i := range r.entries {
		e := &r.entries[i]
		if e.DeliveryAssignedTo == r.associateID {
			if e.DeliveryAssignedAt != nil && !e.DeliveryAssignedAt.Before(midnight) {
				s.AssignedToday++
			}
			if e.Status != orders.StatusDelivered {
				s.Pending++
			}
		}
		if e.DeliveredBy == r.associateID && e.Status == orders.StatusDelivered {
			if e.DeliveredAt != nil && !e.DeliveredAt.Before(midnight) {
				s.DeliveredToday++
			}
		}
	}
	return s
}
