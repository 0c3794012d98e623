package assignments

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

// Reclaimer sweeps assignments that were handed out before today and never
// delivered, returning those orders to the packed pool. Associates start each
// day with a clean slate; yesterday's undelivered orders go back for
// reassignment.
type Reclaimer struct {
	Assignments *Store
	Orders      *orders.Store
	Users       *users.Store

	// Concurrent per-record workers. Zero means a sensible default.
	Parallelism int
}

// StartOfDay returns local midnight for the given instant. Staleness is
// day-boundary based, not a rolling 24h window.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ReclaimAll sweeps every associate and returns the number of orders
// reverted to packed.
func (r *Reclaimer) ReclaimAll(ctx context.Context, now time.Time) (int, error) {
	assocs, err := r.Users.ListAssociates(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, a := range assocs {
		n, err := r.ReclaimForAssociate(ctx, a.AssociateID, now)
		if err != nil {
			// One associate's failure must not block the rest of the sweep.
			log.Printf("[reclaimer] sweep failed for associate %s: %v", a.AssociateID, err)
			continue
		}
		total += n
	}
	return total, nil
}

// ReclaimForAssociate processes one associate's stale records concurrently.
// For each: if the order was never delivered, it reverts to packed and loses
// its delivery fields; the assignment record is removed either way. Failures
// are isolated per record so one bad order cannot wedge the sweep.
func (r *Reclaimer) ReclaimForAssociate(ctx context.Context, associateID string, now time.Time) (int, error) {
	stale, err := r.Assignments.ListStale(ctx, associateID, StartOfDay(now))
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	limit := r.Parallelism
	if limit <= 0 {
		limit = 4
	}

	var reclaimed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, rec := range stale {
		rec := rec
		g.Go(func() error {
			if r.reclaimOne(ctx, rec) {
				reclaimed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(reclaimed.Load()), err
	}
	return int(reclaimed.Load()), nil
}

// reclaimOne handles a single stale record and reports whether the order was
// reverted. Errors are logged, never returned; the record is retried on the
// next sweep if it survives.
func (r *Reclaimer) reclaimOne(ctx context.Context, rec Record) bool {
	order, err := r.Orders.Get(ctx, rec.OrderID)
	if err != nil {
		log.Printf("[reclaimer] lookup failed for order %s: %v", rec.OrderID, err)
		return false
	}

	reverted := false
	if order != nil && order.Status != orders.StatusDelivered {
		if err := r.Orders.UnassignStale(ctx, rec.OrderID); err != nil {
			log.Printf("[reclaimer] revert failed for order %s: %v", rec.OrderID, err)
			return false
		}
		reverted = true
		log.Printf("[reclaimer] order=%s reverted to packed (assigned %s)", rec.OrderID, rec.AssignedAt.Format(time.RFC3339))
	}

	// Delivered or missing orders still shed their record; a delivered order
	// keeps its delivery fields as history.
	if err := r.Assignments.Delete(ctx, rec.AssociateID, rec.OrderID); err != nil {
		log.Printf("[reclaimer] record cleanup failed for order %s: %v", rec.OrderID, err)
	}
	return reverted
}
