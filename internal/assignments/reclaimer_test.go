package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcelectronics/backend/internal/orders"
)

func newReclaimerFixture(t *testing.T) (*fixture, *Reclaimer) {
	t.Helper()
	f := newFixture(t)
	r := &Reclaimer{
		Assignments: f.store,
		Orders:      f.orders,
		Users:       f.users,
		Parallelism: 2,
	}
	return f, r
}

func TestReclaimRevertsUndeliveredStaleOrders(t *testing.T) {
	f, r := newReclaimerFixture(t)
	ctx := context.Background()
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	f.seedOrder(t, "ord-stale", "cust-1")
	f.seedOrder(t, "ord-done", "cust-2")
	f.seedOrder(t, "ord-fresh", "cust-3")

	// Two assignments from yesterday evening, one from this morning.
	f.store.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	require.NoError(t, f.store.Assign(ctx, "ord-stale", "assoc-1"))
	require.NoError(t, f.store.Assign(ctx, "ord-done", "assoc-1"))
	f.store.nowFunc = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	require.NoError(t, f.store.Assign(ctx, "ord-fresh", "assoc-1"))

	// ord-done was actually delivered yesterday.
	done, err := f.orders.Get(ctx, "ord-done")
	require.NoError(t, err)
	_, err = f.orders.MarkDelivered(ctx, done, "assoc-1", time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	reclaimed, err := r.ReclaimAll(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, reclaimed)

	// Stale and undelivered: back to packed, assignment fields gone.
	stale, err := f.orders.Get(ctx, "ord-stale")
	require.NoError(t, err)
	require.Equal(t, orders.StatusPacked, stale.Status)
	require.Empty(t, stale.DeliveryAssignedTo)

	// Delivered: untouched, keeps its delivery history.
	done, err = f.orders.Get(ctx, "ord-done")
	require.NoError(t, err)
	require.Equal(t, orders.StatusDelivered, done.Status)
	require.Equal(t, "assoc-1", done.DeliveredBy)

	// Fresh: untouched, still assigned.
	fresh, err := f.orders.Get(ctx, "ord-fresh")
	require.NoError(t, err)
	require.Equal(t, "assoc-1", fresh.DeliveryAssignedTo)

	// Both stale records are gone, the fresh one stays.
	recs, err := f.store.List(ctx, "assoc-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "ord-fresh", recs[0].OrderID)
}

func TestReclaimDeletesRecordForMissingOrder(t *testing.T) {
	f, r := newReclaimerFixture(t)
	ctx := context.Background()
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	f.seedOrder(t, "ord-1", "cust-1")

	f.store.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	require.NoError(t, f.store.Assign(ctx, "ord-1", "assoc-1"))
	require.NoError(t, f.orders.Delete(ctx, "ord-1"))

	reclaimed, err := r.ReclaimForAssociate(ctx, "assoc-1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 0, reclaimed)

	recs, err := f.store.List(ctx, "assoc-1")
	require.NoError(t, err)
	require.Empty(t, recs, "orphaned record still cleaned up")
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2026, 3, 2, 1, 30, 0, 0, loc)
	got := StartOfDay(at)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), got)
}
