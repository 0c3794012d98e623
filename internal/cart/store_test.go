package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcelectronics/backend/internal/mocks"
)

func newTestStore(t *testing.T) (*Store, *mocks.FakeDynamo) {
	t.Helper()
	db := mocks.NewFakeDynamo()
	db.CreateTable("cart_items", "customer_id", "product_id")
	s := NewStore(db, "cart_items")
	s.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return s, db
}

func TestAddIncrementsExistingLine(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	item := Item{CustomerID: "cust-1", ProductID: "p-1", Name: "USB-C Hub", Price: 700, Quantity: 1}
	require.NoError(t, s.Add(ctx, item))
	require.NoError(t, s.Add(ctx, item))
	require.Equal(t, 1, db.Len("cart_items"), "same product must not duplicate")

	items, err := s.List(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
}

func TestChangeQuantityToZeroRemovesLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Item{CustomerID: "cust-1", ProductID: "p-1", Name: "Hub", Price: 700, Quantity: 2}))

	require.NoError(t, s.ChangeQuantity(ctx, "cust-1", "p-1", -1))
	items, err := s.List(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, 1, items[0].Quantity)

	require.NoError(t, s.ChangeQuantity(ctx, "cust-1", "p-1", -1))
	items, err = s.List(ctx, "cust-1")
	require.NoError(t, err)
	require.Empty(t, items, "quantity zero removes the line")
}

func TestChangeQuantityMissingLine(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.ChangeQuantity(context.Background(), "cust-1", "ghost", 1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestClearAndTotal(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, Item{CustomerID: "cust-1", ProductID: "p-1", Price: 700, Quantity: 1}))
	require.NoError(t, s.Add(ctx, Item{CustomerID: "cust-1", ProductID: "p-2", Price: 150, Quantity: 2}))

	items, err := s.List(ctx, "cust-1")
	require.NoError(t, err)
	require.Equal(t, 1000.0, Total(items))

	require.NoError(t, s.Clear(ctx, "cust-1"))
	require.Equal(t, 0, db.Len("cart_items"))
}
