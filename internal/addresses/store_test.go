package addresses

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcelectronics/backend/internal/mocks"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := mocks.NewFakeDynamo()
	db.CreateTable("addresses", "customer_id", "address_id")
	s := NewStore(db, "addresses")

	seq := 0
	s.idFunc = func() string { seq++; return fmt.Sprintf("addr-%d", seq) }
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base.Add(time.Duration(seq) * time.Hour) }
	return s
}

func TestAddAndListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.Add(ctx, Address{CustomerID: "cust-1", Name: "Home", Line1: "12 MG Road", City: "Pune", Pincode: "411001"})
	require.NoError(t, err)
	id2, err := s.Add(ctx, Address{CustomerID: "cust-1", Name: "Work", Line1: "1 Tech Park", City: "Pune", Pincode: "411014"})
	require.NoError(t, err)

	list, err := s.List(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, id2, list[0].AddressID, "newest first")
	require.Equal(t, id1, list[1].AddressID)
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, Address{CustomerID: "cust-1", Name: "Home", Line1: "12 MG Road", City: "Pune", Pincode: "411001"})
	require.NoError(t, err)
	orig, err := s.Get(ctx, "cust-1", id)
	require.NoError(t, err)

	err = s.Update(ctx, Address{CustomerID: "cust-1", AddressID: id, Name: "Home", Line1: "14 MG Road", City: "Pune", Pincode: "411001"})
	require.NoError(t, err)

	got, err := s.Get(ctx, "cust-1", id)
	require.NoError(t, err)
	require.Equal(t, "14 MG Road", got.Line1)
	require.Equal(t, orig.CreatedAt, got.CreatedAt)
}

func TestUpdateMissingAddress(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), Address{CustomerID: "cust-1", AddressID: "ghost", Line1: "x", City: "y", Pincode: "411001"})
	require.ErrorIs(t, err, ErrAddressNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, Address{CustomerID: "cust-1", Name: "Home", Line1: "12 MG Road", City: "Pune", Pincode: "411001"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "cust-1", id))

	_, err = s.Get(ctx, "cust-1", id)
	require.ErrorIs(t, err, ErrAddressNotFound)
}
