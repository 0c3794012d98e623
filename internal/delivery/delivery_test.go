package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"

	"github.com/mcelectronics/backend/internal/assignments"
	"github.com/mcelectronics/backend/internal/mocks"
	"github.com/mcelectronics/backend/internal/notifications"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

type fixture struct {
	db      *mocks.FakeDynamo
	orders  *orders.Store
	assigns *assignments.Store
	users   *users.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := mocks.NewFakeDynamo()
	db.CreateTable("orders", "order_id", "")
	db.CreateTable("customer_orders", "customer_id", "order_id")
	db.CreateTable("assigned_orders", "associate_id", "order_id")
	db.CreateTable("users", "user_id", "")
	db.CreateTable("associates", "associate_id", "")
	db.CreateTable("notifications", "recipient_id", "notification_id")

	f := &fixture{db: db}
	f.orders = orders.NewStore(db, "orders", "customer_orders", nil)
	f.users = users.NewStore(db, "users", "associates")
	f.assigns = assignments.NewStore(db, "assigned_orders", f.orders, f.users,
		notifications.NewStore(db, "notifications"), nil)
	return f
}

func (f *fixture) seedAssignedOrder(t *testing.T, orderID, customerID, method string) {
	t.Helper()
	ctx := context.Background()

	item, err := attributevalue.MarshalMap(users.Associate{
		AssociateID: "assoc-1",
		Name:        "Ravi Kumar",
		Email:       "ravi@example.com",
		Active:      true,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	table := "associates"
	_, err = f.db.PutItem(ctx, &dynamodb.PutItemInput{TableName: &table, Item: item})
	require.NoError(t, err)

	require.NoError(t, f.orders.Create(ctx, &orders.Order{
		OrderID:       orderID,
		CustomerID:    customerID,
		Items:         []orders.Item{{ProductID: "p-1", Name: "Hub", Price: 700, Quantity: 1}},
		TotalAmount:   700,
		PaymentMethod: method,
		PaymentStatus: orders.PaymentStatusPending,
		Status:        orders.StatusOutForDelivery,
	}))
	require.NoError(t, f.assigns.Assign(ctx, orderID, "assoc-1"))
}

func TestRosterResolveSubstringBothDirections(t *testing.T) {
	f := newFixture(t)
	f.seedAssignedOrder(t, "a1b2c3d4-e5f6", "cust-1", orders.PaymentPrepaid)

	roster, err := LoadRoster(context.Background(), f.orders, "assoc-1")
	require.NoError(t, err)

	// Exact.
	o, ok := roster.Resolve("a1b2c3d4-e5f6")
	require.True(t, ok)
	require.Equal(t, "a1b2c3d4-e5f6", o.OrderID)

	// Typed invoice fragment: term is a substring of the id.
	o, ok = roster.Resolve("A1B2C3D4")
	require.True(t, ok)
	require.Equal(t, "a1b2c3d4-e5f6", o.OrderID)

	// Scanner framing: the id is a substring of the term.
	o, ok = roster.Resolve("*a1b2c3d4-e5f6#")
	require.True(t, ok)
	require.Equal(t, "a1b2c3d4-e5f6", o.OrderID)

	_, ok = roster.Resolve("zzz")
	require.False(t, ok)
	_, ok = roster.Resolve("  ")
	require.False(t, ok)
}

func TestRosterResolvesUnassignedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// In the root collection, never assigned to anyone. Whoever holds the
	// parcel can still scan and deliver it.
	require.NoError(t, f.orders.Create(ctx, &orders.Order{
		OrderID:       "unassigned-1",
		CustomerID:    "cust-9",
		Items:         []orders.Item{{ProductID: "p-1", Name: "Hub", Price: 700, Quantity: 1}},
		TotalAmount:   700,
		PaymentMethod: orders.PaymentPrepaid,
		PaymentStatus: orders.PaymentStatusCompleted,
		Status:        orders.StatusOutForDelivery,
	}))

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)

	o, ok := roster.Resolve("unassigned-1")
	require.True(t, ok)
	require.Equal(t, "unassigned-1", o.OrderID)

	// The workload listing stays scoped to the associate.
	require.Empty(t, roster.Assigned())

	c := NewConfirmer(f.orders)
	delivered, confirmed, err := c.Confirm(ctx, roster, "unassigned-1", "assoc-1", false)
	require.NoError(t, err)
	require.True(t, confirmed)
	require.Equal(t, "assoc-1", delivered.DeliveredBy)
}

func TestConfirmPrepaidDelivers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentPrepaid)

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)

	c := NewConfirmer(f.orders)
	c.nowFunc = func() time.Time { return time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) }

	o, confirmed, err := c.Confirm(ctx, roster, "ord-1", "assoc-1", false)
	require.NoError(t, err)
	require.True(t, confirmed)
	require.Equal(t, orders.StatusDelivered, o.Status)
	require.Equal(t, "assoc-1", o.DeliveredBy)

	// Store agrees, both copies.
	stored, err := f.orders.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, orders.StatusDelivered, stored.Status)
	nested, err := f.orders.GetNested(ctx, "cust-1", "ord-1")
	require.NoError(t, err)
	require.Equal(t, orders.StatusDelivered, nested.Status)

	// Roster updated in place.
	entry, ok := roster.Resolve("ord-1")
	require.True(t, ok)
	require.Equal(t, orders.StatusDelivered, entry.Status)
}

func TestConfirmCODRequiresAcknowledgment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentCOD)

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)
	c := NewConfirmer(f.orders)

	// Without the cash acknowledgment: no error, but nothing happens.
	o, confirmed, err := c.Confirm(ctx, roster, "ord-1", "assoc-1", false)
	require.NoError(t, err)
	require.False(t, confirmed)
	require.NotNil(t, o)

	stored, err := f.orders.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, orders.StatusOutForDelivery, stored.Status)

	// With it: delivered.
	_, confirmed, err = c.Confirm(ctx, roster, "ord-1", "assoc-1", true)
	require.NoError(t, err)
	require.True(t, confirmed)
}

func TestConfirmAlreadyDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentPrepaid)

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)
	c := NewConfirmer(f.orders)

	_, _, err = c.Confirm(ctx, roster, "ord-1", "assoc-1", false)
	require.NoError(t, err)

	// Second scan of the same label: roster still resolves it, the store
	// guard rejects it.
	fresh, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)
	_, _, err = c.Confirm(ctx, fresh, "ord-1", "assoc-1", false)
	require.ErrorIs(t, err, orders.ErrAlreadyDelivered)
}

func TestConfirmNotOnRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentPrepaid)

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)
	c := NewConfirmer(f.orders)

	_, _, err = c.Confirm(ctx, roster, "stranger", "assoc-1", false)
	require.ErrorIs(t, err, ErrNotOnRoster)
}

func TestRosterStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentPrepaid)
	f.seedAssignedOrder(t, "ord-2", "cust-2", orders.PaymentCOD)

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)

	c := NewConfirmer(f.orders)
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }
	_, _, err = c.Confirm(ctx, roster, "ord-1", "assoc-1", false)
	require.NoError(t, err)

	stats := roster.Stats(now)
	require.Equal(t, 1, stats.DeliveredToday)
	require.Equal(t, 1, stats.Pending)
}

func TestRosterStatsIgnoreOtherAssociates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssignedOrder(t, "ord-1", "cust-1", orders.PaymentPrepaid)

	// Someone else's delivery on the shared snapshot.
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.orders.Create(ctx, &orders.Order{
		OrderID:       "ord-other",
		CustomerID:    "cust-2",
		Items:         []orders.Item{{ProductID: "p-1", Name: "Hub", Price: 700, Quantity: 1}},
		TotalAmount:   700,
		PaymentMethod: orders.PaymentPrepaid,
		PaymentStatus: orders.PaymentStatusCompleted,
		Status:        orders.StatusDelivered,
		DeliveredBy:   "assoc-2",
		DeliveredAt:   &at,
	}))

	roster, err := LoadRoster(ctx, f.orders, "assoc-1")
	require.NoError(t, err)

	stats := roster.Stats(at)
	require.Equal(t, 0, stats.DeliveredToday)
	require.Equal(t, 1, stats.Pending)

	_, ok := roster.Resolve("ord-other")
	require.True(t, ok, "shared snapshot still resolves it")
}
