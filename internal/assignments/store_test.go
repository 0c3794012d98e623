package assignments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"

	awsx "github.com/mcelectronics/backend/internal/aws"
	"github.com/mcelectronics/backend/internal/mocks"
	"github.com/mcelectronics/backend/internal/notifications"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

type fixture struct {
	db      *mocks.FakeDynamo
	sqs     *mocks.FakeSQS
	store   *Store
	orders  *orders.Store
	users   *users.Store
	notifs  *notifications.Store
	nowFunc func() time.Time
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

	f := &fixture{
		db:      db,
		sqs:     &mocks.FakeSQS{},
		nowFunc: func() time.Time { return time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC) },
	}
	f.orders = orders.NewStore(db, "orders", "customer_orders", nil)
	f.users = users.NewStore(db, "users", "associates")
	f.notifs = notifications.NewStore(db, "notifications")
	f.store = NewStore(db, "assigned_orders", f.orders, f.users, f.notifs,
		awsx.NewPublisher(f.sqs, "https://sqs.test/assignments"))
	f.store.nowFunc = f.nowFunc
	return f
}

func (f *fixture) seedAssociate(t *testing.T, id, name string) {
	t.Helper()
	item, err := attributevalue.MarshalMap(users.Associate{
		AssociateID: id,
		Name:        name,
		Email:       id + "@example.com",
		Active:      true,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = f.db.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: strPtr("associates"),
		Item:      item,
	})
	require.NoError(t, err)
}

func (f *fixture) seedOrder(t *testing.T, orderID, customerID string) {
	t.Helper()
	require.NoError(t, f.orders.Create(context.Background(), &orders.Order{
		OrderID:       orderID,
		CustomerID:    customerID,
		Items:         []orders.Item{{ProductID: "p-1", Name: "Hub", Price: 700, Quantity: 1}},
		TotalAmount:   700,
		PaymentMethod: orders.PaymentCOD,
		PaymentStatus: orders.PaymentStatusPending,
		Status:        orders.StatusPacked,
	}))
}

func TestAssignLeavesStatusAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	f.seedOrder(t, "ord-1", "cust-1")

	require.NoError(t, f.store.Assign(ctx, "ord-1", "assoc-1"))

	o, err := f.orders.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, orders.StatusPacked, o.Status, "assignment is status-neutral")
	require.Equal(t, "assoc-1", o.DeliveryAssignedTo)
	require.Equal(t, "Ravi Kumar", o.DeliveryAssignedName)
	require.NotNil(t, o.DeliveryAssignedAt)

	recs, err := f.store.List(ctx, "assoc-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "ord-1", recs[0].OrderID)
	require.Equal(t, "assigned", recs[0].Status)

	feed, err := f.notifs.ListRecent(ctx, "assoc-1")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.False(t, feed[0].Read)
	require.Equal(t, notifications.CategoryOrderAssignment, feed[0].Category)
	require.Equal(t, "ord-1", feed[0].OrderID)

	require.Len(t, f.sqs.Sent, 1)
}

func TestAssignUnknownAssociate(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "ord-1", "cust-1")
	err := f.store.Assign(context.Background(), "ord-1", "ghost")
	require.ErrorIs(t, err, ErrAssociateNotFound)
	require.Empty(t, f.sqs.Sent)
}

func TestAssignUnknownOrder(t *testing.T) {
	f := newFixture(t)
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	err := f.store.Assign(context.Background(), "ghost", "assoc-1")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestAssignSurvivesQueueFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	f.seedOrder(t, "ord-1", "cust-1")
	f.sqs.Err = errQueueDown

	require.NoError(t, f.store.Assign(ctx, "ord-1", "assoc-1"), "queue publish is best-effort")

	o, err := f.orders.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.Equal(t, "assoc-1", o.DeliveryAssignedTo)
}

func TestListStaleFiltersByCutoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedAssociate(t, "assoc-1", "Ravi Kumar")
	f.seedOrder(t, "ord-old", "cust-1")
	f.seedOrder(t, "ord-new", "cust-2")

	f.store.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	require.NoError(t, f.store.Assign(ctx, "ord-old", "assoc-1"))
	f.store.nowFunc = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, f.store.Assign(ctx, "ord-new", "assoc-1"))

	cutoff := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	stale, err := f.store.ListStale(ctx, "assoc-1", cutoff)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "ord-old", stale[0].OrderID)
}

var errQueueDown = errors.New("queue down")

func strPtr(s string) *string { return &s }
