// Package assignments tracks which delivery associate holds which order.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	awsx "github.com/mcelectronics/backend/internal/aws"
	"github.com/mcelectronics/backend/internal/notifications"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

var ErrAssociateNotFound = errors.New("delivery associate not found")

// Record is the assignment entry stored under the associate. The order's own
// delivery fields are the authoritative copy; this record exists so an
// associate's workload can be listed without scanning orders.
type Record struct {
	AssociateID string    `dynamodbav:"associate_id" json:"associateId"`
	OrderID     string    `dynamodbav:"order_id" json:"orderId"`
	AssignedAt  time.Time `dynamodbav:"assigned_at" json:"assignedAt"`
	Status      string    `dynamodbav:"status" json:"status"`
}

// Store coordinates assignment across the order, the associate's record, the
// notification feed, and the event queue.
type Store struct {
	client    awsx.DynamoDBAPI
	table     string
	orders    *orders.Store
	users     *users.Store
	notifs    *notifications.Store
	publisher *awsx.Publisher
	nowFunc   func() time.Time
}

func NewStore(client awsx.DynamoDBAPI, table string, ords *orders.Store, usrs *users.Store, notifs *notifications.Store, pub *awsx.Publisher) *Store {
	return &Store{
		client:    client,
		table:     table,
		orders:    ords,
		users:     usrs,
		notifs:    notifs,
		publisher: pub,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(associateID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"associate_id": &types.AttributeValueMemberS{Value: associateID},
		"order_id":     &types.AttributeValueMemberS{Value: orderID},
	}
}

// Assign hands an order to an associate. The order's status is left alone:
// assignment and fulfilment progress are independent axes, and admins move
// status separately. The order update is the required write; the record and
// notification follow it, and the queue event is best-effort.
func (s *Store) Assign(ctx context.Context, orderID, associateID string) error {
	assoc, err := s.users.GetAssociate(ctx, associateID)
	if err != nil {
		return err
	}
	if assoc == nil {
		return ErrAssociateNotFound
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return orders.ErrOrderNotFound
	}

	assignedAt := s.nowFunc().UTC()
	if err := s.orders.SetAssignment(ctx, orderID, associateID, assoc.Name, assignedAt); err != nil {
		return fmt.Errorf("assign order: %w", err)
	}

	rec := Record{
		AssociateID: associateID,
		OrderID:     orderID,
		AssignedAt:  assignedAt,
		Status:      "assigned",
	}
	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put assignment: %w", err)
	}

	if _, err := s.notifs.Create(ctx, notifications.Notification{
		RecipientID: associateID,
		Category:    notifications.CategoryOrderAssignment,
		Title:       "New Delivery Assignment",
		Message:     fmt.Sprintf("Order %s has been assigned to you for delivery", order.InvoiceNumber()),
		OrderID:     orderID,
	}); err != nil {
		return fmt.Errorf("notify associate: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.SendAssignmentEvent(ctx, awsx.AssignmentEvent{
			OrderID:     orderID,
			AssociateID: associateID,
			AssignedAt:  assignedAt,
		}); err != nil {
			log.Printf("[assignments] event publish failed for order %s: %v", orderID, err)
		}
	}

	log.Printf("[assignments] order=%s -> associate=%s", orderID, associateID)
	return nil
}

// List returns an associate's assignment records, newest first.
func (s *Store) List(ctx context.Context, associateID string) ([]Record, error) {
	keyCond := "associate_id = :a"
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: associateID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}

	recs := make([]Record, 0, len(out.Items))
	for _, raw := range out.Items {
		var r Record
		if err := attributevalue.UnmarshalMap(raw, &r); err != nil {
			return nil, fmt.Errorf("unmarshal assignment: %w", err)
		}
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].AssignedAt.After(recs[j].AssignedAt) })
	return recs, nil
}

// ListStale returns records assigned before the cutoff.
func (s *Store) ListStale(ctx context.Context, associateID string, cutoff time.Time) ([]Record, error) {
	recs, err := s.List(ctx, associateID)
	if err != nil {
		return nil, err
	}
	stale := recs[:0]
	for _, r := range recs {
		if r.AssignedAt.Before(cutoff) {
			stale = append(stale, r)
		}
	}
	return stale, nil
}

// Delete removes an assignment record.
func (s *Store) Delete(ctx context.Context, associateID, orderID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key:       s.key(associateID, orderID),
	}); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
