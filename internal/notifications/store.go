// Package notifications stores per-recipient notification feeds.
package notifications

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	awsx "github.com/mcelectronics/backend/internal/aws"
)

// Feed cap: the bell dropdown never shows more than this many entries.
const recentLimit = 20

// Categories.
const (
	CategoryOrderAssignment = "order_assignment"
	CategoryOrderStatus     = "order_status"
	CategoryPayment         = "payment"
)

// Notification is one feed entry.
type Notification struct {
	RecipientID    string    `dynamodbav:"recipient_id" json:"-"`
	NotificationID string    `dynamodbav:"notification_id" json:"id"`
	Category       string    `dynamodbav:"category" json:"category"`
	Title          string    `dynamodbav:"title" json:"title"`
	Message        string    `dynamodbav:"message" json:"message"`
	OrderID        string    `dynamodbav:"order_id,omitempty" json:"orderId,omitempty"`
	Read           bool      `dynamodbav:"read" json:"read"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"createdAt"`
}

type Store struct {
	client  awsx.DynamoDBAPI
	table   string
	nowFunc func() time.Time
	idFunc  func() string
}

func NewStore(client awsx.DynamoDBAPI, table string) *Store {
	return &Store{client: client, table: table, nowFunc: time.Now, idFunc: uuid.NewString}
}

func (s *Store) key(recipientID, notificationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"recipient_id":    &types.AttributeValueMemberS{Value: recipientID},
		"notification_id": &types.AttributeValueMemberS{Value: notificationID},
	}
}

// Create appends a new unread notification to a recipient's feed.
func (s *Store) Create(ctx context.Context, n Notification) (string, error) {
	n.NotificationID = s.idFunc()
	n.Read = false
	n.CreatedAt = s.nowFunc().UTC()

	av, err := attributevalue.MarshalMap(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	}); err != nil {
		return "", fmt.Errorf("put notification: %w", err)
	}
	return n.NotificationID, nil
}

// ListRecent returns the newest entries of a recipient's feed, capped.
func (s *Store) ListRecent(ctx context.Context, recipientID string) ([]Notification, error) {
	all, err := s.listAll(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if len(all) > recentLimit {
		all = all[:recentLimit]
	}
	return all, nil
}

// UnreadCount reports how many entries of the recent feed are unread.
func (s *Store) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	recent, err := s.ListRecent(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, x := range recent {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead flags a single entry as read.
func (s *Store) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	update := "SET #r = :t"
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                &s.table,
		Key:                      s.key(recipientID, notificationID),
		UpdateExpression:         &update,
		ExpressionAttributeNames: map[string]string{"#r": "read"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	}); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread entry as read in one batch. All or nothing:
// a partially-read feed after a crash would be confusing.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string) error {
	all, err := s.listAll(ctx, recipientID)
	if err != nil {
		return err
	}

	update := "SET #r = :t"
	var writes []types.TransactWriteItem
	for _, n := range all {
		if n.Read {
			continue
		}
		writes = append(writes, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                &s.table,
				Key:                      s.key(recipientID, n.NotificationID),
				UpdateExpression:         &update,
				ExpressionAttributeNames: map[string]string{"#r": "read"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t": &types.AttributeValueMemberBOOL{Value: true},
				},
			},
		})
	}
	return s.transact(ctx, writes)
}

// ClearAll deletes a recipient's entire feed in one batch.
func (s *Store) ClearAll(ctx context.Context, recipientID string) error {
	all, err := s.listAll(ctx, recipientID)
	if err != nil {
		return err
	}
	var writes []types.TransactWriteItem
	for _, n := range all {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: &s.table,
				Key:       s.key(recipientID, n.NotificationID),
			},
		})
	}
	return s.transact(ctx, writes)
}

func (s *Store) transact(ctx context.Context, writes []types.TransactWriteItem) error {
	// DynamoDB caps a transaction at 100 items.
	for len(writes) > 0 {
		batch := writes
		if len(batch) > 100 {
			batch = batch[:100]
		}
		writes = writes[len(batch):]
		if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: batch,
		}); err != nil {
			return fmt.Errorf("transact notifications: %w", err)
		}
	}
	return nil
}

func (s *Store) listAll(ctx context.Context, recipientID string) ([]Notification, error) {
	keyCond := "recipient_id = :r"
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: recipientID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	items := make([]Notification, 0, len(out.Items))
	for _, raw := range out.Items {
		var n Notification
		if err := attributevalue.UnmarshalMap(raw, &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification: %w", err)
		}
		items = append(items, n)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

// RelativeTime renders a timestamp the way the feed displays it.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
