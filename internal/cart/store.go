// Package cart persists per-customer shopping carts.
package cart

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
)

var ErrItemNotFound = errors.New("cart item not found")

// Item is one cart line. Price and name are snapshotted at add time so the
// cart renders without a product lookup.
type Item struct {
	CustomerID string    `dynamodbav:"customer_id" json:"-"`
	ProductID  string    `dynamodbav:"product_id" json:"productId"`
	Name       string    `dynamodbav:"name" json:"name"`
	Price      float64   `dynamodbav:"price" json:"price"`
	Quantity   int       `dynamodbav:"quantity" json:"quantity"`
	Image      string    `dynamodbav:"image,omitempty" json:"image,omitempty"`
	AddedAt    time.Time `dynamodbav:"added_at" json:"addedAt"`
}

// Store reads and writes cart lines keyed by (customer_id, product_id).
type Store struct {
	client  awsx.DynamoDBAPI
	table   string
	nowFunc func() time.Time
}

func NewStore(client awsx.DynamoDBAPI, table string) *Store {
	return &Store{client: client, table: table, nowFunc: time.Now}
}

func (s *Store) key(customerID, productID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: customerID},
		"product_id":  &types.AttributeValueMemberS{Value: productID},
	}
}

// Add puts a line into the cart. An existing line for the same product has
// its quantity incremented instead of being duplicated.
func (s *Store) Add(ctx context.Context, item Item) error {
	existing, err := s.get(ctx, item.CustomerID, item.ProductID)
	if err != nil {
		return err
	}
	if existing != nil {
		item.Quantity += existing.Quantity
		item.AddedAt = existing.AddedAt
	} else {
		item.AddedAt = s.nowFunc().UTC()
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal cart item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put cart item: %w", err)
	}
	log.Printf("[cart] added product=%s customer=%s qty=%d", item.ProductID, item.CustomerID, item.Quantity)
	return nil
}

// ChangeQuantity applies a delta to a line's quantity. Dropping to zero or
// below removes the line entirely.
func (s *Store) ChangeQuantity(ctx context.Context, customerID, productID string, delta int) error {
	existing, err := s.get(ctx, customerID, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrItemNotFound
	}
	next := existing.Quantity + delta
	if next <= 0 {
		return s.Remove(ctx, customerID, productID)
	}

	update := "SET quantity = :q"
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.table,
		Key:              s.key(customerID, productID),
		UpdateExpression: &update,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next)},
		},
	}); err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	return nil
}

// Remove deletes a line from the cart.
func (s *Store) Remove(ctx context.Context, customerID, productID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key:       s.key(customerID, productID),
	}); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// List returns all lines in a customer's cart, oldest-added first.
func (s *Store) List(ctx context.Context, customerID string) ([]Item, error) {
	keyCond := "customer_id = :c"
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	items := make([]Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var it Item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal cart item: %w", err)
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })
	return items, nil
}

// Clear removes every line from a customer's cart.
func (s *Store) Clear(ctx context.Context, customerID string) error {
	items, err := s.List(ctx, customerID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := s.Remove(ctx, customerID, it.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// Total computes the cart's grand total from stored prices and quantities.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

func (s *Store) get(ctx context.Context, customerID, productID string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key:       s.key(customerID, productID),
	})
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var it Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal cart item: %w", err)
	}
	return &it, nil
}
