// Package addresses manages a customer's saved shipping addresses.
package addresses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	awsx "github.com/mcelectronics/backend/internal/aws"
)

var ErrAddressNotFound = errors.New("address not found")

// Address is a saved shipping address. Orders snapshot these at checkout, so
// deleting or editing one never affects a placed order.
type Address struct {
	CustomerID string    `dynamodbav:"customer_id" json:"-"`
	AddressID  string    `dynamodbav:"address_id" json:"id"`
	Name       string    `dynamodbav:"name" json:"name"`
	Type       string    `dynamodbav:"type,omitempty" json:"type,omitempty"`
	Line1      string    `dynamodbav:"line1" json:"line1"`
	Line2      string    `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string    `dynamodbav:"city" json:"city"`
	State      string    `dynamodbav:"state,omitempty" json:"state,omitempty"`
	Pincode    string    `dynamodbav:"pincode" json:"pincode"`
	Phone      string    `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt  time.Time `dynamodbav:"created_at" json:"createdAt"`
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

func (s *Store) key(customerID, addressID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: customerID},
		"address_id":  &types.AttributeValueMemberS{Value: addressID},
	}
}

// Add saves a new address and returns its generated id.
func (s *Store) Add(ctx context.Context, addr Address) (string, error) {
	addr.AddressID = s.idFunc()
	addr.CreatedAt = s.nowFunc().UTC()

	av, err := attributevalue.MarshalMap(addr)
	if err != nil {
		return "", fmt.Errorf("marshal address: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	}); err != nil {
		return "", fmt.Errorf("put address: %w", err)
	}
	return addr.AddressID, nil
}

// Get fetches a single address. Returns ErrAddressNotFound on a miss.
func (s *Store) Get(ctx context.Context, customerID, addressID string) (*Address, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key:       s.key(customerID, addressID),
	})
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if out.Item == nil {
		return nil, ErrAddressNotFound
	}
	var addr Address
	if err := attributevalue.UnmarshalMap(out.Item, &addr); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	return &addr, nil
}

// List returns all of a customer's addresses, newest first.
func (s *Store) List(ctx context.Context, customerID string) ([]Address, error) {
	keyCond := "customer_id = :c"
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}

	addrs := make([]Address, 0, len(out.Items))
	for _, raw := range out.Items {
		var a Address
		if err := attributevalue.UnmarshalMap(raw, &a); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].CreatedAt.After(addrs[j].CreatedAt) })
	return addrs, nil
}

// Update overwrites an existing address in place, keeping id and created_at.
func (s *Store) Update(ctx context.Context, addr Address) error {
	existing, err := s.Get(ctx, addr.CustomerID, addr.AddressID)
	if err != nil {
		return err
	}
	addr.CreatedAt = existing.CreatedAt

	av, err := attributevalue.MarshalMap(addr)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put address: %w", err)
	}
	return nil
}

// Delete removes a saved address.
func (s *Store) Delete(ctx context.Context, customerID, addressID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key:       s.key(customerID, addressID),
	}); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}
