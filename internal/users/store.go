// Package users resolves user profiles and roles. Delivery associates live
// in their own table; a profile found there wins over the users table role.
package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	awsx "github.com/mcelectronics/backend/internal/aws"
)

var ErrUserNotFound = errors.New("user not found")

// Roles.
const (
	RoleCustomer  = "customer"
	RoleAdmin     = "admin"
	RoleAssociate = "associate"
)

// User is a registered account.
type User struct {
	UserID    string    `dynamodbav:"user_id" json:"id"`
	Name      string    `dynamodbav:"name" json:"name"`
	Email     string    `dynamodbav:"email" json:"email"`
	Phone     string    `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Role      string    `dynamodbav:"role,omitempty" json:"role,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// Associate is a delivery associate profile.
type Associate struct {
	AssociateID string    `dynamodbav:"associate_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Email       string    `dynamodbav:"email" json:"email"`
	Phone       string    `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Active      bool      `dynamodbav:"active" json:"active"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
}

type Store struct {
	client          awsx.DynamoDBAPI
	usersTable      string
	associatesTable string
}

func NewStore(client awsx.DynamoDBAPI, usersTable, associatesTable string) *Store {
	return &Store{client: client, usersTable: usersTable, associatesTable: associatesTable}
}

// Get fetches a user profile. Returns ErrUserNotFound on a miss.
func (s *Store) Get(ctx context.Context, userID string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.usersTable,
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, ErrUserNotFound
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetAssociate fetches an associate profile, or nil on a miss.
func (s *Store) GetAssociate(ctx context.Context, associateID string) (*Associate, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.associatesTable,
		Key: map[string]types.AttributeValue{
			"associate_id": &types.AttributeValueMemberS{Value: associateID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get associate: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var a Associate
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal associate: %w", err)
	}
	return &a, nil
}

// ListAssociates returns all delivery associates, oldest first.
func (s *Store) ListAssociates(ctx context.Context) ([]Associate, error) {
	var out []Associate
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.associatesTable,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan associates: %w", err)
		}
		for _, raw := range resp.Items {
			var a Associate
			if err := attributevalue.UnmarshalMap(raw, &a); err != nil {
				return nil, fmt.Errorf("unmarshal associate: %w", err)
			}
			out = append(out, a)
		}
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListUsers returns all registered accounts, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.usersTable,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		for _, raw := range resp.Items {
			var u User
			if err := attributevalue.UnmarshalMap(raw, &u); err != nil {
				return nil, fmt.Errorf("unmarshal user: %w", err)
			}
			out = append(out, u)
		}
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ResolveRole determines an account's role. An associate profile takes
// precedence; otherwise the users table role applies, defaulting to customer.
func (s *Store) ResolveRole(ctx context.Context, userID string) (string, error) {
	a, err := s.GetAssociate(ctx, userID)
	if err != nil {
		return "", err
	}
	if a != nil {
		return RoleAssociate, nil
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return RoleCustomer, nil
		}
		return "", err
	}
	if u.Role == "" {
		return RoleCustomer, nil
	}
	return u.Role, nil
}
