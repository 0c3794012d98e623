// Package products serves the catalog, with an optional Redis read-through
// cache in front of DynamoDB.
package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"

	awsx "github.com/mcelectronics/backend/internal/aws"
)

var ErrProductNotFound = errors.New("product not found")

const cacheTTL = 5 * time.Minute

// Product is a catalog entry.
type Product struct {
	ProductID   string    `dynamodbav:"product_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Price       float64   `dynamodbav:"price" json:"price"`
	Image       string    `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Description string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Category    string    `dynamodbav:"category,omitempty" json:"category,omitempty"`
	InStock     bool      `dynamodbav:"in_stock" json:"inStock"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
}

// Store reads the catalog. cache may be nil; lookups then go straight to
// DynamoDB and cache errors are never surfaced to callers.
type Store struct {
	client awsx.DynamoDBAPI
	table  string
	cache  *redis.Client
}

func NewStore(client awsx.DynamoDBAPI, table string, cache *redis.Client) *Store {
	return &Store{client: client, table: table, cache: cache}
}

func cacheKey(productID string) string { return "product:" + productID }

// Get fetches a product, trying the cache first.
func (s *Store) Get(ctx context.Context, productID string) (*Product, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey(productID)).Result()
		if err == nil {
			var p Product
			if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
				return &p, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("[products] cache read failed for %s: %v", productID, err)
		}
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if out.Item == nil {
		return nil, ErrProductNotFound
	}

	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := s.cache.Set(ctx, cacheKey(productID), raw, cacheTTL).Err(); err != nil {
				log.Printf("[products] cache write failed for %s: %v", productID, err)
			}
		}
	}
	return &p, nil
}

// List scans the whole catalog, newest first. The catalog is small enough
// that a scan is fine; listings are not on a hot path.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	var out []Product
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.table,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		for _, raw := range resp.Items {
			var p Product
			if err := attributevalue.UnmarshalMap(raw, &p); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			out = append(out, p)
		}
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
