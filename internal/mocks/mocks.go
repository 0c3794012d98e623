// Package mocks provides in-memory fakes for the AWS clients. The DynamoDB
// fake understands the narrow expression shapes the stores actually issue;
// it is intentionally not a general DynamoDB emulator.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"
)

type tableSchema struct {
	pk string
	sk string // empty for simple keys
}

type indexDef struct {
	keyAttr  string
	sortAttr string
}

// FakeDynamo is a table-aware in-memory DynamoDB.
type FakeDynamo struct {
	mu      sync.Mutex
	schemas map[string]tableSchema
	items   map[string]map[string]map[string]types.AttributeValue
	indexes map[string]map[string]indexDef

	// Per-table error injection.
	FailPut    map[string]error
	FailUpdate map[string]error
	FailDelete map[string]error
	FailScan   map[string]error
}

func NewFakeDynamo() *FakeDynamo {
	return &FakeDynamo{
		schemas:    map[string]tableSchema{},
		items:      map[string]map[string]map[string]types.AttributeValue{},
		indexes:    map[string]map[string]indexDef{},
		FailPut:    map[string]error{},
		FailUpdate: map[string]error{},
		FailDelete: map[string]error{},
		FailScan:   map[string]error{},
	}
}

// CreateTable registers a table schema. sk may be empty.
func (f *FakeDynamo) CreateTable(name, pk, sk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[name] = tableSchema{pk: pk, sk: sk}
	f.items[name] = map[string]map[string]types.AttributeValue{}
}

// CreateIndex registers a queryable index. Queries against unregistered
// indexes fail with the store's missing-index condition.
func (f *FakeDynamo) CreateIndex(table, name, keyAttr, sortAttr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexes[table] == nil {
		f.indexes[table] = map[string]indexDef{}
	}
	f.indexes[table][name] = indexDef{keyAttr: keyAttr, sortAttr: sortAttr}
}

// Items returns a snapshot of a table's raw items, for assertions.
func (f *FakeDynamo) Items(table string) []map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]types.AttributeValue, 0, len(f.items[table]))
	for _, it := range f.items[table] {
		out = append(out, it)
	}
	return out
}

// Len returns the number of items in a table.
func (f *FakeDynamo) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items[table])
}

func (f *FakeDynamo) keyOf(table string, attrs map[string]types.AttributeValue) (string, error) {
	schema, ok := f.schemas[table]
	if !ok {
		return "", fmt.Errorf("mocks: table %q not created", table)
	}
	pk, ok := attrs[schema.pk].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("mocks: missing pk %q for table %q", schema.pk, table)
	}
	if schema.sk == "" {
		return pk.Value, nil
	}
	sk, ok := attrs[schema.sk].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("mocks: missing sk %q for table %q", schema.sk, table)
	}
	return pk.Value + "\x00" + sk.Value, nil
}

func (f *FakeDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, err := f.keyOf(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.items[*params.TableName][key]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *FakeDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName
	if err := f.FailPut[table]; err != nil {
		return nil, err
	}
	if err := f.put(table, params.Item, params.ConditionExpression); err != nil {
		return nil, err
	}
	return &dyn.PutItemOutput{}, nil
}

func (f *FakeDynamo) put(table string, item map[string]types.AttributeValue, cond *string) error {
	key, err := f.keyOf(table, item)
	if err != nil {
		return err
	}
	existing, exists := f.items[table][key]
	if cond != nil {
		if !evalCondition(*cond, existing, exists, nil, nil) {
			return &types.ConditionalCheckFailedException{}
		}
	}
	f.items[table][key] = copyItem(item)
	return nil
}

func (f *FakeDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName
	if err := f.FailUpdate[table]; err != nil {
		return nil, err
	}
	key, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := f.items[table][key]
	if params.ConditionExpression != nil {
		if !evalCondition(*params.ConditionExpression, item, exists, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if !exists {
		item = copyItem(params.Key)
	}
	applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	f.items[table][key] = item
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *FakeDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName
	if err := f.FailDelete[table]; err != nil {
		return nil, err
	}
	key, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	delete(f.items[table], key)
	return &dyn.DeleteItemOutput{}, nil
}

func (f *FakeDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName

	keyAttr, sortAttr := "", ""
	if params.IndexName != nil {
		def, ok := f.indexes[table][*params.IndexName]
		if !ok {
			return nil, &smithy.GenericAPIError{
				Code:    "ValidationException",
				Message: fmt.Sprintf("The table does not have the specified index: %s", *params.IndexName),
			}
		}
		keyAttr, sortAttr = def.keyAttr, def.sortAttr
	} else {
		keyAttr = f.schemas[table].pk
	}

	attr, want, ok := parseKeyCondition(*params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if !ok || attr != keyAttr {
		return nil, fmt.Errorf("mocks: unsupported key condition %q", *params.KeyConditionExpression)
	}

	var matched []map[string]types.AttributeValue
	for _, item := range f.items[table] {
		if s, ok := item[keyAttr].(*types.AttributeValueMemberS); ok && s.Value == want {
			matched = append(matched, copyItem(item))
		}
	}

	if sortAttr != "" {
		desc := params.ScanIndexForward != nil && !*params.ScanIndexForward
		sort.SliceStable(matched, func(i, j int) bool {
			a := stringAttr(matched[i], sortAttr)
			b := stringAttr(matched[j], sortAttr)
			if desc {
				return a > b
			}
			return a < b
		})
	}

	if params.Limit != nil && int32(len(matched)) > *params.Limit {
		matched = matched[:*params.Limit]
	}
	return &dyn.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (f *FakeDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName
	if err := f.FailScan[table]; err != nil {
		return nil, err
	}
	var out []map[string]types.AttributeValue
	for _, item := range f.items[table] {
		out = append(out, copyItem(item))
	}
	return &dyn.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *FakeDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// First pass: verify conditions.
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil && p.ConditionExpression != nil {
			key, err := f.keyOf(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			existing, exists := f.items[*p.TableName][key]
			if !evalCondition(*p.ConditionExpression, existing, exists, p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
				return nil, &types.TransactionCanceledException{}
			}
		}
	}

	// Second pass: apply.
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			if err := f.put(*it.Put.TableName, it.Put.Item, nil); err != nil {
				return nil, err
			}
		case it.Update != nil:
			u := it.Update
			key, err := f.keyOf(*u.TableName, u.Key)
			if err != nil {
				return nil, err
			}
			item, exists := f.items[*u.TableName][key]
			if !exists {
				item = copyItem(u.Key)
			}
			applyUpdate(item, *u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			f.items[*u.TableName][key] = item
		case it.Delete != nil:
			key, err := f.keyOf(*it.Delete.TableName, it.Delete.Key)
			if err != nil {
				return nil, err
			}
			delete(f.items[*it.Delete.TableName], key)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// --- expression helpers ---

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if real, ok := names[name]; ok {
			return real
		}
	}
	return name
}

// parseKeyCondition handles the single shape the stores use: "<attr> = :v".
func parseKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue) (attr, value string, ok bool) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	attr = resolveName(strings.TrimSpace(parts[0]), names)
	ref := strings.TrimSpace(parts[1])
	v, ok := values[ref].(*types.AttributeValueMemberS)
	if !ok {
		return "", "", false
	}
	return attr, v.Value, true
}

// evalCondition evaluates AND-joined terms of the forms
// attribute_exists(a), attribute_not_exists(a), "#a = :b", "#a <> :b".
func evalCondition(expr string, item map[string]types.AttributeValue, exists bool, names map[string]string, values map[string]types.AttributeValue) bool {
	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)
		switch {
		case strings.HasPrefix(term, "attribute_not_exists("):
			if exists {
				return false
			}
		case strings.HasPrefix(term, "attribute_exists("):
			if !exists {
				return false
			}
		case strings.Contains(term, "<>"):
			if !exists {
				return false
			}
			parts := strings.SplitN(term, "<>", 2)
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			want := values[strings.TrimSpace(parts[1])]
			if stringAttr(item, attr) == stringValue(want) {
				return false
			}
		case strings.Contains(term, "="):
			if !exists {
				return false
			}
			parts := strings.SplitN(term, "=", 2)
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			want := values[strings.TrimSpace(parts[1])]
			if stringAttr(item, attr) != stringValue(want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// applyUpdate handles "SET a = :v, b = :v2 [REMOVE c, d]" expressions.
func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) {
	setPart, removePart := expr, ""
	if i := strings.Index(expr, "REMOVE"); i >= 0 {
		setPart, removePart = strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+len("REMOVE"):])
	}
	setPart = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(setPart), "SET"))

	if setPart != "" {
		for _, assign := range strings.Split(setPart, ",") {
			parts := strings.SplitN(assign, "=", 2)
			if len(parts) != 2 {
				continue
			}
			attr := resolveName(strings.TrimSpace(parts[0]), names)
			ref := strings.TrimSpace(parts[1])
			if v, ok := values[ref]; ok {
				item[attr] = v
			}
		}
	}
	if removePart != "" {
		for _, attr := range strings.Split(removePart, ",") {
			delete(item, resolveName(strings.TrimSpace(attr), names))
		}
	}
}

func stringAttr(item map[string]types.AttributeValue, attr string) string {
	return stringValue(item[attr])
}

func stringValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		if v.Value {
			return "true"
		}
		return "false"
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// FakeSQS records sent messages.
type FakeSQS struct {
	mu   sync.Mutex
	Sent []sqs.SendMessageInput
	Err  error
}

func (f *FakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Sent = append(f.Sent, *params)
	return &sqs.SendMessageOutput{}, nil
}

// FakeCloudWatch counts published metric datapoints by name.
type FakeCloudWatch struct {
	mu     sync.Mutex
	Counts map[string]int
}

func (f *FakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Counts == nil {
		f.Counts = map[string]int{}
	}
	for _, d := range params.MetricData {
		if d.MetricName != nil {
			f.Counts[*d.MetricName]++
		}
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}
