package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mcelectronics/backend/internal/aws"
	"github.com/mcelectronics/backend/internal/docstore"
)

// Root-table indexes behind the status and recent-deliveries listings. When
// one is missing the store degrades to an unindexed scan instead of failing.
const (
	statusIndex      = "status-index"
	deliveredByIndex = "delivered-by-index"
)

var (
	// ErrOrderNotFound is returned when a referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyDelivered is returned when a delivery confirmation loses the
	// race against another confirmation of the same order.
	ErrAlreadyDelivered = errors.New("order already delivered")
)

// Store encapsulates operations on the two order tables: the root copy
// (admin-queryable, authoritative) and the nested per-customer copy.
type Store struct {
	client        aws.DynamoDBAPI
	rootTable     string
	customerTable string
	metrics       *aws.Metrics
	nowFunc       func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, rootTable, customerTable string, metrics *aws.Metrics) *Store {
	return &Store{
		client:        client,
		rootTable:     rootTable,
		customerTable: customerTable,
		metrics:       metrics,
		nowFunc:       time.Now,
	}
}

// Create writes both copies of a new order: the nested copy first, then the
// root copy carrying the back-reference. The two puts are sequential, not a
// transaction; if the root put fails the nested copy is deleted again so the
// caller can retry cleanly. Only a fully created order should clear the cart.
func (s *Store) Create(ctx context.Context, o *Order) error {
	now := s.nowFunc()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	nested := *o
	nested.OriginalOrderPath = ""
	nestedItem, err := attributevalue.MarshalMap(nested)
	if err != nil {
		return fmt.Errorf("marshal nested order: %w", err)
	}

	root := *o
	root.OriginalOrderPath = docstore.OrderPath(o.CustomerID, o.OrderID)
	rootItem, err := attributevalue.MarshalMap(root)
	if err != nil {
		return fmt.Errorf("marshal root order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.customerTable,
		Item:      nestedItem,
	})
	if err != nil {
		return fmt.Errorf("put nested order: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.rootTable,
		Item:      rootItem,
	})
	if err != nil {
		// Compensate: remove the nested copy so a retry starts from nothing.
		if _, delErr := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &s.customerTable,
			Key:       s.nestedKeyAttrs(o.CustomerID, o.OrderID),
		}); delErr != nil {
			log.Printf("[orders] orphaned nested copy order=%s: %v", o.OrderID, delErr)
			s.metrics.CountOrphanedCopy(ctx, "create")
		}
		return fmt.Errorf("put root order: %w", err)
	}

	return nil
}

// Get fetches the root copy by order id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.rootTable,
		Key:       s.rootKeyAttrs(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// GetNested fetches the customer-scoped copy. Returns (nil, nil) if not found.
func (s *Store) GetNested(ctx context.Context, customerID, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.customerTable,
		Key:       s.nestedKeyAttrs(customerID, orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get nested order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal nested order: %w", err)
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                &s.customerTable,
		KeyConditionExpression:   strPtr("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": "customer_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query customer orders: %w", err)
	}
	orders, err := unmarshalOrders(out.Items)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	return orders, nil
}

// ListByStatus returns root orders in the given status, capped at limit when
// limit > 0. On a missing status index the query is retried once as an
// unindexed scan with a client-side filter; that result is unordered.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit int32) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:                &s.rootTable,
		IndexName:                strPtr(statusIndex),
		KeyConditionExpression:   strPtr("#s = :s"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
		ScanIndexForward: boolPtr(false),
	}
	if limit > 0 {
		input.Limit = &limit
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		if !docstore.IsMissingIndex(err) {
			return nil, fmt.Errorf("query orders by status: %w", err)
		}
		log.Printf("[orders] status index missing, retrying with scan")
		return s.scanByStatus(ctx, status, limit)
	}
	return unmarshalOrders(out.Items)
}

func (s *Store) scanByStatus(ctx context.Context, status Status, limit int32) ([]Order, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]Order, 0, len(all))
	for _, o := range all {
		if o.Status == status {
			matched = append(matched, o)
			if limit > 0 && int32(len(matched)) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// ListDeliveredBy returns orders delivered by one associate, most recent
// delivery first, capped at limit when limit > 0. On a missing index the
// query is retried once as an unindexed scan; that result is unordered.
func (s *Store) ListDeliveredBy(ctx context.Context, associateID string, limit int32) ([]Order, error) {
	input := &dyn.QueryInput{
		TableName:              &s.rootTable,
		IndexName:              strPtr(deliveredByIndex),
		KeyConditionExpression: strPtr("delivered_by = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: associateID},
		},
		ScanIndexForward: boolPtr(false),
	}
	if limit > 0 {
		input.Limit = &limit
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		if !docstore.IsMissingIndex(err) {
			return nil, fmt.Errorf("query delivered orders: %w", err)
		}
		log.Printf("[orders] delivered-by index missing, retrying with scan")
		return s.scanDeliveredBy(ctx, associateID, limit)
	}
	return unmarshalOrders(out.Items)
}

func (s *Store) scanDeliveredBy(ctx context.Context, associateID string, limit int32) ([]Order, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]Order, 0, len(all))
	for _, o := range all {
		if o.DeliveredBy == associateID && o.Status == StatusDelivered {
			matched = append(matched, o)
			if limit > 0 && int32(len(matched)) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// ListAll scans the full root collection, newest first. Feeds the delivery
// roster and the search fallback.
func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.rootTable,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	orders, err := unmarshalOrders(items)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	return orders, nil
}

// SetStatus applies an unrestricted admin status override. The root copy is
// written first and is authoritative; the nested copy is mirrored best-effort
// and a failure there is reported in the SyncResult, logged and counted, never
// fatal and never retried.
func (s *Store) SetStatus(ctx context.Context, orderID string, status Status) (SyncResult, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return SyncResult{}, err
	}
	if o == nil {
		return SyncResult{}, ErrOrderNotFound
	}

	now := s.nowFunc()
	expr := "SET #s = :s, updated_at = :ua"
	names := map[string]string{"#s": "status"}
	values := map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: string(status)},
		":ua": avTime(now),
	}

	if err := s.updateRoot(ctx, orderID, expr, names, values, nil); err != nil {
		return SyncResult{}, fmt.Errorf("update status: %w", err)
	}

	return s.mirror(ctx, o, "set-status", expr, names, values), nil
}

// SetAssignment writes the assignment fields on the root copy only. The nested
// copy is deliberately not touched: assignment is operational routing, not a
// lifecycle transition, and customer views do not show it. Status is left as
// it was.
func (s *Store) SetAssignment(ctx context.Context, orderID, associateID, associateName string, at time.Time) error {
	expr := "SET delivery_assigned_to = :aid, delivery_assigned_name = :an, delivery_assigned_at = :at, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":aid": &types.AttributeValueMemberS{Value: associateID},
		":an":  &types.AttributeValueMemberS{Value: associateName},
		":at":  avTime(at),
		":ua":  avTime(s.nowFunc()),
	}
	if err := s.updateRoot(ctx, orderID, expr, nil, values, nil); err != nil {
		if isConditionalFailure(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("set assignment: %w", err)
	}
	return nil
}

// UnassignStale reverts an order whose assignment was never resolved: status
// back to packed, assignment and delivery fields removed. Root copy only,
// matching the assignment write it undoes.
func (s *Store) UnassignStale(ctx context.Context, orderID string) error {
	expr := "SET #s = :s, updated_at = :ua REMOVE delivery_assigned_to, delivery_assigned_name, delivery_assigned_at, delivered_by"
	names := map[string]string{"#s": "status"}
	values := map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: string(StatusPacked)},
		":ua": avTime(s.nowFunc()),
	}
	if err := s.updateRoot(ctx, orderID, expr, names, values, nil); err != nil {
		return fmt.Errorf("unassign stale order: %w", err)
	}
	return nil
}

// MarkDelivered records a delivery confirmation: status delivered, delivered-at
// and delivering associate on the root copy, mirrored best-effort to the nested
// copy. The root write is guarded so that two associates confirming the same
// order cannot both win; the loser gets ErrAlreadyDelivered.
func (s *Store) MarkDelivered(ctx context.Context, o *Order, associateID string, at time.Time) (SyncResult, error) {
	expr := "SET #s = :s, delivered_at = :da, delivered_by = :db, updated_at = :ua"
	names := map[string]string{"#s": "status"}
	values := map[string]types.AttributeValue{
		":s":  &types.AttributeValueMemberS{Value: string(StatusDelivered)},
		":da": avTime(at),
		":db": &types.AttributeValueMemberS{Value: associateID},
		":ua": avTime(s.nowFunc()),
	}
	cond := "#s <> :s"

	if err := s.updateRoot(ctx, o.OrderID, expr, names, values, &cond); err != nil {
		if isConditionalFailure(err) {
			return SyncResult{}, ErrAlreadyDelivered
		}
		return SyncResult{}, fmt.Errorf("mark delivered: %w", err)
	}

	// Mirror only the three delivery fields; no condition, the root decided.
	return s.mirror(ctx, o, "confirm-delivery", expr, names, values), nil
}

// AttachPaymentProof stores a payment proof image on both copies and moves the
// payment status to Proof Uploaded. Customer-driven; both writes must succeed.
func (s *Store) AttachPaymentProof(ctx context.Context, customerID, orderID, proof string) error {
	expr := "SET payment_proof = :p, payment_status = :ps, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":p":  &types.AttributeValueMemberS{Value: proof},
		":ps": &types.AttributeValueMemberS{Value: PaymentStatusProofUploaded},
		":ua": avTime(s.nowFunc()),
	}

	if err := s.updateNested(ctx, customerID, orderID, expr, nil, values); err != nil {
		return fmt.Errorf("attach proof (nested): %w", err)
	}
	if err := s.updateRoot(ctx, orderID, expr, nil, values, nil); err != nil {
		return fmt.Errorf("attach proof (root): %w", err)
	}
	return nil
}

// VerifyPaymentProof resolves an admin review. Accept marks the payment
// Verified; reject marks it for re-upload and removes the proof. Both copies
// are written and either failure is surfaced.
func (s *Store) VerifyPaymentProof(ctx context.Context, orderID string, accept bool) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOrderNotFound
	}

	var expr string
	values := map[string]types.AttributeValue{
		":ua": avTime(s.nowFunc()),
	}
	if accept {
		expr = "SET payment_status = :ps, updated_at = :ua"
		values[":ps"] = &types.AttributeValueMemberS{Value: PaymentStatusVerified}
	} else {
		expr = "SET payment_status = :ps, updated_at = :ua REMOVE payment_proof"
		values[":ps"] = &types.AttributeValueMemberS{Value: PaymentStatusRejected}
	}

	if err := s.updateRoot(ctx, orderID, expr, nil, values, nil); err != nil {
		return fmt.Errorf("verify proof (root): %w", err)
	}
	if cid, oid, ok := nestedKey(o); ok {
		if err := s.updateNested(ctx, cid, oid, expr, nil, values); err != nil {
			return fmt.Errorf("verify proof (nested): %w", err)
		}
	}
	return nil
}

// Delete purges both copies of an order. Admin-only, confirmation-gated at the
// handler.
func (s *Store) Delete(ctx context.Context, orderID string) error {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOrderNotFound
	}

	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.rootTable,
		Key:       s.rootKeyAttrs(orderID),
	}); err != nil {
		return fmt.Errorf("delete root order: %w", err)
	}

	if cid, oid, ok := nestedKey(o); ok {
		if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &s.customerTable,
			Key:       s.nestedKeyAttrs(cid, oid),
		}); err != nil {
			return fmt.Errorf("delete nested order: %w", err)
		}
	}
	return nil
}

// --- internals ---

func (s *Store) updateRoot(ctx context.Context, orderID, expr string, names map[string]string, values map[string]types.AttributeValue, extraCond *string) error {
	// attribute_exists keeps an update from resurrecting a purged order.
	cond := "attribute_exists(order_id)"
	if extraCond != nil {
		cond = cond + " AND " + *extraCond
	}
	input := &dyn.UpdateItemInput{
		TableName:                 &s.rootTable,
		Key:                       s.rootKeyAttrs(orderID),
		UpdateExpression:          &expr,
		ExpressionAttributeValues: values,
		ConditionExpression:       &cond,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	_, err := s.client.UpdateItem(ctx, input)
	return err
}

func (s *Store) updateNested(ctx context.Context, customerID, orderID, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	cond := "attribute_exists(order_id)"
	input := &dyn.UpdateItemInput{
		TableName:                 &s.customerTable,
		Key:                       s.nestedKeyAttrs(customerID, orderID),
		UpdateExpression:          &expr,
		ExpressionAttributeValues: values,
		ConditionExpression:       &cond,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}
	_, err := s.client.UpdateItem(ctx, input)
	return err
}

// mirror applies an already-committed root update to the nested copy. Failures
// are logged and counted, never propagated: the root copy is authoritative for
// admin views and the copies reconverge on the next successful full write.
func (s *Store) mirror(ctx context.Context, o *Order, operation, expr string, names map[string]string, values map[string]types.AttributeValue) SyncResult {
	cid, oid, ok := nestedKey(o)
	if !ok {
		err := fmt.Errorf("no nested path for order %s", o.OrderID)
		log.Printf("[orders] mirror skipped op=%s: %v", operation, err)
		s.metrics.CountMirrorFailure(ctx, operation)
		return SyncResult{MirrorErr: err}
	}
	if err := s.updateNested(ctx, cid, oid, expr, names, values); err != nil {
		log.Printf("[orders] mirror write failed op=%s order=%s: %v", operation, o.OrderID, err)
		s.metrics.CountMirrorFailure(ctx, operation)
		return SyncResult{MirrorErr: err}
	}
	return SyncResult{}
}

func (s *Store) rootKeyAttrs(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func (s *Store) nestedKeyAttrs(customerID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: customerID},
		"order_id":    &types.AttributeValueMemberS{Value: orderID},
	}
}

func unmarshalOrders(items []map[string]types.AttributeValue) ([]Order, error) {
	orders := make([]Order, 0, len(items))
	for _, item := range items {
		var o Order
		if err := attributevalue.UnmarshalMap(item, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func sortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func isConditionalFailure(err error) bool {
	var cf *types.ConditionalCheckFailedException
	return errors.As(err, &cf)
}

func avTime(t time.Time) types.AttributeValue {
	av, err := attributevalue.Marshal(t)
	if err != nil {
		return &types.AttributeValueMemberS{Value: t.Format(time.RFC3339Nano)}
	}
	return av
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
