package orders

import (
	"strings"
	"time"
)

// Status is an order's lifecycle state. Admins may set any status at any time;
// the staged subset below only drives the customer-facing tracking timeline.
type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusProcess        Status = "process"
	StatusPacked         Status = "packed"
	StatusTransit        Status = "transit"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ParseStatus normalizes free-form admin input to a known status.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusAccepted:
		return StatusAccepted, true
	case StatusProcess, "in process":
		return StatusProcess, true
	case StatusPacked:
		return StatusPacked, true
	case StatusTransit, "in transit":
		return StatusTransit, true
	case StatusOutForDelivery:
		return StatusOutForDelivery, true
	case StatusDelivered:
		return StatusDelivered, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// Stage maps a status onto the tracking timeline. Cancelled sits outside the
// timeline and returns -1. Packed is an operational state (reclaimer revert
// target) and renders at the process stage.
func (s Status) Stage() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusProcess, StatusPacked:
		return 2
	case StatusTransit:
		return 3
	case StatusOutForDelivery:
		return 4
	case StatusDelivered:
		return 5
	}
	return -1
}

// IsForwardProgressFrom reports whether moving prev -> s advances the staged
// flow. Display-only; nothing enforces it on writes.
func (s Status) IsForwardProgressFrom(prev Status) bool {
	a, b := prev.Stage(), s.Stage()
	return a >= 0 && b > a
}

// Payment methods.
const (
	PaymentPrepaid = "Prepaid"
	PaymentCOD     = "COD"
)

// Payment statuses.
const (
	PaymentStatusPending       = "Pending"
	PaymentStatusCompleted     = "Completed"
	PaymentStatusProofUploaded = "Proof Uploaded"
	PaymentStatusVerified      = "Verified"
	PaymentStatusRejected      = "Rejected - Re-upload Required"
)

// Item is a single ordered line item, snapshotted from the cart at checkout.
type Item struct {
	ProductID string  `dynamodbav:"product_id" json:"productId"`
	Name      string  `dynamodbav:"name" json:"name"`
	Price     float64 `dynamodbav:"price" json:"price"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Image     string  `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// Address is a shipping address snapshot. Orders keep their own copy; later
// edits to the customer's address book do not touch placed orders.
type Address struct {
	Name    string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Type    string `dynamodbav:"type,omitempty" json:"type,omitempty"`
	Line1   string `dynamodbav:"line1" json:"line1"`
	Line2   string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City    string `dynamodbav:"city" json:"city"`
	State   string `dynamodbav:"state,omitempty" json:"state,omitempty"`
	Pincode string `dynamodbav:"pincode" json:"pincode"`
	Phone   string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
}

// Order is the central record. Every order exists twice: the nested copy under
// the owning customer (customer views) and the root copy (admin views). The
// root copy additionally carries OriginalOrderPath pointing back at the nested
// copy so mirrored updates do not need the customer id re-derived.
type Order struct {
	OrderID       string  `dynamodbav:"order_id" json:"orderId"`
	CustomerID    string  `dynamodbav:"customer_id" json:"userId"`
	CustomerName  string  `dynamodbav:"customer_name,omitempty" json:"userName,omitempty"`
	CustomerEmail string  `dynamodbav:"customer_email,omitempty" json:"userEmail,omitempty"`
	Items         []Item  `dynamodbav:"items" json:"items"`
	TotalAmount   float64 `dynamodbav:"total_amount" json:"totalAmount"`
	PaymentMethod string  `dynamodbav:"payment_method" json:"paymentMethod"`
	PaymentStatus string  `dynamodbav:"payment_status" json:"paymentStatus"`
	PaymentProof  string  `dynamodbav:"payment_proof,omitempty" json:"paymentProof,omitempty"`
	Status        Status  `dynamodbav:"status" json:"status"`
	ShippingAddr  Address `dynamodbav:"shipping_address" json:"shippingAddress"`

	DeliveryAssignedTo   string     `dynamodbav:"delivery_assigned_to,omitempty" json:"deliveryAssignedTo,omitempty"`
	DeliveryAssignedName string     `dynamodbav:"delivery_assigned_name,omitempty" json:"deliveryAssignedName,omitempty"`
	DeliveryAssignedAt   *time.Time `dynamodbav:"delivery_assigned_at,omitempty" json:"deliveryAssignedAt,omitempty"`
	DeliveredBy          string     `dynamodbav:"delivered_by,omitempty" json:"deliveredBy,omitempty"`
	DeliveredAt          *time.Time `dynamodbav:"delivered_at,omitempty" json:"deliveredAt,omitempty"`

	// Back-reference to the nested copy; set on the root copy only.
	OriginalOrderPath string `dynamodbav:"original_order_path,omitempty" json:"originalOrderPath,omitempty"`

	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// InvoiceNumber is the short id printed on labels and invoices: the first 12
// characters of the order id, uppercased. Customers quote it back for
// tracking, which is why search accepts id prefixes.
func (o *Order) InvoiceNumber() string {
	id := o.OrderID
	if len(id) > 12 {
		id = id[:12]
	}
	return strings.ToUpper(id)
}
