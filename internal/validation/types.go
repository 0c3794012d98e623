package validation

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	AddressID        string `json:"addressId" validate:"required"`
	PaymentMethod    string `json:"paymentMethod" validate:"required,oneof=Prepaid COD"`
	PaymentConfirmed bool   `json:"paymentConfirmed"`
}

// AssignOrderRequest is the payload for POST /admin/orders/:id/assign.
type AssignOrderRequest struct {
	AssociateID string `json:"associateId" validate:"required"`
}

// UpdateStatusRequest is the payload for PATCH /admin/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AddToCartRequest is the payload for POST /cart.
type AddToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
}

// ChangeQuantityRequest is the payload for PATCH /cart/:productId.
type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AddressRequest is the payload for creating or updating a saved address.
type AddressRequest struct {
	Name    string `json:"name" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=Home Work Other"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
	Phone   string `json:"phone" validate:"omitempty,len=10,numeric"`
}

// PaymentProofRequest carries a base64 payment screenshot.
type PaymentProofRequest struct {
	Proof string `json:"proof" validate:"required"`
}

// VerifyPaymentRequest is the admin accept/reject decision on a proof.
type VerifyPaymentRequest struct {
	Accept bool `json:"accept"`
}

// ConfirmDeliveryRequest is the associate's scan-to-confirm payload.
type ConfirmDeliveryRequest struct {
	Term            string `json:"term" validate:"required"`
	CODAcknowledged bool   `json:"codAcknowledged"`
}
