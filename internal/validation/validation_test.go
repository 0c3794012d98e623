package validation

import (
	"strings"
	"testing"
)

func TestCheckoutRequest_CODValid(t *testing.T) {
	v := New()

	req := CheckoutRequest{
		AddressID:     "addr-1",
		PaymentMethod: "COD",
	}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCheckoutRequest_PrepaidWithoutConfirmation(t *testing.T) {
	v := New()

	req := CheckoutRequest{
		AddressID:     "addr-1",
		PaymentMethod: "Prepaid",
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for unconfirmed prepaid checkout, got nil")
	}

	req.PaymentConfirmed = true
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid after confirmation, got error: %v", err)
	}
}

func TestCheckoutRequest_UnknownPaymentMethod(t *testing.T) {
	v := New()

	req := CheckoutRequest{
		AddressID:     "addr-1",
		PaymentMethod: "Barter",
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for unknown payment method, got nil")
	}
}

func TestAddressRequest_Pincode(t *testing.T) {
	v := New()

	req := AddressRequest{
		Name:    "Asha Verma",
		Line1:   "12 MG Road",
		City:    "Pune",
		Pincode: "411001",
	}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	req.Pincode = "41100"
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for short pincode, got nil")
	}

	req.Pincode = "41100a"
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for non-numeric pincode, got nil")
	}
}

func TestPaymentProofRequest_SizeLimit(t *testing.T) {
	v := New()

	req := PaymentProofRequest{Proof: "data:image/png;base64,AAAA"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	req.Proof = strings.Repeat("A", maxProofBytes+1)
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for oversized proof, got nil")
	}
}
