package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// Payment proofs are stored inline on the order record, so the encoded
// screenshot must stay well under the item size limit.
const maxProofBytes = 900 * 1024

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})
	v.RegisterStructValidation(paymentProofStructValidation, PaymentProofRequest{})

	return v
}

// checkoutStructValidation enforces the prepaid confirmation gate: a Prepaid
// checkout without an explicit payment confirmation must not create an order.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	if req.PaymentMethod == "Prepaid" && !req.PaymentConfirmed {
		sl.ReportError(req.PaymentConfirmed, "paymentConfirmed", "PaymentConfirmed", "prepaid_confirmed", "")
	}
}

// paymentProofStructValidation rejects proofs too large to store inline.
func paymentProofStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(PaymentProofRequest)

	if len(req.Proof) > maxProofBytes {
		sl.ReportError(req.Proof, "proof", "Proof", "proof_too_large", "")
	}
}
