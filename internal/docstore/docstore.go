// Package docstore holds the pieces of the document-store contract that are
// shared across stores: document path handling for the order back-reference
// and classification of the store's recoverable query errors.
package docstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// OrderPath builds the back-reference stored on a root order copy, pointing at
// the nested copy under the owning customer.
func OrderPath(customerID, orderID string) string {
	return fmt.Sprintf("users/%s/orders/%s", customerID, orderID)
}

// ParseOrderPath resolves a back-reference into the nested copy's key.
func ParseOrderPath(path string) (customerID, orderID string, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != "users" || parts[2] != "orders" {
		return "", "", false
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[3], true
}

// IsMissingIndex reports whether err is the store telling us a query needs an
// index that is not there. Queries that hit this are retried once in degraded
// form (unindexed scan, unordered) instead of failing the operation.
func IsMissingIndex(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.ErrorCode() {
	case "ValidationException", "ResourceNotFoundException":
		return strings.Contains(ae.ErrorMessage(), "index")
	}
	return false
}
