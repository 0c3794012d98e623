package orders

import (
	"github.com/mcelectronics/backend/internal/docstore"
)

// SyncResult reports the outcome of a dual-location write. When a store method
// returns a SyncResult with a nil error, the root (authoritative) copy was
// written; MirrorErr carries the best-effort nested-copy failure, if any. The
// two copies may transiently diverge until the next successful full write.
type SyncResult struct {
	MirrorErr error
}

// InSync reports whether both copies were written.
func (r SyncResult) InSync() bool { return r.MirrorErr == nil }

// nestedKey resolves the nested copy's key for an order: through the
// back-reference when the root copy carries one, else reconstructed from the
// customer id.
func nestedKey(o *Order) (customerID, orderID string, ok bool) {
	if o.OriginalOrderPath != "" {
		if cid, oid, ok := docstore.ParseOrderPath(o.OriginalOrderPath); ok {
			return cid, oid, true
		}
	}
	if o.CustomerID != "" {
		return o.CustomerID, o.OrderID, true
	}
	return "", "", false
}
