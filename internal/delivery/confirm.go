package delivery

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mcelectronics/backend/internal/orders"
)

var ErrNotOnRoster = errors.New("order is not on this roster")

// Confirmer drives the scan-to-confirm delivery flow.
type Confirmer struct {
	Orders  *orders.Store
	nowFunc func() time.Time
}

func NewConfirmer(ords *orders.Store) *Confirmer {
	return &Confirmer{Orders: ords, nowFunc: time.Now}
}

// Confirm resolves scanner input against the roster and marks the order
// delivered. For cash-on-delivery orders the associate must tick the
// collected-cash acknowledgment first; without it the call is a no-op that
// hands the resolved order back so the UI can re-prompt, not an error.
//
// A second confirmation of an already-delivered order fails with
// orders.ErrAlreadyDelivered.
func (c *Confirmer) Confirm(ctx context.Context, roster *Roster, term, associateID string, codAcknowledged bool) (*orders.Order, bool, error) {
	o, ok := roster.Resolve(term)
	if !ok {
		return nil, false, ErrNotOnRoster
	}

	if o.PaymentMethod == orders.PaymentCOD && !codAcknowledged {
		return o, false, nil
	}

	at := c.nowFunc().UTC()
	res, err := c.Orders.MarkDelivered(ctx, o, associateID, at)
	if err != nil {
		return nil, false, err
	}
	if !res.InSync() {
		log.Printf("[delivery] customer copy of order %s lagging after confirmation: %v", o.OrderID, res.MirrorErr)
	}

	roster.ApplyDelivered(o.OrderID, associateID, at)

	o.Status = orders.StatusDelivered
	o.DeliveredBy = associateID
	o.DeliveredAt = &at
	return o, true, nil
}
