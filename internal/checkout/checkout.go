// Package checkout turns a cart into a placed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/mcelectronics/backend/internal/addresses"
	"github.com/mcelectronics/backend/internal/cart"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNoAddress           = errors.New("no shipping address selected")
	ErrPaymentNotConfirmed = errors.New("prepaid payment not confirmed")
)

// Request is a checkout submission. For Prepaid orders, Confirmed must be an
// explicit affirmative from the payment step; COD ignores it.
type Request struct {
	CustomerID    string
	AddressID     string
	PaymentMethod string
	Confirmed     bool
}

// Service coordinates the checkout flow across the stores.
type Service struct {
	Carts     *cart.Store
	Addresses *addresses.Store
	Orders    *orders.Store
	Users     *users.Store

	idFunc func() string
}

func NewService(carts *cart.Store, addrs *addresses.Store, ords *orders.Store, usrs *users.Store) *Service {
	return &Service{
		Carts:     carts,
		Addresses: addrs,
		Orders:    ords,
		Users:     usrs,
		idFunc:    uuid.NewString,
	}
}

// PlaceOrder validates the cart and address, snapshots both into a new order,
// writes it, and clears the cart. The total is always recomputed from stored
// cart prices; client-supplied totals are never trusted.
//
// The cart is cleared only after the order is durably written. A failed clear
// is logged and swallowed: the customer may see stale cart lines, but the
// order exists.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*orders.Order, error) {
	items, err := s.Carts.List(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if req.AddressID == "" {
		return nil, ErrNoAddress
	}
	addr, err := s.Addresses.Get(ctx, req.CustomerID, req.AddressID)
	if err != nil {
		if errors.Is(err, addresses.ErrAddressNotFound) {
			return nil, ErrNoAddress
		}
		return nil, fmt.Errorf("load address: %w", err)
	}

	paymentStatus := orders.PaymentStatusPending
	if req.PaymentMethod == orders.PaymentPrepaid {
		if !req.Confirmed {
			return nil, ErrPaymentNotConfirmed
		}
		paymentStatus = orders.PaymentStatusCompleted
	}

	var profile users.User
	if u, err := s.Users.Get(ctx, req.CustomerID); err == nil {
		profile = *u
	} else if !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	order := &orders.Order{
		OrderID:       s.idFunc(),
		CustomerID:    req.CustomerID,
		CustomerName:  profile.Name,
		CustomerEmail: profile.Email,
		Items:         toOrderItems(items),
		TotalAmount:   cart.Total(items),
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus,
		Status:        orders.StatusPending,
		ShippingAddr: orders.Address{
			Name:    addr.Name,
			Type:    addr.Type,
			Line1:   addr.Line1,
			Line2:   addr.Line2,
			City:    addr.City,
			State:   addr.State,
			Pincode: addr.Pincode,
			Phone:   addr.Phone,
		},
	}

	if err := s.Orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.Carts.Clear(ctx, req.CustomerID); err != nil {
		log.Printf("[checkout] cart clear failed after order %s: %v", order.OrderID, err)
	}

	log.Printf("[checkout] placed order=%s customer=%s total=%.2f method=%s",
		order.OrderID, req.CustomerID, order.TotalAmount, req.PaymentMethod)
	return order, nil
}

func toOrderItems(items []cart.Item) []orders.Item {
	out := make([]orders.Item, 0, len(items))
	for _, it := range items {
		out = append(out, orders.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return out
}
