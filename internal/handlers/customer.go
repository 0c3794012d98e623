// Package handlers wires the HTTP surface: customer storefront, admin
// console, and associate dashboard route groups.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcelectronics/backend/internal/addresses"
	"github.com/mcelectronics/backend/internal/assignments"
	"github.com/mcelectronics/backend/internal/auth"
	"github.com/mcelectronics/backend/internal/cart"
	"github.com/mcelectronics/backend/internal/checkout"
	"github.com/mcelectronics/backend/internal/delivery"
	"github.com/mcelectronics/backend/internal/notifications"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/products"
	"github.com/mcelectronics/backend/internal/users"
	"github.com/mcelectronics/backend/internal/validation"
)

// Config groups the stores and services the route groups share.
type Config struct {
	Orders        *orders.Store
	Carts         *cart.Store
	Addresses     *addresses.Store
	Products      *products.Store
	Users         *users.Store
	Checkout      *checkout.Service
	Assignments   *assignments.Store
	Reclaimer     *assignments.Reclaimer
	Notifications *notifications.Store
	Confirmer     *delivery.Confirmer
	JWTSecret     string
}

// RegisterCustomerRoutes registers the storefront API. Tracking is public;
// everything else requires an authenticated customer.
func RegisterCustomerRoutes(r *gin.Engine, cfg Config) {
	v := validation.New()

	// Public order tracking: customers paste an invoice number from a label.
	r.GET("/api/track/:term", func(c *gin.Context) {
		o, err := cfg.Orders.Search(c.Request.Context(), c.Param("term"))
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order":         o,
			"stage":         o.Status.Stage(),
			"invoiceNumber": o.InvoiceNumber(),
		})
	})

	r.GET("/api/products", func(c *gin.Context) {
		list, err := cfg.Products.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": list})
	})

	r.GET("/api/products/:id", func(c *gin.Context) {
		p, err := cfg.Products.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, products.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
			return
		}
		c.JSON(http.StatusOK, p)
	})

	g := r.Group("/api", auth.Middleware(cfg.JWTSecret, cfg.Users))

	g.GET("/cart", func(c *gin.Context) {
		id := auth.FromContext(c)
		items, err := cfg.Carts.List(c.Request.Context(), id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_load_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "total": cart.Total(items)})
	})

	g.POST("/cart", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.AddToCartRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		p, err := cfg.Products.Get(c.Request.Context(), req.ProductID)
		if err != nil {
			if errors.Is(err, products.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
			return
		}

		qty := req.Quantity
		if qty < 1 {
			qty = 1
		}
		err = cfg.Carts.Add(c.Request.Context(), cart.Item{
			CustomerID: id.ID,
			ProductID:  p.ProductID,
			Name:       p.Name,
			Price:      p.Price,
			Quantity:   qty,
			Image:      p.Image,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_add_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"added": true})
	})

	g.PATCH("/cart/:productId", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.ChangeQuantityRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		err := cfg.Carts.ChangeQuantity(c.Request.Context(), id.ID, c.Param("productId"), req.Delta)
		if err != nil {
			if errors.Is(err, cart.ErrItemNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_update_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	})

	g.DELETE("/cart/:productId", func(c *gin.Context) {
		id := auth.FromContext(c)
		if err := cfg.Carts.Remove(c.Request.Context(), id.ID, c.Param("productId")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_remove_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": true})
	})

	g.GET("/addresses", func(c *gin.Context) {
		id := auth.FromContext(c)
		list, err := cfg.Addresses.List(c.Request.Context(), id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "address_load_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"addresses": list})
	})

	g.POST("/addresses", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.AddressRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		addrID, err := cfg.Addresses.Add(c.Request.Context(), addressFromRequest(id.ID, "", req))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "address_save_failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": addrID})
	})

	g.PUT("/addresses/:id", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.AddressRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		err := cfg.Addresses.Update(c.Request.Context(), addressFromRequest(id.ID, c.Param("id"), req))
		if err != nil {
			if errors.Is(err, addresses.ErrAddressNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "address_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "address_save_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
	})

	g.DELETE("/addresses/:id", func(c *gin.Context) {
		id := auth.FromContext(c)
		if err := cfg.Addresses.Delete(c.Request.Context(), id.ID, c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "address_delete_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	g.POST("/checkout", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		o, err := cfg.Checkout.PlaceOrder(c.Request.Context(), checkout.Request{
			CustomerID:    id.ID,
			AddressID:     req.AddressID,
			PaymentMethod: req.PaymentMethod,
			Confirmed:     req.PaymentConfirmed,
		})
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": "empty_cart"})
			case errors.Is(err, checkout.ErrNoAddress):
				c.JSON(http.StatusBadRequest, gin.H{"error": "no_address"})
			case errors.Is(err, checkout.ErrPaymentNotConfirmed):
				c.JSON(http.StatusBadRequest, gin.H{"error": "payment_not_confirmed"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed"})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": o, "invoiceNumber": o.InvoiceNumber()})
	})

	g.GET("/orders", func(c *gin.Context) {
		id := auth.FromContext(c)
		list, err := cfg.Orders.ListByCustomer(c.Request.Context(), id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders_load_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	})

	g.GET("/orders/:id", func(c *gin.Context) {
		id := auth.FromContext(c)
		o, err := cfg.Orders.GetNested(c.Request.Context(), id.ID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_load_failed"})
			return
		}
		if o == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "stage": o.Status.Stage()})
	})

	g.POST("/orders/:id/payment-proof", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.PaymentProofRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		err := cfg.Orders.AttachPaymentProof(c.Request.Context(), id.ID, c.Param("id"), req.Proof)
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "proof_upload_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"paymentStatus": orders.PaymentStatusProofUploaded})
	})

	registerNotificationRoutes(g, cfg)
}

// watchPollInterval is how often the unread-count stream polls the store.
const watchPollInterval = 3 * time.Second

// registerNotificationRoutes serves the bell feed for any authenticated role.
func registerNotificationRoutes(g *gin.RouterGroup, cfg Config) {
	g.GET("/notifications", func(c *gin.Context) {
		id := auth.FromContext(c)
		list, err := cfg.Notifications.ListRecent(c.Request.Context(), id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "notifications_load_failed"})
			return
		}

		now := time.Now()
		unread := 0
		type entry struct {
			notifications.Notification
			When string `json:"when"`
		}
		out := make([]entry, 0, len(list))
		for _, n := range list {
			if !n.Read {
				unread++
			}
			out = append(out, entry{Notification: n, When: notifications.RelativeTime(n.CreatedAt, now)})
		}
		c.JSON(http.StatusOK, gin.H{"notifications": out, "unread": unread})
	})

	// Live badge: streams unread-count changes as server-sent events until
	// the client disconnects.
	g.GET("/notifications/watch", func(c *gin.Context) {
		id := auth.FromContext(c)
		ch := cfg.Notifications.Watch(c.Request.Context(), id.ID, watchPollInterval)

		c.Header("Cache-Control", "no-cache")
		c.Stream(func(w io.Writer) bool {
			count, ok := <-ch
			if !ok {
				return false
			}
			c.SSEvent("unread", count)
			return true
		})
	})

	g.POST("/notifications/:id/read", func(c *gin.Context) {
		id := auth.FromContext(c)
		if err := cfg.Notifications.MarkRead(c.Request.Context(), id.ID, c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mark_read_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"read": true})
	})

	g.POST("/notifications/read-all", func(c *gin.Context) {
		id := auth.FromContext(c)
		if err := cfg.Notifications.MarkAllRead(c.Request.Context(), id.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mark_all_read_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"read": true})
	})

	g.DELETE("/notifications", func(c *gin.Context) {
		id := auth.FromContext(c)
		if c.Query("confirm") != "true" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation_required"})
			return
		}
		if err := cfg.Notifications.ClearAll(c.Request.Context(), id.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "clear_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	})
}

func addressFromRequest(customerID, addressID string, req validation.AddressRequest) addresses.Address {
	return addresses.Address{
		CustomerID: customerID,
		AddressID:  addressID,
		Name:       req.Name,
		Type:       req.Type,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		Pincode:    req.Pincode,
		Phone:      req.Phone,
	}
}
