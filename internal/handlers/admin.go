package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mcelectronics/backend/internal/assignments"
	"github.com/mcelectronics/backend/internal/auth"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
	"github.com/mcelectronics/backend/internal/validation"
)

// Admin listings page in small steps; the console shows a "view more" link
// rather than numbered pagination.
const adminPageSize = 5

// RegisterAdminRoutes registers the admin console API.
func RegisterAdminRoutes(r *gin.Engine, cfg Config) {
	v := validation.New()

	g := r.Group("/api/admin", auth.Middleware(cfg.JWTSecret, cfg.Users), auth.RequireRole(users.RoleAdmin))

	// Listing with optional status filter, free-text filter, and view-more
	// paging. Filtering happens after the fetch: the console filters what it
	// shows, it does not re-query.
	g.GET("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var list []orders.Order
		var err error
		if raw := c.Query("status"); raw != "" {
			status, ok := orders.ParseStatus(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_status"})
				return
			}
			list, err = cfg.Orders.ListByStatus(ctx, status, 0)
		} else {
			list, err = cfg.Orders.ListAll(ctx)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders_load_failed"})
			return
		}

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			list = filterOrders(list, q)
		}

		total := len(list)
		list, hasMore := pageWindow(list, c.DefaultQuery("page", "1"))

		c.JSON(http.StatusOK, gin.H{
			"orders":  list,
			"hasMore": hasMore,
			"total":   total,
		})
	})

	g.GET("/orders/:id", func(c *gin.Context) {
		o, err := cfg.Orders.Get(c.Request.Context(), c.Param("id"))
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

	g.GET("/search", func(c *gin.Context) {
		o, err := cfg.Orders.Search(c.Request.Context(), c.Query("q"))
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o})
	})

	// Status is a free admin decision: any status, any time, including
	// backwards moves and cancellations.
	g.PATCH("/orders/:id/status", func(c *gin.Context) {
		var req validation.UpdateStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		status, ok := orders.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_status"})
			return
		}

		res, err := cfg.Orders.SetStatus(c.Request.Context(), c.Param("id"), status)
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status_update_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "inSync": res.InSync()})
	})

	g.POST("/orders/:id/assign", func(c *gin.Context) {
		var req validation.AssignOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		err := cfg.Assignments.Assign(c.Request.Context(), c.Param("id"), req.AssociateID)
		if err != nil {
			switch {
			case errors.Is(err, orders.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			case errors.Is(err, assignments.ErrAssociateNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "associate_not_found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "assign_failed"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"assigned": true})
	})

	g.POST("/orders/:id/verify-payment", func(c *gin.Context) {
		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		err := cfg.Orders.VerifyPaymentProof(c.Request.Context(), c.Param("id"), req.Accept)
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verify_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": req.Accept})
	})

	// Deletion purges both copies and cannot be undone, so it demands an
	// explicit confirm flag on top of the admin role.
	g.DELETE("/orders/:id", func(c *gin.Context) {
		if c.Query("confirm") != "true" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation_required"})
			return
		}
		if err := cfg.Orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	// Associates overview with live workload counts.
	g.GET("/associates", func(c *gin.Context) {
		ctx := c.Request.Context()
		assocs, err := cfg.Users.ListAssociates(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "associates_load_failed"})
			return
		}

		total := len(assocs)
		assocs, hasMore := pageWindow(assocs, c.DefaultQuery("page", "1"))

		type row struct {
			users.Associate
			OpenAssignments int `json:"openAssignments"`
		}
		out := make([]row, 0, len(assocs))
		for _, a := range assocs {
			recs, err := cfg.Assignments.List(ctx, a.AssociateID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "associates_load_failed"})
				return
			}
			out = append(out, row{Associate: a, OpenAssignments: len(recs)})
		}
		c.JSON(http.StatusOK, gin.H{"associates": out, "hasMore": hasMore, "total": total})
	})

	g.GET("/users", func(c *gin.Context) {
		list, err := cfg.Users.ListUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "users_load_failed"})
			return
		}
		total := len(list)
		list, hasMore := pageWindow(list, c.DefaultQuery("page", "1"))
		c.JSON(http.StatusOK, gin.H{"users": list, "hasMore": hasMore, "total": total})
	})
}

// pageWindow cuts a listing down to the view-more window: page n shows the
// first n*adminPageSize entries.
func pageWindow[T any](list []T, rawPage string) ([]T, bool) {
	page, _ := strconv.Atoi(rawPage)
	if page < 1 {
		page = 1
	}
	end := page * adminPageSize
	hasMore := end < len(list)
	if end > len(list) {
		end = len(list)
	}
	return list[:end], hasMore
}

// filterOrders applies the console's free-text filter: order id, customer
// name, or email, case-insensitive substring.
func filterOrders(list []orders.Order, q string) []orders.Order {
	q = strings.ToLower(q)
	out := make([]orders.Order, 0, len(list))
	for _, o := range list {
		if strings.Contains(strings.ToLower(o.OrderID), q) ||
			strings.Contains(strings.ToLower(o.CustomerName), q) ||
			strings.Contains(strings.ToLower(o.CustomerEmail), q) {
			out = append(out, o)
		}
	}
	return out
}
