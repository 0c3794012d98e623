package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcelectronics/backend/internal/auth"
	"github.com/mcelectronics/backend/internal/delivery"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
	"github.com/mcelectronics/backend/internal/validation"
)

// recentDeliveriesLimit caps the dashboard's recent-deliveries panel.
const recentDeliveriesLimit = 10

// RegisterAssociateRoutes registers the delivery dashboard API.
func RegisterAssociateRoutes(r *gin.Engine, cfg Config) {
	v := validation.New()

	g := r.Group("/api/associate", auth.Middleware(cfg.JWTSecret, cfg.Users), auth.RequireRole(users.RoleAssociate))

	g.GET("/orders", func(c *gin.Context) {
		id := auth.FromContext(c)

		// Dashboard load doubles as a sweep trigger: yesterday's leftovers go
		// back to the pool before the roster is built. Best-effort; the
		// scheduled worker covers associates who never log in.
		if cfg.Reclaimer != nil {
			if _, err := cfg.Reclaimer.ReclaimForAssociate(c.Request.Context(), id.ID, time.Now()); err != nil {
				log.Printf("[associate] session sweep failed for %s: %v", id.ID, err)
			}
		}

		roster, err := delivery.LoadRoster(c.Request.Context(), cfg.Orders, id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "roster_load_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": roster.Assigned(),
			"stats":  roster.Stats(time.Now()),
		})
	})

	// Recent deliveries survive the nightly assignment-record sweep because
	// they are read straight off the orders, not the assignment records.
	g.GET("/deliveries", func(c *gin.Context) {
		id := auth.FromContext(c)
		list, err := cfg.Orders.ListDeliveredBy(c.Request.Context(), id.ID, recentDeliveriesLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "deliveries_load_failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deliveries": list})
	})

	g.POST("/deliveries/confirm", func(c *gin.Context) {
		id := auth.FromContext(c)
		var req validation.ConfirmDeliveryRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		roster, err := delivery.LoadRoster(c.Request.Context(), cfg.Orders, id.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "roster_load_failed"})
			return
		}

		o, confirmed, err := cfg.Confirmer.Confirm(c.Request.Context(), roster, req.Term, id.ID, req.CODAcknowledged)
		if err != nil {
			switch {
			case errors.Is(err, delivery.ErrNotOnRoster):
				c.JSON(http.StatusNotFound, gin.H{"error": "not_on_roster"})
			case errors.Is(err, orders.ErrAlreadyDelivered):
				c.JSON(http.StatusConflict, gin.H{"error": "already_delivered"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm_failed"})
			}
			return
		}

		// COD without the cash acknowledgment resolves the order but does
		// not deliver it; the client re-prompts with the checkbox.
		if !confirmed {
			c.JSON(http.StatusOK, gin.H{
				"confirmed":      false,
				"codAckRequired": true,
				"order":          o,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"confirmed": true, "order": o})
	})
}
