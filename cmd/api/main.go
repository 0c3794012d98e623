package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mcelectronics/backend/internal/addresses"
	"github.com/mcelectronics/backend/internal/assignments"
	awsx "github.com/mcelectronics/backend/internal/aws"
	"github.com/mcelectronics/backend/internal/cart"
	"github.com/mcelectronics/backend/internal/checkout"
	"github.com/mcelectronics/backend/internal/delivery"
	"github.com/mcelectronics/backend/internal/handlers"
	"github.com/mcelectronics/backend/internal/notifications"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/products"
	"github.com/mcelectronics/backend/internal/users"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRouter(cfg handlers.Config, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = allowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterCustomerRoutes(r, cfg)
	handlers.RegisterAdminRoutes(r, cfg)
	handlers.RegisterAssociateRoutes(r, cfg)

	return r
}

func main() {
	// Local development loads .env; in Lambda the variables come from the
	// function configuration and the file is simply absent.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	clients, err := awsx.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	var cache *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redis.NewClient(&redis.Options{Addr: addr})
	}

	metrics := awsx.NewMetrics(clients.CloudWatch, envOr("METRICS_NAMESPACE", "MCElectronics/Orders"))
	publisher := awsx.NewPublisher(clients.SQS, os.Getenv("ASSIGNMENT_QUEUE_URL"))

	orderStore := orders.NewStore(clients.DynamoDB,
		envOr("ORDERS_TABLE", "orders"),
		envOr("CUSTOMER_ORDERS_TABLE", "customer_orders"),
		metrics)
	cartStore := cart.NewStore(clients.DynamoDB, envOr("CART_TABLE", "cart_items"))
	addressStore := addresses.NewStore(clients.DynamoDB, envOr("ADDRESSES_TABLE", "addresses"))
	productStore := products.NewStore(clients.DynamoDB, envOr("PRODUCTS_TABLE", "products"), cache)
	userStore := users.NewStore(clients.DynamoDB,
		envOr("USERS_TABLE", "users"),
		envOr("ASSOCIATES_TABLE", "associates"))
	notifStore := notifications.NewStore(clients.DynamoDB, envOr("NOTIFICATIONS_TABLE", "notifications"))
	assignStore := assignments.NewStore(clients.DynamoDB, envOr("ASSIGNED_ORDERS_TABLE", "assigned_orders"),
		orderStore, userStore, notifStore, publisher)

	cfg := handlers.Config{
		Orders:        orderStore,
		Carts:         cartStore,
		Addresses:     addressStore,
		Products:      productStore,
		Users:         userStore,
		Checkout:      checkout.NewService(cartStore, addressStore, orderStore, userStore),
		Assignments:   assignStore,
		Reclaimer:     &assignments.Reclaimer{Assignments: assignStore, Orders: orderStore, Users: userStore},
		Notifications: notifStore,
		Confirmer:     delivery.NewConfirmer(orderStore),
		JWTSecret:     os.Getenv("JWT_SECRET"),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	origins := []string{envOr("ALLOWED_ORIGIN", "http://localhost:5173")}
	r := setupRouter(cfg, origins)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":" + envOr("PORT", "8080")
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
