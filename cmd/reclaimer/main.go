package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	awsx "github.com/mcelectronics/backend/internal/aws"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	clients, err := awsx.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	p := NewProcessor(clients, Tables{
		Orders:         envOr("ORDERS_TABLE", "orders"),
		CustomerOrders: envOr("CUSTOMER_ORDERS_TABLE", "customer_orders"),
		AssignedOrders: envOr("ASSIGNED_ORDERS_TABLE", "assigned_orders"),
		Users:          envOr("USERS_TABLE", "users"),
		Associates:     envOr("ASSOCIATES_TABLE", "associates"),
	}, envOr("METRICS_NAMESPACE", "MCElectronics/Orders"))

	// If RUN_LOCAL=true, run a single sweep immediately instead of waiting
	// for the schedule.
	if os.Getenv("RUN_LOCAL") == "true" {
		report, err := p.Handle(context.Background(), events.CloudWatchEvent{})
		if err != nil {
			log.Fatalf("local sweep error: %v", err)
		}
		log.Printf("local sweep: reclaimed=%d", report.Reclaimed)
		return
	}

	lambda.Start(p.Handle)
}
