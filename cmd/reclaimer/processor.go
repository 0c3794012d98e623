package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mcelectronics/backend/internal/assignments"
	awsx "github.com/mcelectronics/backend/internal/aws"
	"github.com/mcelectronics/backend/internal/orders"
	"github.com/mcelectronics/backend/internal/users"
)

// Processor runs the scheduled stale-assignment sweep: every order handed
// out before today and still undelivered goes back to the packed pool.
type Processor struct {
	reclaimer *assignments.Reclaimer
	nowFunc   func() time.Time
}

// Tables groups the table names the sweep touches.
type Tables struct {
	Orders         string
	CustomerOrders string
	AssignedOrders string
	Users          string
	Associates     string
}

// NewProcessor wires the sweep against live AWS clients.
func NewProcessor(clients *awsx.AWSClients, tbl Tables, metricsNamespace string) *Processor {
	metrics := awsx.NewMetrics(clients.CloudWatch, metricsNamespace)
	orderStore := orders.NewStore(clients.DynamoDB, tbl.Orders, tbl.CustomerOrders, metrics)
	userStore := users.NewStore(clients.DynamoDB, tbl.Users, tbl.Associates)
	assignStore := assignments.NewStore(clients.DynamoDB, tbl.AssignedOrders, orderStore, userStore, nil, nil)

	return &Processor{
		reclaimer: &assignments.Reclaimer{
			Assignments: assignStore,
			Orders:      orderStore,
			Users:       userStore,
		},
		nowFunc: time.Now,
	}
}

// Handle runs one sweep. The trigger payload carries no data; the schedule
// itself is the instruction.
func (p *Processor) Handle(ctx context.Context, _ events.CloudWatchEvent) (SweepReport, error) {
	start := p.nowFunc()
	reclaimed, err := p.reclaimer.ReclaimAll(ctx, start)

	report := SweepReport{
		StartedAt: start.UTC(),
		Duration:  time.Since(start).String(),
		Reclaimed: reclaimed,
	}
	if err != nil {
		log.Printf("[reclaimer] sweep failed: %v", err)
		return report, err
	}
	log.Printf("[reclaimer] sweep done reclaimed=%d duration=%s", report.Reclaimed, report.Duration)
	return report, nil
}
