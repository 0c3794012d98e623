package aws

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes operational counters. The interesting ones are the
// dual-write degradations: a mirror copy that could not be updated, and an
// order copy orphaned by a failed compensating delete. Both are best-effort;
// a metric push failure is only logged.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics bound to a CloudWatch namespace. A nil client
// degrades to log-only counting, which keeps local runs and tests quiet.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// CountMirrorFailure records a failed best-effort write to the nested order
// copy during the named operation.
func (m *Metrics) CountMirrorFailure(ctx context.Context, operation string) {
	m.put(ctx, "MirrorWriteFailure", operation)
}

// CountOrphanedCopy records an order copy left behind after a partial create
// could not be compensated.
func (m *Metrics) CountOrphanedCopy(ctx context.Context, operation string) {
	m.put(ctx, "OrphanedOrderCopy", operation)
}

func (m *Metrics) put(ctx context.Context, name, operation string) {
	if m == nil || m.client == nil {
		log.Printf("[metrics] %s operation=%s (no cloudwatch client)", name, operation)
		return
	}

	one := 1.0
	ts := m.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &ts,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("Operation"), Value: &operation},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		log.Printf("[metrics] put %s failed: %v", name, err)
	}
}
