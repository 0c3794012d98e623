package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// AssignmentEvent is the message body published when an order is routed to a
// delivery associate. Downstream consumers (ops dashboards, audit trail) get
// it off the queue; the API does not depend on anyone reading it.
type AssignmentEvent struct {
	OrderID     string    `json:"order_id"`
	AssociateID string    `json:"associate_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// SendAssignmentEvent publishes an assignment event. Attribute values carry the
// ids so consumers can filter without decoding the body.
func (p *Publisher) SendAssignmentEvent(ctx context.Context, ev AssignmentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal assignment event: %w", err)
	}
	msgBody := string(body)

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &msgBody,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"order_id": {
				DataType:    awsString("String"),
				StringValue: &ev.OrderID,
			},
			"associate_id": {
				DataType:    awsString("String"),
				StringValue: &ev.AssociateID,
			},
		},
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
