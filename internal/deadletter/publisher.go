// Package deadletter captures permanently rejected emails on an SQS
// queue for manual inspection and replay.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Entry is the SQS message body for one rejected email. RawRef points
// back at the untouched raw object, so the payload can be rebuilt.
type Entry struct {
	CorrelationID string    `json:"correlationId"`
	RawRef        string    `json:"rawRef"`
	MessageID     string    `json:"messageId"`
	StatusCode    int       `json:"statusCode"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failedAt"`
}

// SQSSender abstracts SQS send operations for dependency inversion.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher writes dead-letter entries to an SQS queue.
type Publisher struct {
	client   SQSSender
	queueURL string
}

// New creates a Publisher for the given queue.
func New(client SQSSender, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
	}
}

// Publish sends one dead-letter entry.
func (p *Publisher) Publish(ctx context.Context, entry Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead-letter entry: %w", err)
	}

	bodyStr := string(body)
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &bodyStr,
	})
	if err != nil {
		return fmt.Errorf("send dead-letter message: %w", err)
	}
	return nil
}
