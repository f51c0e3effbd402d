// Package main implements the inbound email receiver Lambda handler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/chiphi-ai/inbound/internal/alias"
	"github.com/chiphi-ai/inbound/internal/deadletter"
	"github.com/chiphi-ai/inbound/internal/dispatch"
	"github.com/chiphi-ai/inbound/internal/htmlstrip"
	"github.com/chiphi-ai/inbound/internal/ids"
	"github.com/chiphi-ai/inbound/internal/mailparse"
	"github.com/chiphi-ai/inbound/internal/rawstore"
	"github.com/chiphi-ai/inbound/internal/sesevent"
	"github.com/chiphi-ai/inbound/internal/verifycode"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// RawFetcher defines the interface for fetching raw message bytes.
type RawFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// Dispatcher defines the interface for posting payloads to the
// ingestion API.
type Dispatcher interface {
	SendTransactional(ctx context.Context, payload dispatch.TransactionalPayload, correlationID ids.CorrelationID) error
	SendVerification(ctx context.Context, payload dispatch.VerificationPayload) error
}

// DeadLetterPublisher defines the interface for capturing permanently
// rejected emails.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, entry deadletter.Entry) error
}

// handler implements the receive pipeline.
type handler struct {
	store      RawFetcher
	dispatcher Dispatcher
	deadLetter DeadLetterPublisher
	now        func() time.Time
}

// newHandler creates a new handler. deadLetter may be nil when no
// dead-letter queue is configured.
func newHandler(store RawFetcher, dispatcher Dispatcher, deadLetter DeadLetterPublisher) *handler {
	return &handler{
		store:      store,
		dispatcher: dispatcher,
		deadLetter: deadLetter,
		now:        time.Now,
	}
}

// handle processes one SES receipt event. A nil return acknowledges the
// event; a non-nil return makes the platform redeliver it, so errors
// propagate only when a retry could help.
func (h *handler) handle(ctx context.Context, event sesevent.Event) error {
	tracer := otel.Tracer("chiphi-email-receiver")
	ctx, span := tracer.Start(ctx, "EmailReceiverHandler")
	defer span.End()

	bucket, key, ok := event.FirstObjectRef()
	if !ok {
		logger.InfoContext(ctx, "Event carries no stored object, nothing to do")
		return nil
	}
	rawRef := bucket + "/" + key

	correlationID := ids.NewCorrelationID()
	log := logger.With(
		slog.String("correlation_id", string(correlationID)),
		slog.String("raw_ref", rawRef),
	)

	raw, err := h.store.Fetch(ctx, bucket, key)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch raw email", slog.String("error", err.Error()))
		return fmt.Errorf("fetch raw email: %w", err)
	}

	msg, err := mailparse.Parse(raw)
	if err != nil {
		log.ErrorContext(ctx, "Failed to parse raw email", slog.String("error", err.Error()))
		return fmt.Errorf("parse raw email: %w", err)
	}
	log = log.With(slog.String("message_id", msg.MessageID))

	// The relay does not validate aliases; the ingestion API is the
	// trust boundary and rejects unknown ones.
	recipient := msg.To
	if len(event.Records[0].SES.Action.Recipients) > 0 {
		recipient = event.Records[0].SES.Action.Recipients[0]
	}
	userAlias := alias.Resolve(recipient)

	body := ""
	switch {
	case msg.Text != nil:
		body = *msg.Text
	case msg.HTML != nil:
		body = htmlstrip.Text(*msg.HTML)
	}

	switch c := verifycode.Classify(msg.Subject, body); c.Kind {
	case verifycode.KindVerification:
		return h.handleVerification(ctx, log, userAlias, c)
	case verifycode.KindUnclassifiable:
		log.WarnContext(ctx, "Forwarding confirmation without an extractable code, dropping",
			slog.String("subject", msg.Subject),
		)
		return nil
	}

	return h.handleTransactional(ctx, log, transactionalInput{
		alias:         userAlias,
		message:       msg,
		rawRef:        rawRef,
		correlationID: correlationID,
	})
}

// handleVerification forwards a confirmation code. Failures are logged
// and swallowed; the sender reissues codes on demand, so a redelivered
// stale code is worse than a missing one.
func (h *handler) handleVerification(ctx context.Context, log *slog.Logger, userAlias string, c verifycode.Classification) error {
	err := h.dispatcher.SendVerification(ctx, dispatch.VerificationPayload{
		Alias: userAlias,
		Code:  c.Code,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to dispatch verification code",
			slog.String("alias", userAlias),
			slog.String("error", err.Error()),
		)
		return nil
	}
	log.InfoContext(ctx, "Verification code dispatched",
		slog.String("alias", userAlias),
		slog.String("pattern", c.Pattern),
	)
	return nil
}

type transactionalInput struct {
	alias         string
	message       *mailparse.Message
	rawRef        string
	correlationID ids.CorrelationID
}

func (h *handler) handleTransactional(ctx context.Context, log *slog.Logger, in transactionalInput) error {
	msg := in.message
	payload := dispatch.TransactionalPayload{
		Alias:         in.alias,
		MessageID:     msg.MessageID,
		To:            msg.To,
		From:          msg.From,
		Subject:       msg.Subject,
		Text:          msg.Text,
		HTML:          msg.HTML,
		RawRef:        in.rawRef,
		ReceivedAt:    h.now().UTC(),
		CorrelationID: string(in.correlationID),
		Attachments:   msg.Attachments,
	}

	err := h.dispatcher.SendTransactional(ctx, payload, in.correlationID)
	if err == nil {
		log.InfoContext(ctx, "Email dispatched", slog.String("alias", in.alias))
		return nil
	}

	var perm *dispatch.PermanentError
	if errors.As(err, &perm) && h.deadLetter != nil {
		log.ErrorContext(ctx, "Email permanently rejected, dead-lettering",
			slog.Int("status", perm.StatusCode),
			slog.String("reason", perm.Body),
		)
		if dlErr := h.deadLetter.Publish(ctx, deadletter.Entry{
			CorrelationID: string(in.correlationID),
			RawRef:        in.rawRef,
			MessageID:     msg.MessageID,
			StatusCode:    perm.StatusCode,
			Reason:        perm.Body,
			FailedAt:      h.now().UTC(),
		}); dlErr != nil {
			log.ErrorContext(ctx, "Failed to dead-letter email", slog.String("error", dlErr.Error()))
			return fmt.Errorf("dead-letter email: %w", dlErr)
		}
		return nil
	}

	log.ErrorContext(ctx, "Failed to dispatch email", slog.String("error", err.Error()))
	return fmt.Errorf("dispatch email: %w", err)
}

func main() {
	ctx := context.Background()

	tp, err := xrayconfig.NewTracerProvider(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to initialize tracer provider", slog.String("error", err.Error()))
		panic(err)
	}
	otel.SetTracerProvider(tp)

	// Load config from environment
	ingestURL := os.Getenv("INGEST_API_URL")
	sharedSecret := os.Getenv("INGEST_SHARED_SECRET")
	deadLetterQueueURL := os.Getenv("DEAD_LETTER_QUEUE_URL")

	// Initialize AWS config
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("FATAL: Failed to load AWS config", slog.String("error", err.Error()))
		panic(err)
	}

	store := rawstore.New(s3.NewFromConfig(cfg))

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	dispatcher := dispatch.NewClient(ingestURL, sharedSecret, httpClient, logger)

	var deadLetterPub DeadLetterPublisher
	if deadLetterQueueURL != "" {
		deadLetterPub = deadletter.New(sqs.NewFromConfig(cfg), deadLetterQueueURL)
	}

	h := newHandler(store, dispatcher, deadLetterPub)
	lambda.Start(otellambda.InstrumentHandler(h.handle, xrayconfig.WithRecommendedOptions(tp)...))
}
