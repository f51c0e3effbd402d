// Package ingest implements the ingestion operations behind the HTTP
// endpoints.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/chiphi-ai/inbound/internal/alias"
	"github.com/chiphi-ai/inbound/internal/extract"
	"github.com/chiphi-ai/inbound/internal/htmlstrip"
	"github.com/chiphi-ai/inbound/internal/orgstore"
)

var (
	// ErrInvalidAlias means the alias does not have the expected shape.
	ErrInvalidAlias = errors.New("invalid alias")
	// ErrUnknownAlias means no active organization owns the alias.
	ErrUnknownAlias = errors.New("unknown alias")
	// ErrInvalidCode means the verification code is not 6 or 7 digits.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrMissingMessageID means the email payload has no message id.
	ErrMissingMessageID = errors.New("missing message id")
)

var codePattern = regexp.MustCompile(`^\d{6,7}$`)

// AliasDirectory resolves aliases to their owning organization.
type AliasDirectory interface {
	ActiveAlias(ctx context.Context, alias string) (*orgstore.OrgAlias, error)
}

// EmailWriter persists inbound emails.
type EmailWriter interface {
	SaveInboundEmail(ctx context.Context, email *orgstore.InboundEmail) (created bool, err error)
}

// CodeWriter persists verification codes.
type CodeWriter interface {
	Save(ctx context.Context, alias, code string) error
}

// AttachmentInput describes one attachment of an inbound email.
type AttachmentInput struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// EmailInput is the normalized email submitted by the receiver.
type EmailInput struct {
	Alias         string            `json:"alias"`
	MessageID     string            `json:"messageId"`
	To            string            `json:"to"`
	From          string            `json:"from"`
	Subject       string            `json:"subject"`
	Text          *string           `json:"text"`
	HTML          *string           `json:"html"`
	RawRef        string            `json:"rawRef"`
	ReceivedAt    time.Time         `json:"receivedAt"`
	CorrelationID string            `json:"correlationId"`
	Attachments   []AttachmentInput `json:"attachments"`
}

// Service implements verification-code storage and email ingestion.
type Service struct {
	aliases  AliasDirectory
	emails   EmailWriter
	codes    CodeWriter
	notifier extract.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(aliases AliasDirectory, emails EmailWriter, codes CodeWriter, notifier extract.Notifier, logger *slog.Logger) *Service {
	return &Service{
		aliases:  aliases,
		emails:   emails,
		codes:    codes,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// StoreVerificationCode records the latest forwarding code for an
// alias. A newer code replaces the previous one.
func (s *Service) StoreVerificationCode(ctx context.Context, userAlias, code string) error {
	if !alias.Valid(userAlias) {
		return ErrInvalidAlias
	}
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}
	if _, err := s.aliases.ActiveAlias(ctx, userAlias); err != nil {
		if errors.Is(err, orgstore.ErrAliasNotFound) {
			return ErrUnknownAlias
		}
		return fmt.Errorf("resolve alias: %w", err)
	}

	if err := s.codes.Save(ctx, userAlias, code); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Verification code stored", slog.String("alias", userAlias))
	return nil
}

// IngestEmail persists one email under its owning organization. created
// is false when the MessageID was already ingested; duplicates are
// acknowledged without a second extraction hand-off.
func (s *Service) IngestEmail(ctx context.Context, in EmailInput) (created bool, err error) {
	if !alias.Valid(in.Alias) {
		return false, ErrInvalidAlias
	}
	if in.MessageID == "" {
		return false, ErrMissingMessageID
	}

	owner, err := s.aliases.ActiveAlias(ctx, in.Alias)
	if err != nil {
		if errors.Is(err, orgstore.ErrAliasNotFound) {
			return false, ErrUnknownAlias
		}
		return false, fmt.Errorf("resolve alias: %w", err)
	}

	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now().UTC()
	}

	textBody := in.Text
	if textBody == nil && in.HTML != nil {
		stripped := htmlstrip.Text(*in.HTML)
		textBody = &stripped
	}

	email := &orgstore.InboundEmail{
		MessageID:       in.MessageID,
		Alias:           in.Alias,
		OrgID:           owner.OrgID,
		FromAddress:     in.From,
		ToAddress:       in.To,
		Subject:         in.Subject,
		TextBody:        textBody,
		HTMLBody:        in.HTML,
		RawRef:          in.RawRef,
		CorrelationID:   in.CorrelationID,
		AttachmentCount: len(in.Attachments),
		ReceivedAt:      receivedAt,
	}

	created, err = s.emails.SaveInboundEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if !created {
		s.logger.InfoContext(ctx, "Duplicate email acknowledged",
			slog.String("message_id", in.MessageID),
			slog.String("correlation_id", in.CorrelationID),
		)
		return false, nil
	}

	if err := s.notifier.EmailIngested(ctx, email); err != nil {
		// The email is stored; extraction catches up on its own.
		s.logger.ErrorContext(ctx, "Failed to notify extraction",
			slog.String("message_id", in.MessageID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "Email ingested",
		slog.String("message_id", in.MessageID),
		slog.String("alias", in.Alias),
		slog.String("org_id", owner.OrgID),
		slog.String("correlation_id", in.CorrelationID),
	)
	return true, nil
}
