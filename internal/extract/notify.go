// Package extract hands stored emails to the downstream extraction
// pipeline.
package extract

import (
	"context"
	"log/slog"

	"github.com/chiphi-ai/inbound/internal/orgstore"
)

// Notifier receives each newly stored email exactly once. Redelivered
// duplicates are filtered out before notification.
type Notifier interface {
	EmailIngested(ctx context.Context, email *orgstore.InboundEmail) error
}

// LogNotifier records ingested emails on the log. It stands in until
// the extraction workers consume directly from the database.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// EmailIngested logs the stored email.
func (n *LogNotifier) EmailIngested(ctx context.Context, email *orgstore.InboundEmail) error {
	n.logger.InfoContext(ctx, "Email ready for extraction",
		slog.String("message_id", email.MessageID),
		slog.String("alias", email.Alias),
		slog.String("org_id", email.OrgID),
		slog.String("raw_ref", email.RawRef),
	)
	return nil
}
