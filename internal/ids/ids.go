// Package ids generates the opaque identifiers attached to dispatched
// payloads.
package ids

import "github.com/google/uuid"

// CorrelationID traces one dispatch attempt sequence across systems.
// All retries of the same logical email share one value.
type CorrelationID string

// NewCorrelationID returns a fresh correlation identifier.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

// NewMessageID synthesizes a message id for emails that arrive without
// one, so downstream idempotency always has a key to work with.
func NewMessageID() string {
	return "<" + uuid.New().String() + "@mail.chiphi.ai>"
}
