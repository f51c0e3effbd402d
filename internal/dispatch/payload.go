package dispatch

import (
	"time"

	"github.com/chiphi-ai/inbound/internal/mailparse"
)

// VerificationPayload carries a forwarding confirmation code to the
// verification endpoint. The endpoint stores it with a short expiry.
type VerificationPayload struct {
	Alias string `json:"alias"`
	Code  string `json:"code"`
}

// TransactionalPayload is the normalized email posted to the ingestion
// endpoint. It is built once per inbound event and reused verbatim
// across retries, so MessageID and RawRef are stable delivery keys.
type TransactionalPayload struct {
	Alias         string                 `json:"alias"`
	MessageID     string                 `json:"messageId"`
	To            string                 `json:"to"`
	From          string                 `json:"from"`
	Subject       string                 `json:"subject"`
	Text          *string                `json:"text"`
	HTML          *string                `json:"html"`
	RawRef        string                 `json:"rawRef"`
	ReceivedAt    time.Time              `json:"receivedAt"`
	CorrelationID string                 `json:"correlationId"`
	Attachments   []mailparse.Attachment `json:"attachments"`
}
