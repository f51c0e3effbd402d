package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ingestion outcomes.
type Metrics struct {
	EmailsIngested    prometheus.Counter
	EmailsDuplicate   prometheus.Counter
	EmailsRejected    *prometheus.CounterVec
	CodesStored       prometheus.Counter
	RequestsUnauthed  prometheus.Counter
}

// NewMetrics registers the ingestion metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		EmailsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chiphi_inbound_emails_ingested_total",
			Help: "Emails stored for extraction",
		}),
		EmailsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chiphi_inbound_emails_duplicate_total",
			Help: "Redelivered emails acknowledged without a new row",
		}),
		EmailsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chiphi_inbound_emails_rejected_total",
			Help: "Emails rejected before storage",
		}, []string{"reason"}),
		CodesStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chiphi_inbound_verification_codes_total",
			Help: "Verification codes stored",
		}),
		RequestsUnauthed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chiphi_inbound_unauthorized_requests_total",
			Help: "Requests rejected by the shared-secret check",
		}),
	}
}
