package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chiphi-ai/inbound/internal/ingest"
)

// IngestService defines the operations the handlers expose.
type IngestService interface {
	StoreVerificationCode(ctx context.Context, alias, code string) error
	IngestEmail(ctx context.Context, in ingest.EmailInput) (created bool, err error)
}

// Handlers holds the HTTP handlers for the ingestion endpoints.
type Handlers struct {
	service IngestService
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(service IngestService, metrics *Metrics, logger *slog.Logger) *Handlers {
	return &Handlers{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

type verificationRequest struct {
	Alias string `json:"alias"`
	Code  string `json:"code"`
}

// postVerification stores a forwarding verification code.
func (h *Handlers) postVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.service.StoreVerificationCode(c.Request.Context(), req.Alias, req.Code)
	switch {
	case err == nil:
		h.metrics.CodesStored.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "stored"})
	case errors.Is(err, ingest.ErrInvalidAlias), errors.Is(err, ingest.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrUnknownAlias):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "Failed to store verification code",
			slog.String("alias", req.Alias),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// postEmail ingests a normalized email.
func (h *Handlers) postEmail(c *gin.Context) {
	var in ingest.EmailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.service.IngestEmail(c.Request.Context(), in)
	switch {
	case err == nil && created:
		h.metrics.EmailsIngested.Inc()
		c.JSON(http.StatusCreated, gin.H{"status": "ingested"})
	case err == nil:
		h.metrics.EmailsDuplicate.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	case errors.Is(err, ingest.ErrInvalidAlias), errors.Is(err, ingest.ErrMissingMessageID):
		h.metrics.EmailsRejected.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ingest.ErrUnknownAlias):
		h.metrics.EmailsRejected.WithLabelValues("unknown_alias").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.ErrorContext(c.Request.Context(), "Failed to ingest email",
			slog.String("message_id", in.MessageID),
			slog.String("correlation_id", in.CorrelationID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
