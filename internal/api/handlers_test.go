package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"

	"github.com/chiphi-ai/inbound/internal/ingest"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockIngestService struct {
	storeCodeFunc func(ctx context.Context, alias, code string) error
	ingestFunc    func(ctx context.Context, in ingest.EmailInput) (bool, error)
}

func (m *mockIngestService) StoreVerificationCode(ctx context.Context, alias, code string) error {
	if m.storeCodeFunc != nil {
		return m.storeCodeFunc(ctx, alias, code)
	}
	return nil
}

func (m *mockIngestService) IngestEmail(ctx context.Context, in ingest.EmailInput) (bool, error) {
	if m.ingestFunc != nil {
		return m.ingestFunc(ctx, in)
	}
	return true, nil
}

const testSecret = "test-shared-secret"

var sharedMetrics *Metrics

// Prometheus collectors register globally, so one Metrics instance is
// shared across tests.
func testMetrics() *Metrics {
	if sharedMetrics == nil {
		sharedMetrics = NewMetrics()
	}
	return sharedMetrics
}

func newTestRouter(service *mockIngestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers := NewHandlers(service, testMetrics(), testLogger)
	return NewRouter(handlers, healthcheck.NewHandler(), testSecret, testMetrics(), testLogger)
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, secret string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Shared-Secret", secret)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPostVerification_Success(t *testing.T) {
	var gotAlias, gotCode string
	service := &mockIngestService{
		storeCodeFunc: func(ctx context.Context, alias, code string) error {
			gotAlias, gotCode = alias, code
			return nil
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/verification",
		map[string]string{"alias": "u_acme", "code": "654321"}, testSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if gotAlias != "u_acme" || gotCode != "654321" {
		t.Errorf("service called with (%q, %q)", gotAlias, gotCode)
	}
}

func TestPostVerification_InvalidInput(t *testing.T) {
	service := &mockIngestService{
		storeCodeFunc: func(ctx context.Context, alias, code string) error {
			return ingest.ErrInvalidCode
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/verification",
		map[string]string{"alias": "u_acme", "code": "12"}, testSecret)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostVerification_UnknownAlias(t *testing.T) {
	service := &mockIngestService{
		storeCodeFunc: func(ctx context.Context, alias, code string) error {
			return ingest.ErrUnknownAlias
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/verification",
		map[string]string{"alias": "u_ghost", "code": "654321"}, testSecret)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPostVerification_ServiceError(t *testing.T) {
	service := &mockIngestService{
		storeCodeFunc: func(ctx context.Context, alias, code string) error {
			return errors.New("redis down")
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/verification",
		map[string]string{"alias": "u_acme", "code": "654321"}, testSecret)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestPostEmail_Created(t *testing.T) {
	var got ingest.EmailInput
	service := &mockIngestService{
		ingestFunc: func(ctx context.Context, in ingest.EmailInput) (bool, error) {
			got = in
			return true, nil
		},
	}
	router := newTestRouter(service)

	payload := map[string]any{
		"alias":         "u_acme",
		"messageId":     "<abc@amazon.com>",
		"from":          "order-update@amazon.com",
		"subject":       "Your order",
		"text":          "Order total: $42.00",
		"rawRef":        "chiphi-raw-emails/inbound/msg1.eml",
		"correlationId": "corr-1",
	}
	w := doRequest(t, router, http.MethodPost, "/inbound/email", payload, testSecret)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	if got.Alias != "u_acme" || got.MessageID != "<abc@amazon.com>" {
		t.Errorf("service called with %+v", got)
	}
	if got.Text == nil || *got.Text != "Order total: $42.00" {
		t.Errorf("Text = %v", got.Text)
	}
}

func TestPostEmail_DuplicateReturns200(t *testing.T) {
	service := &mockIngestService{
		ingestFunc: func(ctx context.Context, in ingest.EmailInput) (bool, error) {
			return false, nil
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/email",
		map[string]any{"alias": "u_acme", "messageId": "<abc@amazon.com>"}, testSecret)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for duplicate", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "duplicate" {
		t.Errorf("status field = %q, want duplicate", body["status"])
	}
}

func TestPostEmail_UnknownAliasReturns404(t *testing.T) {
	service := &mockIngestService{
		ingestFunc: func(ctx context.Context, in ingest.EmailInput) (bool, error) {
			return false, ingest.ErrUnknownAlias
		},
	}
	router := newTestRouter(service)

	w := doRequest(t, router, http.MethodPost, "/inbound/email",
		map[string]any{"alias": "u_ghost", "messageId": "<x@y>"}, testSecret)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPostEmail_MalformedJSON(t *testing.T) {
	router := newTestRouter(&mockIngestService{})

	req := httptest.NewRequest(http.MethodPost, "/inbound/email", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shared-Secret", testSecret)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSharedSecret_MissingOrWrong(t *testing.T) {
	called := false
	service := &mockIngestService{
		ingestFunc: func(ctx context.Context, in ingest.EmailInput) (bool, error) {
			called = true
			return true, nil
		},
	}
	router := newTestRouter(service)

	for _, secret := range []string{"", "wrong-secret"} {
		w := doRequest(t, router, http.MethodPost, "/inbound/email",
			map[string]any{"alias": "u_acme", "messageId": "<x@y>"}, secret)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("secret %q: status = %d, want 401", secret, w.Code)
		}
	}
	if called {
		t.Error("handler reached without a valid shared secret")
	}
}

func TestProbesBypassSharedSecret(t *testing.T) {
	router := newTestRouter(&mockIngestService{})

	for _, path := range []string{"/live", "/ready"} {
		w := doRequest(t, router, http.MethodGet, path, nil, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}
}
