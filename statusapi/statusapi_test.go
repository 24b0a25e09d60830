package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kocayinsec/network-automation-sender/dispatch"
	"github.com/kocayinsec/network-automation-sender/model"
	"github.com/kocayinsec/network-automation-sender/transport"
)

type nopTransport struct{}

func (nopTransport) Send(ctx context.Context, descriptor *model.RequestDescriptor, deadline time.Time) transport.Outcome {
	return transport.Outcome{StatusCode: 200}
}

func newTestCoordinator(t *testing.T) *dispatch.Coordinator {
	t.Helper()
	cfg := dispatch.DefaultConfig()
	cfg.MaxConcurrentRequests = 1
	c, err := dispatch.New(cfg, dispatch.WithTransport(nopTransport{}))
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	return c
}

func TestStatusEndpointReturnsSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCoordinator(t)
	engine := New(c)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var view statusView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Workers != 1 {
		t.Errorf("Workers = %d, want 1", view.Workers)
	}
}

func TestHealthzReportsHealthyByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCoordinator(t)
	engine := New(c)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
}

func TestMetricsEndpointServesPrometheusExposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestCoordinator(t)
	engine := New(c)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected non-empty metrics body")
	}
}
