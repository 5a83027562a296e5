package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantCode   int
		wantStatus string
	}{
		{name: "all up", deps: map[string]Pinger{"mongodb": ok, "redis": ok, "s3": ok}, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "one down", deps: map[string]Pinger{"mongodb": ok, "redis": down, "s3": ok}, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			if err := NewHealthDependenciesHandler(tt.deps).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.wantStatus || len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("unexpected payload: %+v", resp)
			}
		})
	}
}
