package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/domain"
)

func TestLoginLimiter_PerKeyBurst(t *testing.T) {
	l := NewLoginLimiter(1, 2)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst should allow two attempts")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("third attempt should be throttled")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("other clients keep their own bucket")
	}
}

func TestLoginLimiter_Middleware(t *testing.T) {
	l := NewLoginLimiter(1, 1)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c, rec := newContext(http.MethodPost, "/auth/login", "")
	c.Request().RemoteAddr = "192.0.2.7:5000"
	if err := l.Middleware()(next)(c); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodPost, "/auth/login", "")
	c.Request().RemoteAddr = "192.0.2.7:5001"
	err := l.Middleware()(next)(c)
	if !errors.Is(err, domain.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
}
