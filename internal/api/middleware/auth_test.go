package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// stubAuthService only implements Authenticate; every other method is unused
// by the middleware.
type stubAuthService struct {
	ports.AuthService
	authenticateFn func(ctx context.Context, token string) (*authz.Principal, error)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*authz.Principal, error) {
	return s.authenticateFn(ctx, token)
}

func newContext(method, target, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func activePrincipal(id string, roles ...*domain.Role) *authz.Principal {
	return &authz.Principal{
		User:  &domain.User{ID: id, IsActive: true},
		Roles: roles,
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	want := activePrincipal("u1")
	stub := &stubAuthService{
		authenticateFn: func(ctx context.Context, token string) (*authz.Principal, error) {
			if token != "good-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return want, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/", "Bearer good-token")

	called := false
	handler := Authenticate(stub)(func(c echo.Context) error {
		called = true
		p, err := Principal(c)
		if err != nil || p != want {
			t.Fatalf("principal not set: %v", err)
		}
		if fromCtx, ok := authz.FromContext(c.Request().Context()); !ok || fromCtx != want {
			t.Fatalf("principal missing from request context")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	stub := &stubAuthService{
		authenticateFn: func(ctx context.Context, token string) (*authz.Principal, error) {
			t.Fatalf("service should not be called")
			return nil, nil
		},
	}
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
		c, _ := newContext(http.MethodGet, "/", header)
		err := Authenticate(stub)(func(echo.Context) error {
			t.Fatalf("should not reach next handler")
			return nil
		})(c)
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("header %q: expected ErrUnauthenticated, got %v", header, err)
		}
	}
}

func TestAuthenticate_PropagatesServiceErrors(t *testing.T) {
	inactive := domain.Deny(authz.GuardActive, "Inactive user")
	cases := map[string]error{
		"bad token": domain.ErrUnauthenticated,
		"inactive":  inactive,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubAuthService{
				authenticateFn: func(context.Context, string) (*authz.Principal, error) { return nil, want },
			}
			c, _ := newContext(http.MethodGet, "/", "Bearer x")
			err := Authenticate(stub)(func(echo.Context) error {
				t.Fatalf("should not reach next handler")
				return nil
			})(c)
			if !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
		})
	}
}

func TestPrincipal_Missing(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	if _, err := Principal(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "bearer abc.def")
	if got := BearerToken(c); got != "abc.def" {
		t.Fatalf("BearerToken = %q", got)
	}
}
