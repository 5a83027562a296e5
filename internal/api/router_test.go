package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/api/handler"
	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// tokenAuth maps bearer tokens to principals; unknown tokens are rejected.
type tokenAuth struct {
	ports.AuthService
	principals map[string]*authz.Principal
}

func (a *tokenAuth) Authenticate(_ context.Context, token string) (*authz.Principal, error) {
	if p, ok := a.principals[token]; ok {
		return p, nil
	}
	return nil, domain.ErrUnauthenticated
}

func (a *tokenAuth) VerifyToken(_ context.Context, token string) ports.VerifyResult {
	p, ok := a.principals[token]
	if !ok {
		return ports.VerifyResult{}
	}
	return ports.VerifyResult{Valid: true, UserID: p.UserID()}
}

func newTestRouter(t *testing.T) (http.Handler, Dependencies) {
	t.Helper()
	auth := &tokenAuth{principals: map[string]*authz.Principal{
		"no-roles": {User: &domain.User{ID: "u1", IsActive: true, CompanyID: "c1"}},
		"inactive": {User: &domain.User{ID: "u2", IsActive: false, IsSuperuser: true}},
	}}
	auth.principals["team-lead"] = &authz.Principal{
		User:  &domain.User{ID: "u3", IsActive: true, CompanyID: "c1"},
		Roles: []*domain.Role{{
			ID: "r1", CompanyID: "c1", Scope: domain.ScopeTeam, IsActive: true,
			Permissions: []string{domain.PermUserView}, TeamIDs: []string{"x1"},
		}},
	}
	deps := Dependencies{
		Log:         zerolog.Nop(),
		AuthService: auth,
		Registerer:  prometheus.NewRegistry(),
		Auth:        handler.NewAuthHandler(auth),
		Users:       handler.NewUserHandler(nil),
		Teams:       handler.NewTeamHandler(nil),
		Roles:       handler.NewRoleHandler(nil),
		Companies:   handler.NewCompanyHandler(nil),
		Brands:      handler.NewBrandHandler(nil),
		AI:          handler.NewAIHandler(nil, nil),
		Tags:        handler.NewTagHandler(nil),
		Tickets:     handler.NewTicketHandler(nil, nil),
		Templates:   handler.NewTemplateHandler(nil),
		Admin:       handler.NewAdminHandler(nil, nil),
	}
	return NewRouter(deps), deps
}

func concretePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "x1"
		}
	}
	return strings.Join(parts, "/")
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	router, deps := newTestRouter(t)

	for _, r := range protectedRoutes(deps) {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := serve(router, r.method, concretePath(r.path), "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("expected WWW-Authenticate header")
			}
		})
	}
}

func TestProtectedRoutes_InactiveUserForbidden(t *testing.T) {
	router, deps := newTestRouter(t)

	for _, r := range protectedRoutes(deps) {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := serve(router, r.method, concretePath(r.path), "inactive")
			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
		})
	}
}

func TestProtectedRoutes_NoRolesForbidden(t *testing.T) {
	router, deps := newTestRouter(t)

	// Self-service routes only need an active principal.
	open := map[string]bool{
		"POST /auth/logout":          true,
		"POST /auth/logout-all":      true,
		"GET /auth/me":               true,
		"PUT /auth/me":               true,
		"POST /auth/change-password": true,
		"POST /auth/refresh-token":   true,
		"GET /auth/permissions":      true,
		"GET /roles":                 true,
		"GET /roles/templates":       true,
		"GET /roles/permissions":     true,
		"GET /roles/:id":             true,
		"GET /roles/:id/users":       true,
	}

	for _, r := range protectedRoutes(deps) {
		if open[r.method+" "+r.path] {
			continue
		}
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := serve(router, r.method, concretePath(r.path), "no-roles")
			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTeamRoutes_TeamScopedRoleReachesOwnTeam(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, tc := range []struct {
		method, path string
		allowed      bool
	}{
		{http.MethodPut, "/teams/x1", true},
		{http.MethodPost, "/teams/x1/members/u9", true},
		{http.MethodPut, "/teams/x2", false},
		{http.MethodDelete, "/teams/x1", false},
		{http.MethodPost, "/users", false},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := serve(router, tc.method, tc.path, "team-lead")
			if tc.allowed && (rec.Code == http.StatusForbidden || rec.Code == http.StatusUnauthorized) {
				t.Fatalf("expected the gate to pass, got %d", rec.Code)
			}
			if !tc.allowed && rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := serve(router, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health/ready with no dependencies, got %d", rec.Code)
	}
	// verify-token never requires authentication.
	rec := serve(router, http.MethodPost, "/auth/verify-token", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"valid":false`) {
		t.Fatalf("expected 200 valid=false, got %d %s", rec.Code, rec.Body.String())
	}
}
