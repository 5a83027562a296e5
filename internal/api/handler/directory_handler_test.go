package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/core/service"
)

type stubUserService struct {
	userService
	listFn   func(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	createFn func(ctx context.Context, actor *authz.Principal, in service.UserInput) (*ports.UserWithRoles, error)
}

func (s *stubUserService) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	return s.listFn(ctx, filter)
}

func (s *stubUserService) Create(ctx context.Context, actor *authz.Principal, in service.UserInput) (*ports.UserWithRoles, error) {
	return s.createFn(ctx, actor, in)
}

func TestUserHandler_List_PinnedToOwnCompany(t *testing.T) {
	stub := &stubUserService{
		listFn: func(ctx context.Context, f domain.UserFilter) ([]*domain.User, int64, error) {
			if f.CompanyID != "c1" || f.IsActive == nil || *f.IsActive || f.Search != "ann" {
				t.Fatalf("unexpected filter %+v", f)
			}
			return []*domain.User{{ID: "u9", CompanyID: "c1", PasswordHash: "hash"}}, 1, nil
		},
	}
	c, rec := newJSONContext(http.MethodGet, "/users?is_active=false&search=ann", "")
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))

	if err := NewUserHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}

	c, _ = newJSONContext(http.MethodGet, "/users?company_id=c2", "")
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))
	if err := NewUserHandler(stub).List(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for another company, got %v", err)
	}
}

func TestUserHandler_Create(t *testing.T) {
	stub := &stubUserService{
		createFn: func(ctx context.Context, actor *authz.Principal, in service.UserInput) (*ports.UserWithRoles, error) {
			if in.CompanyID != "c1" || !in.IsActive || len(in.RoleIDs) != 1 {
				t.Fatalf("unexpected input %+v", in)
			}
			return &ports.UserWithRoles{User: &domain.User{ID: "u9", Email: in.Email, CompanyID: in.CompanyID}}, nil
		},
	}
	body := `{"email":"ann@c1.test","password":"longenough","full_name":"Ann","username":"ann","role_ids":["r1"]}`
	c, rec := newJSONContext(http.MethodPost, "/users", body)
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))

	if err := NewUserHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	c, _ = newJSONContext(http.MethodPost, "/users", `{"email":"not-an-email","password":"x","full_name":"A","username":"ann"}`)
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))
	var he *echo.HTTPError
	if err := NewUserHandler(stub).Create(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

type stubTeamService struct {
	teamService
	addFn func(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error)
}

func (s *stubTeamService) AddMember(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error) {
	return s.addFn(ctx, actor, id, userID)
}

func TestTeamHandler_AddMember(t *testing.T) {
	stub := &stubTeamService{
		addFn: func(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error) {
			if id != "t1" || userID != "u9" {
				t.Fatalf("unexpected args %q %q", id, userID)
			}
			return false, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/teams/t1/members/u9", "")
	c.SetParamNames("id", "user_id")
	c.SetParamValues("t1", "u9")
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))

	if err := NewTeamHandler(stub).AddMember(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "already a member") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

type stubProviderService struct {
	aiProviderService
	createFn func(ctx context.Context, actor *authz.Principal, in service.AIProviderInput) (*domain.AIProvider, error)
}

func (s *stubProviderService) Create(ctx context.Context, actor *authz.Principal, in service.AIProviderInput) (*domain.AIProvider, error) {
	return s.createFn(ctx, actor, in)
}

func TestAIHandler_CreateProvider_NeverEchoesKey(t *testing.T) {
	stub := &stubProviderService{
		createFn: func(ctx context.Context, actor *authz.Principal, in service.AIProviderInput) (*domain.AIProvider, error) {
			if in.APIKey != "sk-secret-value-1234" || in.ProviderType != domain.ProviderAnthropic {
				t.Fatalf("unexpected input %+v", in)
			}
			return &domain.AIProvider{
				ID: "p1", CompanyID: in.CompanyID, Name: in.Name, ProviderType: in.ProviderType,
				SealedKey: []byte("opaque"), KeyHint: "****1234",
			}, nil
		},
	}
	body := `{"name":"Claude","provider_type":"anthropic","api_key":"sk-secret-value-1234"}`
	c, rec := newJSONContext(http.MethodPost, "/ai-providers", body)
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))

	if err := NewAIHandler(stub, nil).CreateProvider(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["api_key_hint"] != "****1234" || strings.Contains(rec.Body.String(), "sk-secret") || strings.Contains(rec.Body.String(), "opaque") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAIHandler_CreateProvider_UnknownType(t *testing.T) {
	stub := &stubProviderService{
		createFn: func(ctx context.Context, actor *authz.Principal, in service.AIProviderInput) (*domain.AIProvider, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/ai-providers", `{"name":"Mystery","provider_type":"skynet"}`)
	withPrincipal(c, testPrincipal("u1", "c1", companyAdminRole))

	var he *echo.HTTPError
	if err := NewAIHandler(stub, nil).CreateProvider(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
