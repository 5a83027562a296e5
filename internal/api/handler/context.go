package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/api/middleware"
	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

// principal returns the caller injected by the Authenticate middleware.
// Handlers mounted behind the gate always have one; a missing principal
// means the route was wired without authentication and is rejected.
func principal(c echo.Context) (*authz.Principal, error) {
	return middleware.Principal(c)
}

// bind decodes the body into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// pageParams reads ?page and ?page_size, falling back to the defaults.
func pageParams(c echo.Context) domain.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return domain.Page{Page: page, PageSize: size}.Normalize()
}

// boolParam parses an optional boolean query parameter.
func boolParam(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a boolean")
	}
	return &v, nil
}

// pageResponse is the common envelope of paginated listings.
type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newPage[T any](items []T, total int64, page domain.Page) pageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return pageResponse[T]{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: domain.TotalPages(total, page.PageSize),
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func message(c echo.Context, code int, msg string) error {
	return c.JSON(code, messageResponse{Message: msg})
}

// tenantScope resolves the company a listing or creation applies to.
// Platform admins may name any company (or none, meaning all); everyone
// else is pinned to their own company and denied when asking for another.
func tenantScope(p *authz.Principal, requested string) (string, error) {
	if authz.RequireSuperAdmin(p) == nil {
		return requested, nil
	}
	own := ""
	if p != nil && p.User != nil {
		own = p.User.CompanyID
	}
	if own == "" {
		return "", domain.Deny(authz.GuardCompanyMatch, "User is not assigned to a company")
	}
	if requested == "" || requested == own {
		return own, nil
	}
	return "", domain.Deny(authz.GuardCompanyMatch, "No access to company "+requested)
}
