package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/metrics"
)

// Rule decides whether the principal may run the request. It may read path
// parameters; it never touches storage.
type Rule func(c echo.Context, p *authz.Principal) error

// Gate enforces rule on top of Authenticate. Inactive principals are always
// rejected. A nil rule panics at wiring time so a route cannot be registered
// ungated by accident.
func Gate(rule Rule) echo.MiddlewareFunc {
	if rule == nil {
		panic("middleware: Gate requires a rule")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := Principal(c)
			if err != nil {
				return err
			}
			if err := authz.RequireActive(p); err != nil {
				return deny(err)
			}
			if err := rule(c, p); err != nil {
				return deny(err)
			}
			return next(c)
		}
	}
}

func deny(err error) error {
	var d *domain.Denial
	if errors.As(err, &d) {
		metrics.AuthzDenialsTotal.WithLabelValues(d.Guard).Inc()
	}
	return err
}

// Allow adapts a static guard.
func Allow(g authz.Guard) Rule {
	return func(_ echo.Context, p *authz.Principal) error {
		return g(p)
	}
}

// Authenticated allows any active principal. Used for self-service routes.
func Authenticated() Rule {
	return func(echo.Context, *authz.Principal) error { return nil }
}

func Admin() Rule      { return Allow(authz.RequireAdmin) }
func SuperAdmin() Rule { return Allow(authz.RequireSuperAdmin) }

func Permission(permission string) Rule {
	return Allow(authz.RequirePermission(permission))
}

// CompanyParam requires a company match against the named path parameter.
func CompanyParam(name string) Rule {
	return func(c echo.Context, p *authz.Principal) error {
		return authz.RequireCompanyMatch(c.Param(name))(p)
	}
}

// BrandParam requires access to the brand in the named path parameter.
func BrandParam(name string) Rule {
	return func(c echo.Context, p *authz.Principal) error {
		return authz.RequireBrandAccess(c.Param(name))(p)
	}
}

// TeamParam requires access to the team in the named path parameter.
func TeamParam(name string) Rule {
	return func(c echo.Context, p *authz.Principal) error {
		return authz.RequireTeamAccess(c.Param(name))(p)
	}
}

// All allows only when every rule allows.
func All(rules ...Rule) Rule {
	return func(c echo.Context, p *authz.Principal) error {
		for _, r := range rules {
			if err := r(c, p); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any allows when one rule allows, otherwise returns the first denial.
func Any(rules ...Rule) Rule {
	return func(c echo.Context, p *authz.Principal) error {
		var first error
		for _, r := range rules {
			err := r(c, p)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		if first == nil {
			return domain.Deny("any_of", "access forbidden")
		}
		return first
	}
}
