package service

import (
	"context"

	"github.com/conversia/admin-platform/internal/core/authz"
)

// tenantOwned is a resource that belongs to one company.
type tenantOwned interface {
	TenantID() string
}

// loadOwned fetches id with find and denies actor unless the resource
// belongs to the actor's company. Platform admins reach every company.
func loadOwned[T tenantOwned](ctx context.Context, actor *authz.Principal, id string, find func(context.Context, string) (T, error)) (T, error) {
	var zero T
	v, err := find(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := authz.RequireTenant(v.TenantID())(actor); err != nil {
		return zero, err
	}
	return v, nil
}
