package ports

import (
	"context"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// RoleRepository persists role documents.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) (*domain.Role, error)
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	// FindByIDs returns the roles that exist among ids; malformed or unknown
	// ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error)
	FindSystemByType(ctx context.Context, roleType domain.RoleType) (*domain.Role, error)
	List(ctx context.Context, filter domain.RoleFilter) ([]*domain.Role, int64, error)
	Update(ctx context.Context, id string, upd domain.RoleUpdate, actorID string) (*domain.Role, error)
	Delete(ctx context.Context, id string) error
	// EnsureSystemRole inserts role unless a system role of the same type exists.
	EnsureSystemRole(ctx context.Context, role *domain.Role) (created bool, err error)
}
