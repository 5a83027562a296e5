package ports

import (
	"context"
	"time"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// ExistsByEmailOrUsername ignores the user with excludeID when it is non-empty.
	ExistsByEmailOrUsername(ctx context.Context, email, username, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetCompany(ctx context.Context, id, companyID, actorID string) error
	// AddRole and RemoveRole report whether role_ids actually changed.
	AddRole(ctx context.Context, userID, roleID string) (bool, error)
	RemoveRole(ctx context.Context, userID, roleID string) (bool, error)
	ListByCompany(ctx context.Context, companyID string) ([]*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	// Update applies an administrator's edit and stamps updated_by.
	Update(ctx context.Context, id string, upd domain.UserUpdate, actorID string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, roleID string) (int64, error)
	CountSuperusers(ctx context.Context) (int64, error)
}
