package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with this email or username already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrWrongPassword      = errors.New("incorrect current password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrSuperAdminExists   = errors.New("super admin already exists")
	ErrInvalidID          = errors.New("invalid id format")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrTooManyRequests    = errors.New("too many requests")
)

// User models an authenticated actor in the system.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
	RoleIDs      []string   `json:"role_ids"`
	CompanyID    string     `json:"company_id,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CreatedBy    string     `json:"created_by,omitempty"`
	UpdatedBy    string     `json:"updated_by,omitempty"`
}

// HasRole reports whether roleID is among the user's role assignments.
func (u *User) HasRole(roleID string) bool {
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// TenantID returns the user's company; empty for platform accounts.
func (u *User) TenantID() string { return u.CompanyID }

// ProfileUpdate carries the optional fields a user may change on their own profile.
type ProfileUpdate struct {
	FullName *string
	Username *string
	Email    *string
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Username == nil && p.Email == nil
}

// UserFilter narrows user listings. Zero fields match everything.
type UserFilter struct {
	CompanyID string
	RoleID    string
	IsActive  *bool
	// Search matches email, username or full name, case-insensitively.
	Search string
	Page   Page
}

// UserUpdate holds the fields an administrator may change on another user.
type UserUpdate struct {
	FullName *string
	Username *string
	Email    *string
	IsActive *bool
}

// Empty reports whether no field is set.
func (u UserUpdate) Empty() bool {
	return u.FullName == nil && u.Username == nil && u.Email == nil && u.IsActive == nil
}
