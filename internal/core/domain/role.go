package domain

import (
	"errors"
	"fmt"
	"time"
)

// RoleType identifies a predefined role family.
type RoleType string

const (
	RoleTypeSuperAdmin   RoleType = "super_admin"
	RoleTypeCompanyAdmin RoleType = "company_admin"
	RoleTypeBrandAdmin   RoleType = "brand_admin"
	RoleTypeTeamLead     RoleType = "team_lead"
	RoleTypeAgent        RoleType = "agent"
	RoleTypeAnalyst      RoleType = "analyst"
	RoleTypeViewer       RoleType = "viewer"
	RoleTypeCustom       RoleType = "custom"
)

// RoleScope is the breadth of a role's authority.
type RoleScope string

const (
	ScopeSystem  RoleScope = "system"
	ScopeCompany RoleScope = "company"
	ScopeBrand   RoleScope = "brand"
	ScopeTeam    RoleScope = "team"
)

var (
	ErrRoleNotFound = errors.New("role not found")
	ErrRoleExists   = errors.New("role with this name already exists in the company")
	ErrSystemRole   = errors.New("system roles cannot be deleted")
)

// RoleInUseError is returned when deleting a role that is still assigned.
type RoleInUseError struct {
	Count int64
}

func (e *RoleInUseError) Error() string {
	return fmt.Sprintf("cannot delete role: %d users are assigned to this role", e.Count)
}

// RoleUserLimitError is returned when a role already has max_users holders.
type RoleUserLimitError struct {
	Max int
}

func (e *RoleUserLimitError) Error() string {
	return fmt.Sprintf("role has reached maximum user limit (%d)", e.Max)
}

// Role groups permissions and a scope.
type Role struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id,omitempty"`
	Name           string         `json:"name"`
	DisplayName    string         `json:"display_name"`
	RoleType       RoleType       `json:"role_type"`
	Scope          RoleScope      `json:"scope"`
	Permissions    []string       `json:"permissions"`
	BrandIDs       []string       `json:"brand_ids,omitempty"`
	TeamIDs        []string       `json:"team_ids,omitempty"`
	IsSystemRole   bool           `json:"is_system_role"`
	IsActive       bool           `json:"is_active"`
	CanBeDelegated bool           `json:"can_be_delegated"`
	MaxUsers       *int           `json:"max_users,omitempty"`
	Description    string         `json:"description,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CreatedBy      string         `json:"created_by,omitempty"`
	UpdatedBy      string         `json:"updated_by,omitempty"`
}

// CoversBrand reports whether a brand-scoped role lists brandID.
func (r *Role) CoversBrand(brandID string) bool {
	for _, id := range r.BrandIDs {
		if id == brandID {
			return true
		}
	}
	return false
}

// CoversTeam reports whether a team-scoped role lists teamID.
func (r *Role) CoversTeam(teamID string) bool {
	for _, id := range r.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// RoleUpdate holds the optional fields of a role edit. System roles only
// accept IsActive, Description and Metadata.
type RoleUpdate struct {
	DisplayName    *string
	Permissions    *[]string
	BrandIDs       *[]string
	TeamIDs        *[]string
	IsActive       *bool
	CanBeDelegated *bool
	MaxUsers       *int
	Description    *string
	Metadata       map[string]any
}

// RestrictToSystemFields drops every field a system role may not change.
func (u RoleUpdate) RestrictToSystemFields() RoleUpdate {
	return RoleUpdate{
		IsActive:    u.IsActive,
		Description: u.Description,
		Metadata:    u.Metadata,
	}
}

// Empty reports whether the update carries no field.
func (u RoleUpdate) Empty() bool {
	return u.DisplayName == nil && u.Permissions == nil && u.BrandIDs == nil &&
		u.TeamIDs == nil && u.IsActive == nil && u.CanBeDelegated == nil &&
		u.MaxUsers == nil && u.Description == nil && u.Metadata == nil
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	CompanyID string // includes system-level roles (company_id unset)
	Scope     string
	IsActive  *bool
	Page      int
	PageSize  int
}
