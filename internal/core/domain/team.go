package domain

import (
	"errors"
	"time"
)

var (
	ErrTeamNotFound = errors.New("team not found")
	ErrTeamExists   = errors.New("team with this name already exists")
)

// Team groups the agents of one company, optionally under a brand. Roles of
// team scope reach the teams listed in their TeamIDs.
type Team struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	BrandID     string    `json:"brand_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LeadID      string    `json:"lead_id,omitempty"`
	MemberIDs   []string  `json:"member_ids"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

func (t *Team) TenantID() string { return t.CompanyID }

// HasMember reports whether userID is on the team.
func (t *Team) HasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// TeamUpdate holds the optional fields of a team edit. An empty LeadID
// clears the lead.
type TeamUpdate struct {
	Name        *string
	Description *string
	BrandID     *string
	LeadID      *string
	IsActive    *bool
}

func (u TeamUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.BrandID == nil &&
		u.LeadID == nil && u.IsActive == nil
}

// TeamFilter narrows team listings.
type TeamFilter struct {
	CompanyID string
	BrandID   string
	// MemberID keeps the teams userID belongs to.
	MemberID string
	Page     Page
}
