package domain

import (
	"errors"
	"time"
)

var (
	ErrBrandNotFound    = errors.New("brand not found")
	ErrTagNotFound      = errors.New("tag not found")
	ErrTagExists        = errors.New("tag with this name already exists")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrTemplateNotFound = errors.New("template not found")

	ErrInvalidTransition = errors.New("invalid status transition")
)

// Brand is a customer-facing brand owned by a company.
type Brand struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Tag labels conversations and tickets.
type Tag struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Color       string    `json:"color"`
	Enabled     bool      `json:"enabled"`
	UsageCount  int64     `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// ticketTransitions lists the statuses reachable from each state.
// A closed ticket can only be reopened.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress, TicketResolved, TicketClosed},
	TicketInProgress: {TicketOpen, TicketResolved, TicketClosed},
	TicketResolved:   {TicketInProgress, TicketClosed, TicketOpen},
	TicketClosed:     {TicketOpen},
}

// CanTransitionTo reports whether a ticket may move from s to next.
// Staying in the same status is always allowed.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TicketHistoryEntry records one change on a ticket.
type TicketHistoryEntry struct {
	Action string       `json:"action"`
	Status TicketStatus `json:"status,omitempty"`
	At     time.Time    `json:"timestamp"`
	By     string       `json:"user,omitempty"`
}

// Ticket is a support case. IDs look like TKT-001.
type Ticket struct {
	ID            string               `json:"id"`
	CompanyID     string               `json:"company_id,omitempty"`
	Subject       string               `json:"subject"`
	Description   string               `json:"description"`
	Status        TicketStatus         `json:"status"`
	Priority      string               `json:"priority"`
	CustomerEmail string               `json:"customer_email,omitempty"`
	AssigneeID    string               `json:"assignee_id,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	History       []TicketHistoryEntry `json:"history"`
	CreatedBy     string               `json:"created_by,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TicketUpdate holds the optional fields of a ticket edit.
type TicketUpdate struct {
	Subject     *string
	Description *string
	Status      *TicketStatus
	Priority    *string
	AssigneeID  *string
	Tags        *[]string

	// History is appended to the ticket's history when set.
	History *TicketHistoryEntry
}

// Feedback is a customer rating. IDs look like fb001.
type Feedback struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id,omitempty"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Template describes a report template whose body lives in object storage.
type Template struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ContentKey  string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TenantID returns the owning company; empty for shared resources.
func (b *Brand) TenantID() string    { return b.CompanyID }
func (t *Tag) TenantID() string      { return t.CompanyID }
func (t *Ticket) TenantID() string   { return t.CompanyID }
func (f *Feedback) TenantID() string { return f.CompanyID }
func (t *Template) TenantID() string { return t.CompanyID }

// AuditEvent records a privileged mutation.
type AuditEvent struct {
	ActorID  string            `json:"actor_id"`
	Action   string            `json:"action"`
	Target   string            `json:"target"`
	At       time.Time         `json:"at"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Page is the common pagination request.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps page to >= 1 and page size to [1, 100] (default 20).
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.PageSize)
}

// TotalPages rounds total/pageSize up.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// BrandUpdate holds the optional fields of a brand edit.
type BrandUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// TagUpdate holds the optional fields of a tag edit.
type TagUpdate struct {
	Name        *string
	Description *string
	Category    *string
	Color       *string
	Enabled     *bool
}
