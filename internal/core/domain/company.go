package domain

import (
	"errors"
	"fmt"
	"time"
)

type CompanyPlan string

const (
	PlanStarter      CompanyPlan = "starter"
	PlanProfessional CompanyPlan = "professional"
	PlanEnterprise   CompanyPlan = "enterprise"
	PlanCustom       CompanyPlan = "custom"
)

type CompanyStatus string

const (
	CompanyActive    CompanyStatus = "active"
	CompanySuspended CompanyStatus = "suspended"
	CompanyTrial     CompanyStatus = "trial"
	CompanyExpired   CompanyStatus = "expired"
)

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrCompanyHasBrands = errors.New("company still owns brands")
	ErrUnknownResource  = errors.New("unknown resource type")
)

// ResourceType enumerates the per-company quotas.
type ResourceType string

const (
	ResourceBrands         ResourceType = "brands"
	ResourceAgents         ResourceType = "agents"
	ResourceUsers          ResourceType = "users"
	ResourceKnowledgeItems ResourceType = "knowledge_items"
)

// ParseResourceType validates a resource type name.
func ParseResourceType(s string) (ResourceType, error) {
	switch r := ResourceType(s); r {
	case ResourceBrands, ResourceAgents, ResourceUsers, ResourceKnowledgeItems:
		return r, nil
	}
	return "", ErrUnknownResource
}

// CompanySettings holds the plan limits of a company.
type CompanySettings struct {
	MaxBrands             int `json:"max_brands"`
	MaxAgents             int `json:"max_agents"`
	MaxUsers              int `json:"max_users"`
	MaxKnowledgeBaseItems int `json:"max_knowledge_base_items"`
	StorageQuotaGB        int `json:"storage_quota_gb"`
	APIRateLimit          int `json:"api_rate_limit"`
}

// DefaultCompanySettings mirrors the starter plan.
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		MaxBrands:             5,
		MaxAgents:             10,
		MaxUsers:              20,
		MaxKnowledgeBaseItems: 1000,
		StorageQuotaGB:        10,
		APIRateLimit:          1000,
	}
}

// Limit returns the configured maximum for resource.
func (s CompanySettings) Limit(resource ResourceType) int {
	switch resource {
	case ResourceBrands:
		return s.MaxBrands
	case ResourceAgents:
		return s.MaxAgents
	case ResourceUsers:
		return s.MaxUsers
	case ResourceKnowledgeItems:
		return s.MaxKnowledgeBaseItems
	}
	return 0
}

// Company is a tenant.
type Company struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Domain       string          `json:"domain,omitempty"`
	Industry     string          `json:"industry,omitempty"`
	ContactEmail string          `json:"contact_email"`
	Plan         CompanyPlan     `json:"plan"`
	Status       CompanyStatus   `json:"status"`
	Settings     CompanySettings `json:"settings"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CreatedBy    string          `json:"created_by,omitempty"`
}

// CompanyUpdate holds the optional fields of a company edit.
type CompanyUpdate struct {
	Name         *string
	Domain       *string
	Industry     *string
	ContactEmail *string
	Plan         *CompanyPlan
	Status       *CompanyStatus
	Settings     *CompanySettings
	Description  *string
}

// LimitStatus is the outcome of a quota check.
type LimitStatus struct {
	Resource ResourceType `json:"resource_type"`
	AtLimit  bool         `json:"at_limit"`
	Current  int64        `json:"current"`
	Max      int          `json:"max"`
}

// QuotaExceededError is returned when a creation would pass a company limit.
type QuotaExceededError struct {
	Resource ResourceType
	Current  int64
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s limit reached (%d)", e.Resource, e.Limit)
}
