package domain

// Permission strings granted by roles. Permissions only ever add up across
// a user's roles; there is no deny form.
const (
	PermCompanyView   = "company:view"
	PermCompanyCreate = "company:create"
	PermCompanyUpdate = "company:update"
	PermCompanyDelete = "company:delete"

	PermBrandView   = "brand:view"
	PermBrandCreate = "brand:create"
	PermBrandUpdate = "brand:update"
	PermBrandDelete = "brand:delete"

	PermUserView       = "user:view"
	PermUserCreate     = "user:create"
	PermUserUpdate     = "user:update"
	PermUserDelete     = "user:delete"
	PermUserAssignRole = "user:assign_role"

	PermAgentView    = "agent:view"
	PermAgentCreate  = "agent:create"
	PermAgentUpdate  = "agent:update"
	PermAgentDelete  = "agent:delete"
	PermAgentExecute = "agent:execute"

	PermKnowledgeView   = "knowledge:view"
	PermKnowledgeCreate = "knowledge:create"
	PermKnowledgeUpdate = "knowledge:update"
	PermKnowledgeDelete = "knowledge:delete"

	PermLLMView   = "llm:view"
	PermLLMCreate = "llm:create"
	PermLLMUpdate = "llm:update"
	PermLLMDelete = "llm:delete"
	PermLLMTest   = "llm:test"

	PermMessageView   = "message:view"
	PermMessageCreate = "message:create"
	PermMessageUpdate = "message:update"
	PermMessageDelete = "message:delete"
	PermMessageAssign = "message:assign"

	PermAnalyticsView   = "analytics:view"
	PermAnalyticsExport = "analytics:export"

	PermSystemAdmin  = "system:admin"
	PermSystemConfig = "system:config"
	PermSystemAudit  = "system:audit"
)

// AllPermissions lists every known permission in declaration order.
var AllPermissions = []string{
	PermCompanyView, PermCompanyCreate, PermCompanyUpdate, PermCompanyDelete,
	PermBrandView, PermBrandCreate, PermBrandUpdate, PermBrandDelete,
	PermUserView, PermUserCreate, PermUserUpdate, PermUserDelete, PermUserAssignRole,
	PermAgentView, PermAgentCreate, PermAgentUpdate, PermAgentDelete, PermAgentExecute,
	PermKnowledgeView, PermKnowledgeCreate, PermKnowledgeUpdate, PermKnowledgeDelete,
	PermLLMView, PermLLMCreate, PermLLMUpdate, PermLLMDelete, PermLLMTest,
	PermMessageView, PermMessageCreate, PermMessageUpdate, PermMessageDelete, PermMessageAssign,
	PermAnalyticsView, PermAnalyticsExport,
	PermSystemAdmin, PermSystemConfig, PermSystemAudit,
}

// IsKnownPermission reports whether p is one of AllPermissions.
func IsKnownPermission(p string) bool {
	for _, known := range AllPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// RoleTemplate is the blueprint of a system role seeded at startup.
type RoleTemplate struct {
	Type        RoleType
	DisplayName string
	Scope       RoleScope
	Permissions []string
	Description string
}

// RoleTemplates are the platform-defined roles, in seeding order.
var RoleTemplates = []RoleTemplate{
	{
		Type:        RoleTypeSuperAdmin,
		DisplayName: "Super Administrator",
		Scope:       ScopeSystem,
		Permissions: AllPermissions,
		Description: "Full system access with all permissions",
	},
	{
		Type:        RoleTypeCompanyAdmin,
		DisplayName: "Company Administrator",
		Scope:       ScopeCompany,
		Permissions: []string{
			PermCompanyView, PermCompanyUpdate,
			PermBrandView, PermBrandCreate, PermBrandUpdate, PermBrandDelete,
			PermUserView, PermUserCreate, PermUserUpdate, PermUserDelete, PermUserAssignRole,
			PermAgentView, PermAgentCreate, PermAgentUpdate, PermAgentDelete,
			PermKnowledgeView, PermKnowledgeCreate, PermKnowledgeUpdate, PermKnowledgeDelete,
			PermLLMView, PermLLMCreate, PermLLMUpdate, PermLLMDelete,
			PermAnalyticsView, PermAnalyticsExport,
		},
		Description: "Full company access with administrative permissions",
	},
	{
		Type:        RoleTypeBrandAdmin,
		DisplayName: "Brand Administrator",
		Scope:       ScopeBrand,
		Permissions: []string{
			PermBrandView, PermBrandUpdate,
			PermUserView, PermUserCreate, PermUserUpdate,
			PermAgentView, PermAgentCreate, PermAgentUpdate,
			PermKnowledgeView, PermKnowledgeCreate, PermKnowledgeUpdate,
			PermMessageView, PermMessageAssign,
			PermAnalyticsView,
		},
		Description: "Brand-level administrative access",
	},
	{
		Type:        RoleTypeTeamLead,
		DisplayName: "Team Lead",
		Scope:       ScopeTeam,
		Permissions: []string{
			PermUserView, PermAgentView, PermAgentExecute,
			PermMessageView, PermMessageUpdate, PermMessageAssign,
			PermKnowledgeView, PermAnalyticsView,
		},
		Description: "Team supervision and management",
	},
	{
		Type:        RoleTypeAgent,
		DisplayName: "Customer Service Agent",
		Scope:       ScopeBrand,
		Permissions: []string{
			PermAgentView, PermAgentExecute,
			PermMessageView, PermMessageCreate, PermMessageUpdate,
			PermKnowledgeView,
		},
		Description: "Customer service operations",
	},
	{
		Type:        RoleTypeAnalyst,
		DisplayName: "Data Analyst",
		Scope:       ScopeCompany,
		Permissions: []string{
			PermBrandView, PermAgentView, PermMessageView,
			PermKnowledgeView, PermAnalyticsView, PermAnalyticsExport,
		},
		Description: "Analytics and reporting access",
	},
	{
		Type:        RoleTypeViewer,
		DisplayName: "Viewer",
		Scope:       ScopeCompany,
		Permissions: []string{
			PermBrandView, PermUserView, PermAgentView,
			PermMessageView, PermKnowledgeView,
		},
		Description: "Read-only access",
	},
}
