package service

import (
	"context"
	"strings"
	"time"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// TeamService manages agent teams. Company admins manage every team of their
// company; team-scoped roles manage the teams they list.
type TeamService struct {
	teams     ports.TeamRepository
	users     ports.UserRepository
	brands    ports.BrandRepository
	companies *CompanyService
	audit     ports.Auditor
}

func NewTeamService(teams ports.TeamRepository, users ports.UserRepository, brands ports.BrandRepository, companies *CompanyService, audit ports.Auditor) *TeamService {
	return &TeamService{teams: teams, users: users, brands: brands, companies: companies, audit: audit}
}

// Create adds a team to t.CompanyID. The lead, when set, joins as a member.
func (s *TeamService) Create(ctx context.Context, actor *authz.Principal, t *domain.Team) (*domain.Team, error) {
	if err := authz.RequireTenant(t.CompanyID)(actor); err != nil {
		return nil, err
	}
	if _, err := s.companies.Get(ctx, t.CompanyID); err != nil {
		return nil, err
	}
	if err := s.checkBrand(ctx, t.CompanyID, t.BrandID); err != nil {
		return nil, err
	}
	if t.LeadID != "" {
		if err := s.checkMember(ctx, t.CompanyID, t.LeadID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t.ID = ""
	t.Name = strings.TrimSpace(t.Name)
	t.MemberIDs = nil
	if t.LeadID != "" {
		t.MemberIDs = []string{t.LeadID}
	}
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now
	t.CreatedBy = actor.UserID()

	created, err := s.teams.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "team.create", created.ID, "company_id", t.CompanyID)
	return created, nil
}

// Get returns team id to users of its company.
func (s *TeamService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Team, error) {
	return loadOwned(ctx, actor, id, s.teams.FindByID)
}

func (s *TeamService) List(ctx context.Context, filter domain.TeamFilter) ([]*domain.Team, int64, error) {
	filter.Page = filter.Page.Normalize()
	return s.teams.List(ctx, filter)
}

func (s *TeamService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TeamUpdate) (*domain.Team, error) {
	if upd.Empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	t, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if upd.BrandID != nil {
		if err := s.checkBrand(ctx, t.CompanyID, *upd.BrandID); err != nil {
			return nil, err
		}
	}
	if upd.LeadID != nil && *upd.LeadID != "" {
		if err := s.checkMember(ctx, t.CompanyID, *upd.LeadID); err != nil {
			return nil, err
		}
		if _, err := s.teams.AddMember(ctx, id, *upd.LeadID); err != nil {
			return nil, err
		}
	}

	updated, err := s.teams.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "team.update", id)
	return updated, nil
}

func (s *TeamService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "team.delete", id)
	return nil
}

// AddMember puts userID on team id. Members must belong to the team's
// company.
func (s *TeamService) AddMember(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error) {
	t, err := s.manageable(ctx, actor, id)
	if err != nil {
		return false, err
	}
	if err := s.checkMember(ctx, t.CompanyID, userID); err != nil {
		return false, err
	}
	changed, err := s.teams.AddMember(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if changed {
		recordAudit(s.audit, actor, "team.add_member", id, "user_id", userID)
	}
	return changed, nil
}

// RemoveMember takes userID off team id. Removing the lead clears the lead.
func (s *TeamService) RemoveMember(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error) {
	t, err := s.manageable(ctx, actor, id)
	if err != nil {
		return false, err
	}
	changed, err := s.teams.RemoveMember(ctx, id, userID)
	if err != nil {
		return false, err
	}
	if t.LeadID == userID {
		none := ""
		if _, err := s.teams.Update(ctx, id, domain.TeamUpdate{LeadID: &none}); err != nil {
			return false, err
		}
	}
	if changed {
		recordAudit(s.audit, actor, "team.remove_member", id, "user_id", userID)
	}
	return changed, nil
}

// manageable loads team id for a change by actor: admin rights over the
// team's company, or a role of that company covering the team or its brand.
func (s *TeamService) manageable(ctx context.Context, actor *authz.Principal, id string) (*domain.Team, error) {
	t, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	scoped := []authz.Guard{authz.RequireTeamAccess(t.ID)}
	if t.BrandID != "" {
		scoped = append(scoped, authz.RequireBrandAccess(t.BrandID))
	}
	guard := authz.AnyOf(
		authz.RequireCompanyMatch(t.CompanyID),
		authz.AllOf(authz.RequireTenant(t.CompanyID), authz.AnyOf(scoped...)),
	)
	if err := guard(actor); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TeamService) checkBrand(ctx context.Context, companyID, brandID string) error {
	if brandID == "" {
		return nil
	}
	b, err := s.brands.FindByID(ctx, brandID)
	if err != nil {
		return err
	}
	if b.CompanyID != companyID {
		return domain.Deny(authz.GuardTenant, "Brand belongs to another company")
	}
	return nil
}

func (s *TeamService) checkMember(ctx context.Context, companyID, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.CompanyID != companyID {
		return domain.Deny(authz.GuardTenant, "User belongs to another company")
	}
	return nil
}
