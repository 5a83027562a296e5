package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
)

type teamService interface {
	Create(ctx context.Context, actor *authz.Principal, t *domain.Team) (*domain.Team, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Team, error)
	List(ctx context.Context, filter domain.TeamFilter) ([]*domain.Team, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TeamUpdate) (*domain.Team, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
	AddMember(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error)
	RemoveMember(ctx context.Context, actor *authz.Principal, id, userID string) (bool, error)
}

// TeamHandler serves /teams.
type TeamHandler struct {
	teams teamService
}

func NewTeamHandler(teams teamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

type createTeamRequest struct {
	CompanyID   string `json:"company_id"`
	BrandID     string `json:"brand_id"`
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	LeadID      string `json:"lead_id"`
}

type updateTeamRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	BrandID     *string `json:"brand_id"`
	LeadID      *string `json:"lead_id"`
	IsActive    *bool   `json:"is_active"`
}

// List returns the teams of a company.
//
// @Summary      List teams
// @Tags         teams
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id; defaults to the caller's company"
// @Param        brand_id    query     string  false  "Only teams of this brand"
// @Param        member_id   query     string  false  "Only teams with this member"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Team]
// @Failure      403         {object}  map[string]string
// @Router       /teams [get]
func (h *TeamHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}

	page := pageParams(c)
	teams, total, err := h.teams.List(c.Request().Context(), domain.TeamFilter{
		CompanyID: companyID,
		BrandID:   c.QueryParam("brand_id"),
		MemberID:  c.QueryParam("member_id"),
		Page:      page,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(teams, total, page))
}

// Get returns one team.
//
// @Summary      Get team
// @Tags         teams
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Team id"
// @Success      200  {object}  domain.Team
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /teams/{id} [get]
func (h *TeamHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	t, err := h.teams.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Create adds a team.
//
// @Summary      Create team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTeamRequest  true  "Team"
// @Success      201   {object}  domain.Team
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /teams [post]
func (h *TeamHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createTeamRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	t, err := h.teams.Create(c.Request().Context(), p, &domain.Team{
		CompanyID:   companyID,
		BrandID:     req.BrandID,
		Name:        req.Name,
		Description: req.Description,
		LeadID:      req.LeadID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Update edits a team.
//
// @Summary      Update team
// @Tags         teams
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Team id"
// @Param        body  body      updateTeamRequest  true  "Fields to change"
// @Success      200   {object}  domain.Team
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /teams/{id} [put]
func (h *TeamHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateTeamRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	t, err := h.teams.Update(c.Request().Context(), p, c.Param("id"), domain.TeamUpdate{
		Name:        req.Name,
		Description: req.Description,
		BrandID:     req.BrandID,
		LeadID:      req.LeadID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Delete removes a team.
//
// @Summary      Delete team
// @Tags         teams
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Team id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /teams/{id} [delete]
func (h *TeamHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.teams.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Team deleted successfully")
}

// AddMember puts a user of the team's company on the team.
//
// @Summary      Add team member
// @Tags         teams
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Team id"
// @Param        user_id  path      string  true  "User id"
// @Success      200      {object}  messageResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /teams/{id}/members/{user_id} [post]
func (h *TeamHandler) AddMember(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	changed, err := h.teams.AddMember(c.Request().Context(), p, c.Param("id"), c.Param("user_id"))
	if err != nil {
		return err
	}
	if !changed {
		return message(c, http.StatusOK, "User is already a member")
	}
	return message(c, http.StatusOK, "Member added successfully")
}

// RemoveMember takes a user off the team.
//
// @Summary      Remove team member
// @Tags         teams
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Team id"
// @Param        user_id  path      string  true  "User id"
// @Success      200      {object}  messageResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /teams/{id}/members/{user_id} [delete]
func (h *TeamHandler) RemoveMember(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	changed, err := h.teams.RemoveMember(c.Request().Context(), p, c.Param("id"), c.Param("user_id"))
	if err != nil {
		return err
	}
	if !changed {
		return message(c, http.StatusOK, "User is not a member")
	}
	return message(c, http.StatusOK, "Member removed successfully")
}
