package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

type ticketService interface {
	Create(ctx context.Context, actor *authz.Principal, t *domain.Ticket) (*domain.Ticket, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, int64, error)
	Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TicketUpdate) (*domain.Ticket, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

type feedbackService interface {
	Create(ctx context.Context, actor *authz.Principal, f *domain.Feedback) (*domain.Feedback, error)
	Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Feedback, error)
	List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Feedback, int64, error)
	Delete(ctx context.Context, actor *authz.Principal, id string) error
}

// TicketHandler serves /tickets and /feedback.
type TicketHandler struct {
	tickets  ticketService
	feedback feedbackService
}

func NewTicketHandler(tickets ticketService, feedback feedbackService) *TicketHandler {
	return &TicketHandler{tickets: tickets, feedback: feedback}
}

type createTicketRequest struct {
	CompanyID     string   `json:"company_id"`
	Subject       string   `json:"subject"        validate:"required,max=200"`
	Description   string   `json:"description"    validate:"required"`
	Priority      string   `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	CustomerEmail string   `json:"customer_email" validate:"omitempty,email"`
	AssigneeID    string   `json:"assignee_id"`
	Tags          []string `json:"tags"`
}

type updateTicketRequest struct {
	Subject     *string   `json:"subject"     validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"      validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority    *string   `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string   `json:"assignee_id"`
	Tags        *[]string `json:"tags"`
}

type createFeedbackRequest struct {
	CompanyID string `json:"company_id"`
	TicketID  string `json:"ticket_id"`
	Rating    int    `json:"rating"    validate:"required,min=1,max=5"`
	Comment   string `json:"comment"   validate:"max=1000"`
	Source    string `json:"source"    validate:"max=50"`
}

// ListTickets pages through tickets.
//
// @Summary      List tickets
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id"
// @Param        status      query     string  false  "Status filter"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Ticket]
// @Router       /tickets [get]
func (h *TicketHandler) ListTickets(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	page := pageParams(c)
	tickets, total, err := h.tickets.List(c.Request().Context(), ports.TicketFilter{
		CompanyID: companyID,
		Status:    c.QueryParam("status"),
		Page:      page,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(tickets, total, page))
}

// GetTicket returns one ticket.
//
// @Summary      Get ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket id (TKT-001)"
// @Success      200  {object}  domain.Ticket
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tickets/{id} [get]
func (h *TicketHandler) GetTicket(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	t, err := h.tickets.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// CreateTicket opens a ticket with the next TKT number.
//
// @Summary      Create ticket
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTicketRequest  true  "Ticket"
// @Success      201   {object}  domain.Ticket
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /tickets [post]
func (h *TicketHandler) CreateTicket(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}

	t, err := h.tickets.Create(c.Request().Context(), p, &domain.Ticket{
		CompanyID:     companyID,
		Subject:       req.Subject,
		Description:   req.Description,
		Priority:      req.Priority,
		CustomerEmail: req.CustomerEmail,
		AssigneeID:    req.AssigneeID,
		Tags:          req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTicket edits a ticket. Status changes must follow the ticket
// lifecycle and are recorded in its history.
//
// @Summary      Update ticket
// @Tags         tickets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Ticket id"
// @Param        body  body      updateTicketRequest  true  "Fields to change"
// @Success      200   {object}  domain.Ticket
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /tickets/{id} [put]
func (h *TicketHandler) UpdateTicket(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	upd := domain.TicketUpdate{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		Tags:        req.Tags,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		upd.Status = &status
	}
	t, err := h.tickets.Update(c.Request().Context(), p, c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTicket removes a ticket.
//
// @Summary      Delete ticket
// @Tags         tickets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Ticket id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /tickets/{id} [delete]
func (h *TicketHandler) DeleteTicket(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Ticket deleted successfully")
}

// ListFeedback pages through feedback entries.
//
// @Summary      List feedback
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query     string  false  "Company id"
// @Param        page        query     int     false  "Page number"
// @Param        page_size   query     int     false  "Page size (max 100)"
// @Success      200         {object}  pageResponse[domain.Feedback]
// @Router       /feedback [get]
func (h *TicketHandler) ListFeedback(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := tenantScope(p, c.QueryParam("company_id"))
	if err != nil {
		return err
	}
	page := pageParams(c)
	items, total, err := h.feedback.List(c.Request().Context(), companyID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPage(items, total, page))
}

// GetFeedback returns one feedback entry.
//
// @Summary      Get feedback
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback id (fb001)"
// @Success      200  {object}  domain.Feedback
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /feedback/{id} [get]
func (h *TicketHandler) GetFeedback(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	f, err := h.feedback.Get(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// CreateFeedback records a rating with the next fb number.
//
// @Summary      Create feedback
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createFeedbackRequest  true  "Feedback"
// @Success      201   {object}  domain.Feedback
// @Failure      400   {object}  map[string]string
// @Router       /feedback [post]
func (h *TicketHandler) CreateFeedback(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createFeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := tenantScope(p, req.CompanyID)
	if err != nil {
		return err
	}
	f, err := h.feedback.Create(c.Request().Context(), p, &domain.Feedback{
		CompanyID: companyID,
		TicketID:  req.TicketID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Source:    req.Source,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

// DeleteFeedback removes a feedback entry.
//
// @Summary      Delete feedback
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /feedback/{id} [delete]
func (h *TicketHandler) DeleteFeedback(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.feedback.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return message(c, http.StatusOK, "Feedback deleted successfully")
}
