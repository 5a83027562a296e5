package service

import (
	"context"
	"fmt"
	"time"

	"github.com/conversia/admin-platform/internal/core/authz"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// Counter names in the sequence store.
const (
	ticketSequence   = "tickets"
	feedbackSequence = "feedback"
)

func ticketID(n int64) string   { return fmt.Sprintf("TKT-%03d", n) }
func feedbackID(n int64) string { return fmt.Sprintf("fb%03d", n) }

type TicketService struct {
	tickets ports.TicketRepository
	seq     ports.SequenceGenerator
	audit   ports.Auditor
}

func NewTicketService(tickets ports.TicketRepository, seq ports.SequenceGenerator, audit ports.Auditor) *TicketService {
	return &TicketService{tickets: tickets, seq: seq, audit: audit}
}

// Create opens a ticket with the next persisted sequence id.
func (s *TicketService) Create(ctx context.Context, actor *authz.Principal, t *domain.Ticket) (*domain.Ticket, error) {
	n, err := s.seq.Next(ctx, ticketSequence)
	if err != nil {
		return nil, fmt.Errorf("next ticket id: %w", err)
	}
	now := time.Now().UTC()
	t.ID = ticketID(n)
	t.Status = domain.TicketOpen
	t.CreatedBy = actor.UserID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Priority == "" {
		t.Priority = "medium"
	}
	t.History = []domain.TicketHistoryEntry{{Action: "created", Status: t.Status, At: now, By: t.CreatedBy}}
	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "ticket.create", t.ID)
	return t, nil
}

func (s *TicketService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Ticket, error) {
	return loadOwned(ctx, actor, id, s.tickets.FindByID)
}

func (s *TicketService) List(ctx context.Context, filter ports.TicketFilter) ([]*domain.Ticket, int64, error) {
	filter.Page = filter.Page.Normalize()
	return s.tickets.List(ctx, filter)
}

func (s *TicketService) Update(ctx context.Context, actor *authz.Principal, id string, upd domain.TicketUpdate) (*domain.Ticket, error) {
	if upd.Subject == nil && upd.Description == nil && upd.Status == nil &&
		upd.Priority == nil && upd.AssigneeID == nil && upd.Tags == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}

	current, err := loadOwned(ctx, actor, id, s.tickets.FindByID)
	if err != nil {
		return nil, err
	}
	entry := domain.TicketHistoryEntry{Action: "updated", At: time.Now().UTC(), By: actor.UserID()}
	if upd.Status != nil && *upd.Status != current.Status {
		if !current.Status.CanTransitionTo(*upd.Status) {
			return nil, fmt.Errorf("update ticket: %w (from %s to %s)", domain.ErrInvalidTransition, current.Status, *upd.Status)
		}
		entry.Action = "status_changed"
		entry.Status = *upd.Status
	}
	upd.History = &entry

	t, err := s.tickets.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "ticket.update", id)
	return t, nil
}

func (s *TicketService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := loadOwned(ctx, actor, id, s.tickets.FindByID); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "ticket.delete", id)
	return nil
}

type FeedbackService struct {
	feedback ports.FeedbackRepository
	seq      ports.SequenceGenerator
	audit    ports.Auditor
}

func NewFeedbackService(feedback ports.FeedbackRepository, seq ports.SequenceGenerator, audit ports.Auditor) *FeedbackService {
	return &FeedbackService{feedback: feedback, seq: seq, audit: audit}
}

// Create stores a rating with the next persisted sequence id.
func (s *FeedbackService) Create(ctx context.Context, actor *authz.Principal, f *domain.Feedback) (*domain.Feedback, error) {
	n, err := s.seq.Next(ctx, feedbackSequence)
	if err != nil {
		return nil, fmt.Errorf("next feedback id: %w", err)
	}
	f.ID = feedbackID(n)
	f.CreatedBy = actor.UserID()
	f.CreatedAt = time.Now().UTC()
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	recordAudit(s.audit, actor, "feedback.create", f.ID)
	return f, nil
}

func (s *FeedbackService) Get(ctx context.Context, actor *authz.Principal, id string) (*domain.Feedback, error) {
	return loadOwned(ctx, actor, id, s.feedback.FindByID)
}

func (s *FeedbackService) List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Feedback, int64, error) {
	return s.feedback.List(ctx, companyID, page.Normalize())
}

func (s *FeedbackService) Delete(ctx context.Context, actor *authz.Principal, id string) error {
	if _, err := loadOwned(ctx, actor, id, s.feedback.FindByID); err != nil {
		return err
	}
	if err := s.feedback.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(s.audit, actor, "feedback.delete", id)
	return nil
}
