package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
)

// TicketRepository implements ports.TicketRepository. Ticket ids are the
// human-readable TKT-nnn values handed out by the sequence generator.
type TicketRepository struct {
	col *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{col: db.Collection(collectionTickets)}
}

type mongoTicketHistory struct {
	Action string    `bson:"action"`
	Status string    `bson:"status,omitempty"`
	At     time.Time `bson:"timestamp"`
	By     string    `bson:"user,omitempty"`
}

func toMongoTicketHistory(h domain.TicketHistoryEntry) mongoTicketHistory {
	return mongoTicketHistory{Action: h.Action, Status: string(h.Status), At: h.At, By: h.By}
}

type mongoTicket struct {
	ID            string               `bson:"_id"`
	CompanyID     string               `bson:"company_id,omitempty"`
	Subject       string               `bson:"subject"`
	Description   string               `bson:"description"`
	Status        string               `bson:"status"`
	Priority      string               `bson:"priority"`
	CustomerEmail string               `bson:"customer_email,omitempty"`
	AssigneeID    string               `bson:"assignee_id,omitempty"`
	Tags          []string             `bson:"tags,omitempty"`
	History       []mongoTicketHistory `bson:"history"`
	CreatedBy     string               `bson:"created_by,omitempty"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

func (m mongoTicket) toDomain() *domain.Ticket {
	history := make([]domain.TicketHistoryEntry, 0, len(m.History))
	for _, h := range m.History {
		history = append(history, domain.TicketHistoryEntry{
			Action: h.Action,
			Status: domain.TicketStatus(h.Status),
			At:     h.At,
			By:     h.By,
		})
	}
	return &domain.Ticket{
		ID:            m.ID,
		CompanyID:     m.CompanyID,
		Subject:       m.Subject,
		Description:   m.Description,
		Status:        domain.TicketStatus(m.Status),
		Priority:      m.Priority,
		CustomerEmail: m.CustomerEmail,
		AssigneeID:    m.AssigneeID,
		Tags:          m.Tags,
		History:       history,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	history := make([]mongoTicketHistory, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, toMongoTicketHistory(h))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoTicket{
		ID:            t.ID,
		CompanyID:     t.CompanyID,
		Subject:       t.Subject,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      t.Priority,
		CustomerEmail: t.CustomerEmail,
		AssigneeID:    t.AssigneeID,
		Tags:          t.Tags,
		History:       history,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTicket
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TicketRepository) List(ctx context.Context, f ports.TicketFilter) ([]*domain.Ticket, int64, error) {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	docs, total, err := findPage[mongoTicket](ctx, r.col, filter, pageOptions(f.Page, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Ticket, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *TicketRepository) Update(ctx context.Context, id string, upd domain.TicketUpdate) (*domain.Ticket, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "subject", upd.Subject)
	setIf(set, "description", upd.Description)
	setIf(set, "priority", upd.Priority)
	setIf(set, "assignee_id", upd.AssigneeID)
	setIf(set, "tags", upd.Tags)
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	update := bson.M{"$set": set}
	if upd.History != nil {
		update["$push"] = bson.M{"history": toMongoTicketHistory(*upd.History)}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTicket
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
}

// FeedbackRepository implements ports.FeedbackRepository.
type FeedbackRepository struct {
	col *mongo.Collection
}

func NewFeedbackRepository(db *mongo.Database) *FeedbackRepository {
	return &FeedbackRepository{col: db.Collection(collectionFeedback)}
}

type mongoFeedback struct {
	ID        string    `bson:"_id"`
	CompanyID string    `bson:"company_id,omitempty"`
	TicketID  string    `bson:"ticket_id,omitempty"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	Source    string    `bson:"source,omitempty"`
	CreatedBy string    `bson:"created_by,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (m mongoFeedback) toDomain() *domain.Feedback {
	return &domain.Feedback{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		TicketID:  m.TicketID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		Source:    m.Source,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoFeedback{
		ID:        f.ID,
		CompanyID: f.CompanyID,
		TicketID:  f.TicketID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		Source:    f.Source,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*domain.Feedback, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoFeedback
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *FeedbackRepository) List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Feedback, int64, error) {
	filter := bson.M{}
	if companyID != "" {
		filter["company_id"] = companyID
	}
	docs, total, err := findPage[mongoFeedback](ctx, r.col, filter, pageOptions(page, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Feedback, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

func (r *FeedbackRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "ticket_id", Value: 1}}},
	})
}
