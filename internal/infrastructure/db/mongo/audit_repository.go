package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// AuditRepository persists audit events to the audit_logs collection.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit)}
}

type mongoAuditEvent struct {
	ActorID     string            `bson:"actor_id"`
	Action      string            `bson:"action"`
	Target      string            `bson:"target"`
	At          time.Time         `bson:"at"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	ProcessedAt time.Time         `bson:"processed_at"`
}

// Insert appends e. The dispatcher applies its own write timeout.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) error {
	_, err := r.col.InsertOne(ctx, mongoAuditEvent{
		ActorID:     e.ActorID,
		Action:      e.Action,
		Target:      e.Target,
		At:          e.At.UTC(),
		Metadata:    e.Metadata,
		ProcessedAt: time.Now().UTC(),
	})
	return err
}

// List returns events newest first.
func (r *AuditRepository) List(ctx context.Context, page domain.Page) ([]*domain.AuditEvent, int64, error) {
	docs, total, err := findPage[mongoAuditEvent](ctx, r.col, bson.M{}, pageOptions(page, "at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.AuditEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.AuditEvent{
			ActorID:  d.ActorID,
			Action:   d.Action,
			Target:   d.Target,
			At:       d.At,
			Metadata: d.Metadata,
		})
	}
	return out, total, nil
}

func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "at", Value: -1}}},
	})
}
