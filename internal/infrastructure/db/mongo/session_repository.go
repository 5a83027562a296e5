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
)

// SessionRepository implements ports.SessionRepository. Sessions are keyed
// by their opaque session id.
type SessionRepository struct {
	col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{col: db.Collection(collectionSessions)}
}

type mongoSession struct {
	ID             string    `bson:"_id"`
	UserID         string    `bson:"user_id"`
	IPAddress      string    `bson:"ip_address,omitempty"`
	UserAgent      string    `bson:"user_agent,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	LastActivity   time.Time `bson:"last_activity"`
	IsActive       bool      `bson:"is_active"`
	TokenID        string    `bson:"token_id,omitempty"`
	TokenExpiresAt time.Time `bson:"token_expires_at,omitempty"`
}

func (m mongoSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:             m.ID,
		UserID:         m.UserID,
		IPAddress:      m.IPAddress,
		UserAgent:      m.UserAgent,
		CreatedAt:      m.CreatedAt,
		LastActivity:   m.LastActivity,
		IsActive:       m.IsActive,
		TokenID:        m.TokenID,
		TokenExpiresAt: m.TokenExpiresAt,
	}
}

func (r *SessionRepository) Insert(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoSession{
		ID:             s.ID,
		UserID:         s.UserID,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		CreatedAt:      s.CreatedAt,
		LastActivity:   s.LastActivity,
		IsActive:       s.IsActive,
		TokenID:        s.TokenID,
		TokenExpiresAt: s.TokenExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindActive(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoSession
	err := r.col.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_activity": at}})
	return err
}

func (r *SessionRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_active": false}})
	return err
}

func (r *SessionRepository) BindToken(ctx context.Context, id, tokenID string, expiresAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"token_id": tokenID, "token_expires_at": expiresAt}},
	)
	if err != nil {
		return false, fmt.Errorf("bind session token: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var docs []mongoSession
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	out := make([]*domain.Session, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *SessionRepository) DeactivateByUser(ctx context.Context, userID string) (int64, error) {
	return r.deactivateMany(ctx, bson.M{"user_id": userID, "is_active": true})
}

func (r *SessionRepository) DeactivateCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deactivateMany(ctx, bson.M{"is_active": true, "created_at": bson.M{"$lt": cutoff}})
}

func (r *SessionRepository) deactivateMany(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *SessionRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{"user_id": userID, "is_active": true})
}

// EnsureIndexes supports per-user lookups and the expiry sweep. Session
// documents are dropped by a TTL index a week after creation.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: 1}}},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32((7 * 24 * time.Hour).Seconds())),
		},
	})
}
