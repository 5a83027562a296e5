package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/conversia/admin-platform/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	indexTimeout   = 30 * time.Second
)

// Collection names.
const (
	collectionUsers     = "users"
	collectionRoles     = "roles"
	collectionSessions  = "user_sessions"
	collectionCompanies = "companies"
	collectionBrands    = "brands"
	collectionAgents    = "ai_agents"
	collectionKnowledge = "knowledge_base"
	collectionTags      = "tags"
	collectionTickets   = "tickets"
	collectionFeedback  = "feedback"
	collectionTemplates = "templates"
	collectionTeams     = "teams"
	collectionProviders = "ai_providers"
	collectionModels    = "ai_models"
	collectionCounters  = "counters"
	collectionAudit     = "audit_logs"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// IndexBuilder is implemented by every repository that owns indexes.
type IndexBuilder interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes runs EnsureIndexes on each builder, stopping at the first error.
func EnsureIndexes(ctx context.Context, builders ...IndexBuilder) error {
	for _, b := range builders {
		if err := b.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

func createIndexes(ctx context.Context, col *mongo.Collection, indexes []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

// objectID parses a hex id; malformed ids map to domain.ErrInvalidID.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return oid, nil
}

// objectIDs parses ids, skipping malformed ones.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// pageOptions turns page into find options sorted by sortField.
func pageOptions(page domain.Page, sortField string, order int) *options.FindOptions {
	page = page.Normalize()
	return options.Find().
		SetSkip(page.Skip()).
		SetLimit(int64(page.PageSize)).
		SetSort(bson.D{{Key: sortField, Value: order}})
}

// findPage runs filter with paging and decodes every document into T.
func findPage[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", col.Name(), err)
	}
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", col.Name(), err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", col.Name(), err)
	}
	return docs, total, nil
}

// setIf adds key to set when value is non-nil.
func setIf[T any](set bson.M, key string, value *T) {
	if value != nil {
		set[key] = *value
	}
}
