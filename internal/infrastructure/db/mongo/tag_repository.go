package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// TagRepository implements ports.TagRepository.
type TagRepository struct {
	col *mongo.Collection
}

func NewTagRepository(db *mongo.Database) *TagRepository {
	return &TagRepository{col: db.Collection(collectionTags)}
}

type mongoTag struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID   string             `bson:"company_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Category    string             `bson:"category"`
	Color       string             `bson:"color"`
	Enabled     bool               `bson:"enabled"`
	UsageCount  int64              `bson:"usage_count"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	CreatedBy   string             `bson:"created_by,omitempty"`
}

func (m mongoTag) toDomain() *domain.Tag {
	return &domain.Tag{
		ID:          m.ID.Hex(),
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Color:       m.Color,
		Enabled:     m.Enabled,
		UsageCount:  m.UsageCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func (r *TagRepository) Create(ctx context.Context, t *domain.Tag) (*domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoTag{
		CompanyID:   t.CompanyID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Color:       t.Color,
		Enabled:     t.Enabled,
		UsageCount:  t.UsageCount,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CreatedBy:   t.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *TagRepository) FindByID(ctx context.Context, id string) (*domain.Tag, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTag
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TagRepository) List(ctx context.Context, companyID, category string, page domain.Page) ([]*domain.Tag, int64, error) {
	filter := bson.M{}
	if companyID != "" {
		filter["company_id"] = companyID
	}
	if category != "" {
		filter["category"] = category
	}
	docs, total, err := findPage[mongoTag](ctx, r.col, filter, pageOptions(page, "name", 1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Tag, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *TagRepository) Update(ctx context.Context, id string, upd domain.TagUpdate) (*domain.Tag, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "description", upd.Description)
	setIf(set, "category", upd.Category)
	setIf(set, "color", upd.Color)
	setIf(set, "enabled", upd.Enabled)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTag
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTagNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("update tag: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TagRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTagNotFound
	}
	return nil
}

// EnsureIndexes makes tag names unique per company.
func (r *TagRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
}
