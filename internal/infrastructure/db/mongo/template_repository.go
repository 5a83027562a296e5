package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// TemplateRepository stores template metadata. Bodies live in the object
// store under content_key.
type TemplateRepository struct {
	col *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{col: db.Collection(collectionTemplates)}
}

type mongoTemplate struct {
	ID          string    `bson:"_id"`
	CompanyID   string    `bson:"company_id,omitempty"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Category    string    `bson:"category,omitempty"`
	ContentKey  string    `bson:"content_key"`
	ContentType string    `bson:"content_type"`
	Size        int64     `bson:"size"`
	CreatedBy   string    `bson:"created_by,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (m mongoTemplate) toDomain() *domain.Template {
	return &domain.Template{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		ContentKey:  m.ContentKey,
		ContentType: m.ContentType,
		Size:        m.Size,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoTemplate{
		ID:          t.ID,
		CompanyID:   t.CompanyID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		ContentKey:  t.ContentKey,
		ContentType: t.ContentType,
		Size:        t.Size,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*domain.Template, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTemplate
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TemplateRepository) List(ctx context.Context, companyID string, page domain.Page) ([]*domain.Template, int64, error) {
	filter := bson.M{}
	if companyID != "" {
		filter["company_id"] = companyID
	}
	docs, total, err := findPage[mongoTemplate](ctx, r.col, filter, pageOptions(page, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Template, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
}
