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

// BrandRepository implements ports.BrandRepository.
type BrandRepository struct {
	col *mongo.Collection
}

func NewBrandRepository(db *mongo.Database) *BrandRepository {
	return &BrandRepository{col: db.Collection(collectionBrands)}
}

type mongoBrand struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID   string             `bson:"company_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	CreatedBy   string             `bson:"created_by,omitempty"`
}

func (m mongoBrand) toDomain() *domain.Brand {
	return &domain.Brand{
		ID:          m.ID.Hex(),
		CompanyID:   m.CompanyID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) (*domain.Brand, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoBrand{
		CompanyID:   b.CompanyID,
		Name:        b.Name,
		Description: b.Description,
		IsActive:    b.IsActive,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		CreatedBy:   b.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert brand: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *BrandRepository) FindByID(ctx context.Context, id string) (*domain.Brand, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoBrand
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, fmt.Errorf("find brand: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BrandRepository) ListByCompany(ctx context.Context, companyID string, page domain.Page) ([]*domain.Brand, int64, error) {
	docs, total, err := findPage[mongoBrand](ctx, r.col, bson.M{"company_id": companyID}, pageOptions(page, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Brand, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *BrandRepository) Update(ctx context.Context, id string, upd domain.BrandUpdate) (*domain.Brand, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "description", upd.Description)
	setIf(set, "is_active", upd.IsActive)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoBrand
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, fmt.Errorf("update brand: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BrandRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBrandNotFound
	}
	return nil
}

func (r *BrandRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
}
