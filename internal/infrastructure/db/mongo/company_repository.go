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

// CompanyRepository implements ports.CompanyRepository.
type CompanyRepository struct {
	col *mongo.Collection
}

func NewCompanyRepository(db *mongo.Database) *CompanyRepository {
	return &CompanyRepository{col: db.Collection(collectionCompanies)}
}

type mongoSettings struct {
	MaxBrands             int `bson:"max_brands"`
	MaxAgents             int `bson:"max_agents"`
	MaxUsers              int `bson:"max_users"`
	MaxKnowledgeBaseItems int `bson:"max_knowledge_base_items"`
	StorageQuotaGB        int `bson:"storage_quota_gb"`
	APIRateLimit          int `bson:"api_rate_limit"`
}

type mongoCompany struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Domain       string             `bson:"domain,omitempty"`
	Industry     string             `bson:"industry,omitempty"`
	ContactEmail string             `bson:"contact_email"`
	Plan         string             `bson:"plan"`
	Status       string             `bson:"status"`
	Settings     mongoSettings      `bson:"settings"`
	Description  string             `bson:"description,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
	CreatedBy    string             `bson:"created_by,omitempty"`
}

func toMongoSettings(s domain.CompanySettings) mongoSettings {
	return mongoSettings(s)
}

func (m mongoCompany) toDomain() *domain.Company {
	return &domain.Company{
		ID:           m.ID.Hex(),
		Name:         m.Name,
		Domain:       m.Domain,
		Industry:     m.Industry,
		ContactEmail: m.ContactEmail,
		Plan:         domain.CompanyPlan(m.Plan),
		Status:       domain.CompanyStatus(m.Status),
		Settings:     domain.CompanySettings(m.Settings),
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		CreatedBy:    m.CreatedBy,
	}
}

func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) (*domain.Company, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoCompany{
		Name:         c.Name,
		Domain:       c.Domain,
		Industry:     c.Industry,
		ContactEmail: c.ContactEmail,
		Plan:         string(c.Plan),
		Status:       string(c.Status),
		Settings:     toMongoSettings(c.Settings),
		Description:  c.Description,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		CreatedBy:    c.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert company: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*domain.Company, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCompany
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CompanyRepository) List(ctx context.Context, status string, page domain.Page) ([]*domain.Company, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	docs, total, err := findPage[mongoCompany](ctx, r.col, filter, pageOptions(page, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Company, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *CompanyRepository) Update(ctx context.Context, id string, upd domain.CompanyUpdate) (*domain.Company, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "domain", upd.Domain)
	setIf(set, "industry", upd.Industry)
	setIf(set, "contact_email", upd.ContactEmail)
	setIf(set, "description", upd.Description)
	if upd.Plan != nil {
		set["plan"] = string(*upd.Plan)
	}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.Settings != nil {
		set["settings"] = toMongoSettings(*upd.Settings)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCompany
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("update company: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCompanyNotFound
	}
	return nil
}

func (r *CompanyRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
}

// ResourceCounter implements ports.ResourceCounter by counting the company's
// documents in the collection backing each resource.
type ResourceCounter struct {
	cols map[domain.ResourceType]*mongo.Collection
}

func NewResourceCounter(db *mongo.Database) *ResourceCounter {
	return &ResourceCounter{cols: map[domain.ResourceType]*mongo.Collection{
		domain.ResourceBrands:         db.Collection(collectionBrands),
		domain.ResourceAgents:         db.Collection(collectionAgents),
		domain.ResourceUsers:          db.Collection(collectionUsers),
		domain.ResourceKnowledgeItems: db.Collection(collectionKnowledge),
	}}
}

func (c *ResourceCounter) CountByCompany(ctx context.Context, resource domain.ResourceType, companyID string) (int64, error) {
	col, ok := c.cols[resource]
	if !ok {
		return 0, domain.ErrUnknownResource
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := col.CountDocuments(ctx, bson.M{"company_id": companyID})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", resource, err)
	}
	return n, nil
}
