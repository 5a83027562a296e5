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

// AIProviderRepository implements ports.AIProviderRepository. API keys are
// stored as the sealed bytes handed in; this layer never sees plaintext.
type AIProviderRepository struct {
	col *mongo.Collection
}

func NewAIProviderRepository(db *mongo.Database) *AIProviderRepository {
	return &AIProviderRepository{col: db.Collection(collectionProviders)}
}

type mongoProvider struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID      string             `bson:"company_id"`
	Name           string             `bson:"name"`
	ProviderType   string             `bson:"provider_type"`
	BaseURL        string             `bson:"base_url,omitempty"`
	SealedKey      []byte             `bson:"sealed_key,omitempty"`
	KeyHint        string             `bson:"key_hint,omitempty"`
	Description    string             `bson:"description,omitempty"`
	TimeoutSeconds int                `bson:"timeout_seconds"`
	IsActive       bool               `bson:"is_active"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
	CreatedBy      string             `bson:"created_by,omitempty"`
}

func (m mongoProvider) toDomain() *domain.AIProvider {
	return &domain.AIProvider{
		ID:             m.ID.Hex(),
		CompanyID:      m.CompanyID,
		Name:           m.Name,
		ProviderType:   domain.ProviderType(m.ProviderType),
		BaseURL:        m.BaseURL,
		SealedKey:      m.SealedKey,
		KeyHint:        m.KeyHint,
		Description:    m.Description,
		TimeoutSeconds: m.TimeoutSeconds,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CreatedBy:      m.CreatedBy,
	}
}

func (r *AIProviderRepository) Create(ctx context.Context, p *domain.AIProvider) (*domain.AIProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoProvider{
		CompanyID:      p.CompanyID,
		Name:           p.Name,
		ProviderType:   string(p.ProviderType),
		BaseURL:        p.BaseURL,
		SealedKey:      p.SealedKey,
		KeyHint:        p.KeyHint,
		Description:    p.Description,
		TimeoutSeconds: p.TimeoutSeconds,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		CreatedBy:      p.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrProviderExists
		}
		return nil, fmt.Errorf("insert ai provider: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *AIProviderRepository) FindByID(ctx context.Context, id string) (*domain.AIProvider, error) {
	var doc mongoProvider
	if err := findOne(ctx, r.col, id, &doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProviderNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *AIProviderRepository) List(ctx context.Context, f domain.AIProviderFilter) ([]*domain.AIProvider, int64, error) {
	docs, total, err := findPage[mongoProvider](ctx, r.col, providerFilter(f), pageOptions(f.Page, "name", 1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.AIProvider, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func providerFilter(f domain.AIProviderFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.ProviderType != "" {
		filter["provider_type"] = f.ProviderType
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	return filter
}

func (r *AIProviderRepository) Update(ctx context.Context, id string, upd domain.AIProviderUpdate) (*domain.AIProvider, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "base_url", upd.BaseURL)
	setIf(set, "description", upd.Description)
	setIf(set, "sealed_key", upd.SealedKey)
	setIf(set, "key_hint", upd.KeyHint)
	setIf(set, "timeout_seconds", upd.TimeoutSeconds)
	setIf(set, "is_active", upd.IsActive)

	var doc mongoProvider
	if err := findAndSet(ctx, r.col, id, set, &doc); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrProviderNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrProviderExists
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *AIProviderRepository) Delete(ctx context.Context, id string) error {
	err := deleteByID(ctx, r.col, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrProviderNotFound
	}
	return err
}

// EnsureIndexes makes provider names unique per company.
func (r *AIProviderRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

// AIModelRepository implements ports.AIModelRepository.
type AIModelRepository struct {
	col *mongo.Collection
}

func NewAIModelRepository(db *mongo.Database) *AIModelRepository {
	return &AIModelRepository{col: db.Collection(collectionModels)}
}

type mongoModel struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID   string             `bson:"company_id"`
	ProviderID  string             `bson:"provider_id"`
	Name        string             `bson:"name"`
	ModelID     string             `bson:"model_id"`
	ModelType   string             `bson:"model_type"`
	MaxTokens   int                `bson:"max_tokens"`
	Temperature *float64           `bson:"temperature,omitempty"`
	Description string             `bson:"description,omitempty"`
	IsDefault   bool               `bson:"is_default"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	CreatedBy   string             `bson:"created_by,omitempty"`
}

func (m mongoModel) toDomain() *domain.AIModel {
	return &domain.AIModel{
		ID:          m.ID.Hex(),
		CompanyID:   m.CompanyID,
		ProviderID:  m.ProviderID,
		Name:        m.Name,
		ModelID:     m.ModelID,
		ModelType:   domain.ModelType(m.ModelType),
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		Description: m.Description,
		IsDefault:   m.IsDefault,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func (r *AIModelRepository) Create(ctx context.Context, m *domain.AIModel) (*domain.AIModel, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoModel{
		CompanyID:   m.CompanyID,
		ProviderID:  m.ProviderID,
		Name:        m.Name,
		ModelID:     m.ModelID,
		ModelType:   string(m.ModelType),
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		Description: m.Description,
		IsDefault:   m.IsDefault,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrModelExists
		}
		return nil, fmt.Errorf("insert ai model: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *AIModelRepository) FindByID(ctx context.Context, id string) (*domain.AIModel, error) {
	var doc mongoModel
	if err := findOne(ctx, r.col, id, &doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrModelNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *AIModelRepository) List(ctx context.Context, f domain.AIModelFilter) ([]*domain.AIModel, int64, error) {
	docs, total, err := findPage[mongoModel](ctx, r.col, modelFilter(f), pageOptions(f.Page, "name", 1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.AIModel, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func modelFilter(f domain.AIModelFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.ProviderID != "" {
		filter["provider_id"] = f.ProviderID
	}
	if f.ModelType != "" {
		filter["model_type"] = f.ModelType
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	return filter
}

func (r *AIModelRepository) Update(ctx context.Context, id string, upd domain.AIModelUpdate) (*domain.AIModel, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "model_id", upd.ModelID)
	setIf(set, "max_tokens", upd.MaxTokens)
	setIf(set, "temperature", upd.Temperature)
	setIf(set, "description", upd.Description)
	setIf(set, "is_default", upd.IsDefault)
	setIf(set, "is_active", upd.IsActive)

	var doc mongoModel
	if err := findAndSet(ctx, r.col, id, set, &doc); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrModelNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrModelExists
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *AIModelRepository) Delete(ctx context.Context, id string) error {
	err := deleteByID(ctx, r.col, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrModelNotFound
	}
	return err
}

func (r *AIModelRepository) CountByProvider(ctx context.Context, providerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"provider_id": providerID})
	if err != nil {
		return 0, fmt.Errorf("count ai models: %w", err)
	}
	return n, nil
}

func (r *AIModelRepository) ClearDefault(ctx context.Context, companyID string, modelType domain.ModelType, exceptID string) error {
	filter := bson.M{"company_id": companyID, "model_type": string(modelType), "is_default": true}
	if oid, err := primitive.ObjectIDFromHex(exceptID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_default": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("clear default ai model: %w", err)
	}
	return nil
}

// EnsureIndexes makes model names unique per company and speeds up the
// in-use check on provider deletion.
func (r *AIModelRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "provider_id", Value: 1}}},
		{Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "model_type", Value: 1}, {Key: "is_default", Value: 1}}},
	})
}

// findOne decodes the document with hex id into out. A missing document
// surfaces as mongo.ErrNoDocuments.
func findOne(ctx context.Context, col *mongo.Collection, id string, out any) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		return fmt.Errorf("find %s: %w", col.Name(), err)
	}
	return nil
}

// findAndSet applies set to the document with hex id and decodes the result
// into out.
func findAndSet(ctx context.Context, col *mongo.Collection, id string, set bson.M, out any) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(out)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("update %s: %w", col.Name(), err)
	}
	return err
}

// deleteByID removes the document with hex id, returning
// mongo.ErrNoDocuments when there was none.
func deleteByID(ctx context.Context, col *mongo.Collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete %s: %w", col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
