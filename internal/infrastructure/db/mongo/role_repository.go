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

// RoleRepository implements ports.RoleRepository on the roles collection.
type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

type mongoRole struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID      string             `bson:"company_id,omitempty"`
	Name           string             `bson:"name"`
	DisplayName    string             `bson:"display_name"`
	RoleType       string             `bson:"role_type"`
	Scope          string             `bson:"scope"`
	Permissions    []string           `bson:"permissions"`
	BrandIDs       []string           `bson:"brand_ids,omitempty"`
	TeamIDs        []string           `bson:"team_ids,omitempty"`
	IsSystemRole   bool               `bson:"is_system_role"`
	IsActive       bool               `bson:"is_active"`
	CanBeDelegated bool               `bson:"can_be_delegated"`
	MaxUsers       *int               `bson:"max_users,omitempty"`
	Description    string             `bson:"description,omitempty"`
	Metadata       map[string]any     `bson:"metadata,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
	CreatedBy      string             `bson:"created_by,omitempty"`
	UpdatedBy      string             `bson:"updated_by,omitempty"`
}

func toMongoRole(r *domain.Role) mongoRole {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return mongoRole{
		CompanyID:      r.CompanyID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		RoleType:       string(r.RoleType),
		Scope:          string(r.Scope),
		Permissions:    perms,
		BrandIDs:       r.BrandIDs,
		TeamIDs:        r.TeamIDs,
		IsSystemRole:   r.IsSystemRole,
		IsActive:       r.IsActive,
		CanBeDelegated: r.CanBeDelegated,
		MaxUsers:       r.MaxUsers,
		Description:    r.Description,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		CreatedBy:      r.CreatedBy,
		UpdatedBy:      r.UpdatedBy,
	}
}

func (m mongoRole) toDomain() *domain.Role {
	perms := m.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &domain.Role{
		ID:             m.ID.Hex(),
		CompanyID:      m.CompanyID,
		Name:           m.Name,
		DisplayName:    m.DisplayName,
		RoleType:       domain.RoleType(m.RoleType),
		Scope:          domain.RoleScope(m.Scope),
		Permissions:    perms,
		BrandIDs:       m.BrandIDs,
		TeamIDs:        m.TeamIDs,
		IsSystemRole:   m.IsSystemRole,
		IsActive:       m.IsActive,
		CanBeDelegated: m.CanBeDelegated,
		MaxUsers:       m.MaxUsers,
		Description:    m.Description,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		CreatedBy:      m.CreatedBy,
		UpdatedBy:      m.UpdatedBy,
	}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoRole(role)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrRoleExists
		}
		return nil, fmt.Errorf("insert role: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *RoleRepository) FindSystemByType(ctx context.Context, roleType domain.RoleType) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"role_type": string(roleType), "is_system_role": true})
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRole
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*domain.Role{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	return rolesToDomain(docs), nil
}

func (r *RoleRepository) List(ctx context.Context, f domain.RoleFilter) ([]*domain.Role, int64, error) {
	docs, total, err := findPage[mongoRole](ctx, r.col, roleFilter(f),
		pageOptions(domain.Page{Page: f.Page, PageSize: f.PageSize}, "created_at", -1))
	if err != nil {
		return nil, 0, err
	}
	return rolesToDomain(docs), total, nil
}

// roleFilter builds the list query. A company filter also returns the
// system-level roles, which carry no company_id.
func roleFilter(f domain.RoleFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["$or"] = bson.A{
			bson.M{"company_id": f.CompanyID},
			bson.M{"company_id": bson.M{"$exists": false}},
		}
	}
	if f.Scope != "" {
		filter["scope"] = f.Scope
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	return filter
}

func (r *RoleRepository) Update(ctx context.Context, id string, upd domain.RoleUpdate, actorID string) (*domain.Role, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRole
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": roleUpdateSet(upd, actorID)},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return doc.toDomain(), nil
}

func roleUpdateSet(upd domain.RoleUpdate, actorID string) bson.M {
	set := bson.M{
		"updated_at": time.Now().UTC(),
		"updated_by": actorID,
	}
	setIf(set, "display_name", upd.DisplayName)
	setIf(set, "permissions", upd.Permissions)
	setIf(set, "brand_ids", upd.BrandIDs)
	setIf(set, "team_ids", upd.TeamIDs)
	setIf(set, "is_active", upd.IsActive)
	setIf(set, "can_be_delegated", upd.CanBeDelegated)
	setIf(set, "max_users", upd.MaxUsers)
	setIf(set, "description", upd.Description)
	if upd.Metadata != nil {
		set["metadata"] = upd.Metadata
	}
	return set
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}

// EnsureSystemRole upserts on (role_type, is_system_role) with
// $setOnInsert, so existing system roles keep any edits.
func (r *RoleRepository) EnsureSystemRole(ctx context.Context, role *domain.Role) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoRole(role)
	filter := bson.M{"role_type": doc.RoleType, "is_system_role": true}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("seed role %s: %w", doc.RoleType, err)
	}
	return res.UpsertedCount > 0, nil
}

// EnsureIndexes makes role names unique per company.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role_type", Value: 1}, {Key: "is_system_role", Value: 1}}},
		{Keys: bson.D{{Key: "scope", Value: 1}}},
	})
}

func rolesToDomain(docs []mongoRole) []*domain.Role {
	out := make([]*domain.Role, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}
