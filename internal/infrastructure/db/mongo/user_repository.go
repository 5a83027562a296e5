package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/conversia/admin-platform/internal/core/domain"
)

// UserRepository implements ports.UserRepository on the users collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	Username       string             `bson:"username"`
	FullName       string             `bson:"full_name"`
	HashedPassword string             `bson:"hashed_password"`
	IsActive       bool               `bson:"is_active"`
	IsSuperuser    bool               `bson:"is_superuser"`
	RoleIDs        []string           `bson:"role_ids"`
	CompanyID      string             `bson:"company_id,omitempty"`
	LastLogin      *time.Time         `bson:"last_login,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
	CreatedBy      string             `bson:"created_by,omitempty"`
	UpdatedBy      string             `bson:"updated_by,omitempty"`
}

func toMongoUser(u *domain.User) mongoUser {
	roleIDs := u.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return mongoUser{
		Email:          u.Email,
		Username:       u.Username,
		FullName:       u.FullName,
		HashedPassword: u.PasswordHash,
		IsActive:       u.IsActive,
		IsSuperuser:    u.IsSuperuser,
		RoleIDs:        roleIDs,
		CompanyID:      u.CompanyID,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		CreatedBy:      u.CreatedBy,
		UpdatedBy:      u.UpdatedBy,
	}
}

func (m mongoUser) toDomain() *domain.User {
	roleIDs := m.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return &domain.User{
		ID:           m.ID.Hex(),
		Email:        m.Email,
		Username:     m.Username,
		FullName:     m.FullName,
		PasswordHash: m.HashedPassword,
		IsActive:     m.IsActive,
		IsSuperuser:  m.IsSuperuser,
		RoleIDs:      roleIDs,
		CompanyID:    m.CompanyID,
		LastLogin:    m.LastLogin,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		CreatedBy:    m.CreatedBy,
		UpdatedBy:    m.UpdatedBy,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// ExistsByEmailOrUsername matches either field; empty values are not matched.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username, excludeID string) (bool, error) {
	or := bson.A{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if len(or) == 0 {
		return false, nil
	}
	filter := bson.M{"$or": or}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "full_name", upd.FullName)
	setIf(set, "username", upd.Username)
	setIf(set, "email", upd.Email)

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"hashed_password": passwordHash,
		"updated_at":      time.Now().UTC(),
	}})
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"last_login": at}})
}

func (r *UserRepository) SetCompany(ctx context.Context, id, companyID, actorID string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"company_id": companyID,
		"updated_at": time.Now().UTC(),
		"updated_by": actorID,
	}})
}

func (r *UserRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddRole uses $addToSet so concurrent grants of the same role stay single.
func (r *UserRepository) AddRole(ctx context.Context, userID, roleID string) (bool, error) {
	return r.modifyRoles(ctx, userID, roleChange(true, roleID, time.Now().UTC()))
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID string) (bool, error) {
	return r.modifyRoles(ctx, userID, roleChange(false, roleID, time.Now().UTC()))
}

// roleChangeOp is a role_ids edit guarded so that it only matches when it
// would change something; updated_at then moves with it in the same write.
type roleChangeOp struct {
	match  bson.M
	update bson.M
}

func roleChange(add bool, roleID string, at time.Time) roleChangeOp {
	if add {
		return roleChangeOp{
			match: bson.M{"role_ids": bson.M{"$ne": roleID}},
			update: bson.M{
				"$addToSet": bson.M{"role_ids": roleID},
				"$set":      bson.M{"updated_at": at},
			},
		}
	}
	return roleChangeOp{
		match: bson.M{"role_ids": roleID},
		update: bson.M{
			"$pull": bson.M{"role_ids": roleID},
			"$set":  bson.M{"updated_at": at},
		},
	}
}

func (r *UserRepository) modifyRoles(ctx context.Context, userID string, op roleChangeOp) (bool, error) {
	oid, err := objectID(userID)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid}
	for k, v := range op.match {
		filter[k] = v
	}
	res, err := r.col.UpdateOne(ctx, filter, op.update)
	if err != nil {
		return false, fmt.Errorf("update user roles: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	if n == 0 {
		return false, domain.ErrUserNotFound
	}
	return false, nil
}

func (r *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"company_id": companyID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users by company: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return usersToDomain(docs), nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	docs, total, err := findPage[mongoUser](ctx, r.col, userFilter(filter), pageOptions(filter.Page, "created_at", 1))
	if err != nil {
		return nil, 0, err
	}
	return usersToDomain(docs), total, nil
}

func userFilter(f domain.UserFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.RoleID != "" {
		filter["role_ids"] = f.RoleID
	}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"email": rx},
			bson.M{"username": rx},
			bson.M{"full_name": rx},
		}
	}
	return filter
}

func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate, actorID string) (*domain.User, error) {
	set := bson.M{"updated_at": time.Now().UTC(), "updated_by": actorID}
	setIf(set, "full_name", upd.FullName)
	setIf(set, "username", upd.Username)
	setIf(set, "email", upd.Email)
	setIf(set, "is_active", upd.IsActive)

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, roleID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"role_ids": roleID})
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

func (r *UserRepository) CountSuperusers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"is_superuser": true})
	if err != nil {
		return 0, fmt.Errorf("count superusers: %w", err)
	}
	return n, nil
}

// EnsureIndexes creates the unique identity indexes plus lookup indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "company_id", Value: 1}}},
		{Keys: bson.D{{Key: "role_ids", Value: 1}}},
	})
}

func usersToDomain(docs []mongoUser) []*domain.User {
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}
