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

// TeamRepository implements ports.TeamRepository.
type TeamRepository struct {
	col *mongo.Collection
}

func NewTeamRepository(db *mongo.Database) *TeamRepository {
	return &TeamRepository{col: db.Collection(collectionTeams)}
}

type mongoTeam struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CompanyID   string             `bson:"company_id"`
	BrandID     string             `bson:"brand_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	LeadID      string             `bson:"lead_id,omitempty"`
	MemberIDs   []string           `bson:"member_ids"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	CreatedBy   string             `bson:"created_by,omitempty"`
}

func (m mongoTeam) toDomain() *domain.Team {
	members := m.MemberIDs
	if members == nil {
		members = []string{}
	}
	return &domain.Team{
		ID:          m.ID.Hex(),
		CompanyID:   m.CompanyID,
		BrandID:     m.BrandID,
		Name:        m.Name,
		Description: m.Description,
		LeadID:      m.LeadID,
		MemberIDs:   members,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CreatedBy:   m.CreatedBy,
	}
}

func (r *TeamRepository) Create(ctx context.Context, t *domain.Team) (*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	members := t.MemberIDs
	if members == nil {
		members = []string{}
	}
	doc := mongoTeam{
		CompanyID:   t.CompanyID,
		BrandID:     t.BrandID,
		Name:        t.Name,
		Description: t.Description,
		LeadID:      t.LeadID,
		MemberIDs:   members,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CreatedBy:   t.CreatedBy,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTeamExists
		}
		return nil, fmt.Errorf("insert team: %w", err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *TeamRepository) FindByID(ctx context.Context, id string) (*domain.Team, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTeam
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TeamRepository) List(ctx context.Context, f domain.TeamFilter) ([]*domain.Team, int64, error) {
	docs, total, err := findPage[mongoTeam](ctx, r.col, teamFilter(f), pageOptions(f.Page, "name", 1))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Team, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func teamFilter(f domain.TeamFilter) bson.M {
	filter := bson.M{}
	if f.CompanyID != "" {
		filter["company_id"] = f.CompanyID
	}
	if f.BrandID != "" {
		filter["brand_id"] = f.BrandID
	}
	if f.MemberID != "" {
		filter["member_ids"] = f.MemberID
	}
	return filter
}

func (r *TeamRepository) Update(ctx context.Context, id string, upd domain.TeamUpdate) (*domain.Team, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf(set, "name", upd.Name)
	setIf(set, "description", upd.Description)
	setIf(set, "brand_id", upd.BrandID)
	setIf(set, "lead_id", upd.LeadID)
	setIf(set, "is_active", upd.IsActive)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTeam
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTeamNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTeamExists
		}
		return nil, fmt.Errorf("update team: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepository) AddMember(ctx context.Context, id, userID string) (bool, error) {
	return r.modifyMembers(ctx, id, memberChange(true, userID, time.Now().UTC()))
}

func (r *TeamRepository) RemoveMember(ctx context.Context, id, userID string) (bool, error) {
	return r.modifyMembers(ctx, id, memberChange(false, userID, time.Now().UTC()))
}

type memberChangeOp struct {
	match  bson.M
	update bson.M
}

// memberChange builds a single conditional write: it only matches when
// member_ids would change, and stamps updated_at in the same update.
func memberChange(add bool, userID string, at time.Time) memberChangeOp {
	if add {
		return memberChangeOp{
			match:  bson.M{"member_ids": bson.M{"$ne": userID}},
			update: bson.M{"$push": bson.M{"member_ids": userID}, "$set": bson.M{"updated_at": at}},
		}
	}
	return memberChangeOp{
		match:  bson.M{"member_ids": userID},
		update: bson.M{"$pull": bson.M{"member_ids": userID}, "$set": bson.M{"updated_at": at}},
	}
}

func (r *TeamRepository) modifyMembers(ctx context.Context, id string, op memberChangeOp) (bool, error) {
	oid, err := objectID(id)
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
		return false, fmt.Errorf("update team members: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("find team: %w", err)
	}
	if n == 0 {
		return false, domain.ErrTeamNotFound
	}
	return false, nil
}

// EnsureIndexes makes team names unique per company.
func (r *TeamRepository) EnsureIndexes(ctx context.Context) error {
	return createIndexes(ctx, r.col, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "company_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "member_ids", Value: 1}}},
	})
}
