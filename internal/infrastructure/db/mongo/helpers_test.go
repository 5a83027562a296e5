package mongo

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/conversia/admin-platform/internal/core/domain"
)

func TestObjectID(t *testing.T) {
	if _, err := objectID("64b7f0c2a1b2c3d4e5f60718"); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	_, err := objectID("not-an-id")
	if !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestObjectIDsSkipsMalformed(t *testing.T) {
	got := objectIDs([]string{"64b7f0c2a1b2c3d4e5f60718", "bad", ""})
	if len(got) != 1 {
		t.Fatalf("expected 1 id, got %d", len(got))
	}
}

func TestPageOptionsNormalizes(t *testing.T) {
	opts := pageOptions(domain.Page{Page: 3, PageSize: 500}, "created_at", -1)
	if *opts.Limit != 100 {
		t.Errorf("limit = %d, want 100", *opts.Limit)
	}
	if *opts.Skip != 200 {
		t.Errorf("skip = %d, want 200", *opts.Skip)
	}

	opts = pageOptions(domain.Page{}, "name", 1)
	if *opts.Limit != 20 || *opts.Skip != 0 {
		t.Errorf("default page: limit %d skip %d", *opts.Limit, *opts.Skip)
	}
}

func TestRoleFilterIncludesSystemRoles(t *testing.T) {
	active := true
	f := roleFilter(domain.RoleFilter{CompanyID: "c1", Scope: "company", IsActive: &active})

	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %#v", f["$or"])
	}
	if f["scope"] != "company" {
		t.Errorf("scope filter = %v", f["scope"])
	}
	if f["is_active"] != true {
		t.Errorf("is_active filter = %v", f["is_active"])
	}

	if len(roleFilter(domain.RoleFilter{})) != 0 {
		t.Error("empty filter should match everything")
	}
}

func TestRoleUpdateSetOnlyTouchesProvidedFields(t *testing.T) {
	name := "Support Lead"
	set := roleUpdateSet(domain.RoleUpdate{DisplayName: &name}, "u1")

	if set["display_name"] != name {
		t.Errorf("display_name = %v", set["display_name"])
	}
	if set["updated_by"] != "u1" {
		t.Errorf("updated_by = %v", set["updated_by"])
	}
	for _, key := range []string{"permissions", "is_active", "max_users", "metadata"} {
		if _, ok := set[key]; ok {
			t.Errorf("unexpected key %q in update", key)
		}
	}
}

func TestRoleChangeStampsUpdatedAtInTheSameWrite(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	add := roleChange(true, "r1", at)
	if _, ok := add.update["$addToSet"]; !ok {
		t.Fatalf("add is missing $addToSet: %#v", add.update)
	}
	if set, _ := add.update["$set"].(bson.M); set["updated_at"] != at {
		t.Fatalf("add does not stamp updated_at: %#v", add.update)
	}
	if ne, _ := add.match["role_ids"].(bson.M); ne["$ne"] != "r1" {
		t.Fatalf("add should only match users without the role: %#v", add.match)
	}

	remove := roleChange(false, "r1", at)
	if _, ok := remove.update["$pull"]; !ok {
		t.Fatalf("remove is missing $pull: %#v", remove.update)
	}
	if set, _ := remove.update["$set"].(bson.M); set["updated_at"] != at {
		t.Fatalf("remove does not stamp updated_at: %#v", remove.update)
	}
	if remove.match["role_ids"] != "r1" {
		t.Fatalf("remove should only match holders of the role: %#v", remove.match)
	}
}

func TestUserFilter(t *testing.T) {
	active := false
	f := userFilter(domain.UserFilter{CompanyID: "c1", RoleID: "r1", IsActive: &active, Search: "a.b"})

	if f["company_id"] != "c1" || f["role_ids"] != "r1" || f["is_active"] != false {
		t.Fatalf("unexpected filter: %#v", f)
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 3 {
		t.Fatalf("expected three search branches, got %#v", f["$or"])
	}
	rx := or[0].(bson.M)["email"].(primitive.Regex)
	if rx.Pattern != `a\.b` || rx.Options != "i" {
		t.Fatalf("search is not escaped: %#v", rx)
	}

	if len(userFilter(domain.UserFilter{Search: "  "})) != 0 {
		t.Error("blank search should match everything")
	}
}

func TestMemberChangeIsConditionalAndStamped(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	add := memberChange(true, "u1", at)
	if _, ok := add.update["$push"]; !ok {
		t.Fatalf("add is missing $push: %#v", add.update)
	}
	if ne, _ := add.match["member_ids"].(bson.M); ne["$ne"] != "u1" {
		t.Fatalf("add should only match teams without the member: %#v", add.match)
	}

	remove := memberChange(false, "u1", at)
	if _, ok := remove.update["$pull"]; !ok {
		t.Fatalf("remove is missing $pull: %#v", remove.update)
	}
	if remove.match["member_ids"] != "u1" {
		t.Fatalf("remove should only match teams with the member: %#v", remove.match)
	}

	for _, op := range []memberChangeOp{add, remove} {
		if set, _ := op.update["$set"].(bson.M); set["updated_at"] != at {
			t.Fatalf("member change does not stamp updated_at: %#v", op.update)
		}
	}
}

func TestTeamFilter(t *testing.T) {
	f := teamFilter(domain.TeamFilter{CompanyID: "c1", BrandID: "b1", MemberID: "u1"})
	if f["company_id"] != "c1" || f["brand_id"] != "b1" || f["member_ids"] != "u1" {
		t.Fatalf("unexpected filter: %#v", f)
	}
	if len(teamFilter(domain.TeamFilter{})) != 0 {
		t.Error("empty filter should match everything")
	}
}

func TestAIFilters(t *testing.T) {
	active := true
	pf := providerFilter(domain.AIProviderFilter{CompanyID: "c1", ProviderType: "openai", IsActive: &active})
	if pf["company_id"] != "c1" || pf["provider_type"] != "openai" || pf["is_active"] != true {
		t.Fatalf("unexpected provider filter: %#v", pf)
	}

	mf := modelFilter(domain.AIModelFilter{CompanyID: "c1", ProviderID: "p1", ModelType: "chat"})
	if mf["provider_id"] != "p1" || mf["model_type"] != "chat" {
		t.Fatalf("unexpected model filter: %#v", mf)
	}
	if _, ok := mf["is_active"]; ok {
		t.Fatalf("unset is_active must not filter: %#v", mf)
	}
}
