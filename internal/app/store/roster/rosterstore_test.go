package rosterstore_test

import (
	"fmt"
	"sync"
	"testing"

	rosterstore "maktabhub/internal/app/store/roster"
	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/app/system/search"
	"maktabhub/internal/domain/models"
	"maktabhub/internal/testutil"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestCreateGroup_StartsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")

	created, err := store.CreateGroup(ctx, namespace.Teacher, models.RosterGroup{
		Key:       rosterstore.ClassKey(3, "A"),
		Number:    3,
		Name:      "A",
		OwnerID:   teacher.ID,
		OwnerName: teacher.FullName,
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if created.Key != "3-A" {
		t.Errorf("Key: got %q, want %q", created.Key, "3-A")
	}

	got, err := store.GetGroup(ctx, namespace.Teacher, "3-A")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if got.MemberCount != 0 {
		t.Errorf("MemberCount: got %d, want 0", got.MemberCount)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestCreateGroup_DuplicateKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	fixtures.CreateClass(ctx, "3-A", 3, "A", teacher)

	_, err := store.CreateGroup(ctx, namespace.Teacher, models.RosterGroup{
		Key: "3-A", Number: 3, Name: "A", OwnerID: teacher.ID,
	})
	if err != rosterstore.ErrGroupExists {
		t.Errorf("expected ErrGroupExists, got %v", err)
	}
}

func TestCreateGroup_RacingSameKey_OneWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateGroup(ctx, namespace.Teacher, models.RosterGroup{
				Key: "3-A", Number: 3, Name: "A", OwnerID: teacher.ID,
			})
		}(i)
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch err {
		case nil:
			ok++
		case rosterstore.ErrGroupExists:
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Errorf("got %d successes and %d duplicates, want exactly 1 of each", ok, dup)
	}
}

func TestCreateGroup_CaregiverKeyGenerated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	caregiver := fixtures.CreateUser(ctx, "Nodira Azimova", "nodira@test.com", models.RoleCaregiver)

	created, err := store.CreateGroup(ctx, namespace.Caregiver, models.RosterGroup{
		Name: "Quyoshcha", OwnerID: caregiver.ID, OwnerName: caregiver.FullName,
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if created.Key == "" {
		t.Error("expected a generated key for the caregiver namespace")
	}
	if created.Label() != "Quyoshcha" {
		t.Errorf("Label: got %q, want %q", created.Label(), "Quyoshcha")
	}
}

func TestEnrollMember_IncrementsCounterAndDenormalizesLabel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)

	m, err := store.EnrollMember(ctx, namespace.Teacher, "1-A", models.Member{
		FirstName: "Ali", LastName: "Karimov", OwnerID: teacher.ID,
	})
	if err != nil {
		t.Fatalf("EnrollMember: %v", err)
	}
	if m.GroupLabel != "1-A" {
		t.Errorf("GroupLabel: got %q, want %q", m.GroupLabel, "1-A")
	}

	g, err := store.GetGroup(ctx, namespace.Teacher, "1-A")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.MemberCount != 1 {
		t.Errorf("MemberCount: got %d, want 1", g.MemberCount)
	}
}

func TestEnrollMember_NonexistentGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.EnrollMember(ctx, namespace.Teacher, "9-Z", models.Member{FirstName: "Ali"})
	if err != rosterstore.ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	// The failed enroll must leave zero new documents behind.
	n, err := db.Collection(namespace.Teacher.Members).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 0 {
		t.Errorf("members collection has %d documents, want 0", n)
	}
}

func TestEnrollMember_ConcurrentNoLostUpdates(t *testing.T) {
	for _, n := range []int{1, 5, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			testutil.RequireReplicaSet(t, db)
			store := rosterstore.New(db, zap.NewNop())
			fixtures := testutil.NewFixtures(t, db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
			fixtures.CreateClass(ctx, "2-B", 2, "B", teacher)

			var wg sync.WaitGroup
			errs := make([]error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = store.EnrollMember(ctx, namespace.Teacher, "2-B", models.Member{
						FirstName: "Student", OwnerID: teacher.ID,
					})
				}(i)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
				} else if err != rosterstore.ErrGroupNotFound {
					t.Logf("enroll error: %v", err)
				}
			}

			g, err := store.GetGroup(ctx, namespace.Teacher, "2-B")
			if err != nil {
				t.Fatalf("GetGroup: %v", err)
			}
			if g.MemberCount != int64(succeeded) {
				t.Errorf("MemberCount: got %d, want %d (successful enrolls)", g.MemberCount, succeeded)
			}

			actual, err := db.Collection(namespace.Teacher.Members).CountDocuments(ctx, bson.M{"group_id": "2-B"})
			if err != nil {
				t.Fatalf("CountDocuments: %v", err)
			}
			if actual != g.MemberCount {
				t.Errorf("counter drifted: stored %d, actual %d", g.MemberCount, actual)
			}
		})
	}
}

func TestDeleteGroup_RefusedWhileOccupied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "4-C", 4, "C", teacher)
	fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")

	if err := store.DeleteGroup(ctx, namespace.Teacher, "4-C"); err != rosterstore.ErrGroupNotEmpty {
		t.Fatalf("expected ErrGroupNotEmpty, got %v", err)
	}

	// Refusal leaves the store unchanged.
	if _, err := store.GetGroup(ctx, namespace.Teacher, "4-C"); err != nil {
		t.Errorf("group should still exist: %v", err)
	}
}

func TestDeleteGroup_EmptySucceeds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	fixtures.CreateClass(ctx, "4-C", 4, "C", teacher)

	if err := store.DeleteGroup(ctx, namespace.Teacher, "4-C"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := store.GetGroup(ctx, namespace.Teacher, "4-C"); err != rosterstore.ErrGroupNotFound {
		t.Errorf("expected ErrGroupNotFound after delete, got %v", err)
	}
}

func TestDeleteGroup_Missing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.DeleteGroup(ctx, namespace.Teacher, "9-Z"); err != rosterstore.ErrGroupNotFound {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestRenameGroup_SameKeyUpdatesAttrsOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")

	got, err := store.RenameGroup(ctx, namespace.Teacher, "1-A", "1-A", 1, "A")
	if err != nil {
		t.Fatalf("RenameGroup: %v", err)
	}
	if got.Key != "1-A" {
		t.Errorf("Key changed on same-key rename: %q", got.Key)
	}
	if got.MemberCount != 1 {
		t.Errorf("MemberCount: got %d, want 1", got.MemberCount)
	}
}

func TestRenameGroup_CaregiverRefreshesMemberLabels(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	caregiver := fixtures.CreateUser(ctx, "Nodira Azimova", "nodira@test.com", models.RoleCaregiver)
	group := fixtures.CreateKindergartenGroup(ctx, "Quyoshcha", caregiver)
	fixtures.EnrollRaw(ctx, namespace.Caregiver, group, "Madina", "")

	// Caregiver renames keep the generated key; only the name changes.
	renamed, err := store.RenameGroup(ctx, namespace.Caregiver, group.Key, group.Key, 0, "Yulduzcha")
	if err != nil {
		t.Fatalf("RenameGroup: %v", err)
	}
	if renamed.Key != group.Key {
		t.Errorf("Key changed on caregiver rename: %q", renamed.Key)
	}

	members, err := store.ListMembers(ctx, namespace.Caregiver, group.Key)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("got %d members, want 1", len(members))
	}
	if members[0].GroupLabel != "Yulduzcha" {
		t.Errorf("label: got %q, want %q", members[0].GroupLabel, "Yulduzcha")
	}

	// Searching by group label follows the rename.
	if got := search.FilterMembers(members, "Yulduzcha"); len(got) != 1 {
		t.Errorf("search by new name found %d members, want 1", len(got))
	}
	if got := search.FilterMembers(members, "Quyoshcha"); len(got) != 0 {
		t.Errorf("search by old name found %d members, want 0", len(got))
	}
}

func TestRenameGroup_RepointsAllMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	m1 := fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")
	m2 := fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Vali", "Toshev")

	renamed, err := store.RenameGroup(ctx, namespace.Teacher, "1-A", "2-A", 2, "A")
	if err != nil {
		t.Fatalf("RenameGroup: %v", err)
	}
	if renamed.Key != "2-A" || renamed.Number != 2 {
		t.Errorf("renamed = %+v", renamed)
	}
	if renamed.MemberCount != 2 {
		t.Errorf("MemberCount not retained: got %d, want 2", renamed.MemberCount)
	}

	// Old key is gone.
	if _, err := store.GetGroup(ctx, namespace.Teacher, "1-A"); err != rosterstore.ErrGroupNotFound {
		t.Errorf("old key should be gone, got %v", err)
	}

	// Exactly the same members, now referencing the new key with a fresh label.
	moved, err := store.ListMembers(ctx, namespace.Teacher, "2-A")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(moved) != 2 {
		t.Fatalf("got %d members under new key, want 2", len(moved))
	}
	ids := map[string]bool{m1.ID.Hex(): false, m2.ID.Hex(): false}
	for _, m := range moved {
		ids[m.ID.Hex()] = true
		if m.GroupLabel != "2-A" {
			t.Errorf("member %s label: got %q, want %q", m.FirstName, m.GroupLabel, "2-A")
		}
	}
	for id, seen := range ids {
		if !seen {
			t.Errorf("member %s was not re-pointed", id)
		}
	}

	remaining, err := store.ListMembers(ctx, namespace.Teacher, "1-A")
	if err != nil {
		t.Fatalf("ListMembers(old): %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d members still reference the old key", len(remaining))
	}
}

func TestRenameGroup_TargetKeyTaken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	fixtures.CreateClass(ctx, "2-A", 2, "A", teacher)

	_, err := store.RenameGroup(ctx, namespace.Teacher, "1-A", "2-A", 2, "A")
	if err != rosterstore.ErrGroupExists {
		t.Errorf("expected ErrGroupExists, got %v", err)
	}
}

func TestUnenrollMember_DecrementsCounter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	m := fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")

	if err := store.UnenrollMember(ctx, namespace.Teacher, m.ID, "1-A"); err != nil {
		t.Fatalf("UnenrollMember: %v", err)
	}

	g, err := store.GetGroup(ctx, namespace.Teacher, "1-A")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.MemberCount != 0 {
		t.Errorf("MemberCount: got %d, want 0", g.MemberCount)
	}

	if err := store.UnenrollMember(ctx, namespace.Teacher, m.ID, "1-A"); err != rosterstore.ErrMemberNotFound {
		t.Errorf("expected ErrMemberNotFound on second unenroll, got %v", err)
	}
}

func TestRenameMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	m := fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")

	if err := store.RenameMember(ctx, namespace.Teacher, m.ID, "Alisher", "Karimov"); err != nil {
		t.Fatalf("RenameMember: %v", err)
	}

	members, err := store.ListMembers(ctx, namespace.Teacher, "1-A")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 || members[0].FirstName != "Alisher" {
		t.Errorf("members = %+v", members)
	}

	// Counter untouched by a rename.
	g, _ := store.GetGroup(ctx, namespace.Teacher, "1-A")
	if g.MemberCount != 1 {
		t.Errorf("MemberCount: got %d, want 1", g.MemberCount)
	}
}

func TestReconcile_RepairsDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireReplicaSet(t, db)
	store := rosterstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teacher := fixtures.CreateTeacher(ctx, "Dilnoza Yusupova", "dilnoza@test.com")
	class := fixtures.CreateClass(ctx, "1-A", 1, "A", teacher)
	fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Ali", "Karimov")
	fixtures.EnrollRaw(ctx, namespace.Teacher, class, "Vali", "Toshev")

	// Sabotage the counter.
	if _, err := db.Collection(namespace.Teacher.Groups).UpdateOne(ctx,
		bson.M{"_id": "1-A"}, bson.M{"$set": bson.M{"member_count": 7}}); err != nil {
		t.Fatalf("sabotage: %v", err)
	}

	repaired, err := store.Reconcile(ctx, namespace.Teacher)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired: got %d, want 1", repaired)
	}

	g, _ := store.GetGroup(ctx, namespace.Teacher, "1-A")
	if g.MemberCount != 2 {
		t.Errorf("MemberCount after reconcile: got %d, want 2", g.MemberCount)
	}
}
