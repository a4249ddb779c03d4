package repository_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"anoa.com/peerlink/internal/modules/student/repository"
	"anoa.com/peerlink/internal/testutil/pgtest"
	"anoa.com/peerlink/pkg/apperror"
	"github.com/google/uuid"
)

func TestSearchMatchesSkillsAndName(t *testing.T) {
	db := pgtest.Open(t)
	repo := repository.NewStudentRepository(db)
	ctx := context.Background()
	tag := uuid.NewString()[:8]
	skill := "Rust-" + tag

	viewer, _ := pgtest.NewStudent(t, db, "viewer-"+tag, skill)
	_, alice := pgtest.NewStudent(t, db, "alice-"+tag, skill, "Go")
	_, bob := pgtest.NewStudent(t, db, "bob_"+tag, "Go")

	bySkill, err := repo.Search(ctx, repository.StudentFilter{
		Skills:        []string{" " + strings.ToUpper(skill) + " "},
		ExcludeUserID: viewer.ID,
	})
	if err != nil {
		t.Fatalf("Search by skill: %v", err)
	}
	if len(bySkill) != 1 || bySkill[0].ID != alice.ID {
		t.Fatalf("Search by skill = %+v", bySkill)
	}
	if bySkill[0].User == nil || bySkill[0].User.Name != "alice-"+tag {
		t.Fatalf("User not joined: %+v", bySkill[0].User)
	}

	byName, err := repo.Search(ctx, repository.StudentFilter{Name: "BOB_" + tag, ExcludeUserID: viewer.ID})
	if err != nil || len(byName) != 1 || byName[0].ID != bob.ID {
		t.Fatalf("Search by name = %+v, %v", byName, err)
	}

	// "_" is literal, not a LIKE wildcard.
	if got, _ := repo.Search(ctx, repository.StudentFilter{Name: "alice_" + tag, ExcludeUserID: viewer.ID}); len(got) != 0 {
		t.Fatalf("wildcard leaked: %+v", got)
	}

	names, err := repo.DistinctSkillNames(ctx)
	if err != nil {
		t.Fatalf("DistinctSkillNames: %v", err)
	}
	count := 0
	for _, n := range names {
		if n == skill {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%s listed %d times", skill, count)
	}
}

func TestFindByIDsAndSave(t *testing.T) {
	db := pgtest.Open(t)
	repo := repository.NewStudentRepository(db)
	ctx := context.Background()
	aliceUser, alice := pgtest.NewStudent(t, db, "alice")
	bobUser, bob := pgtest.NewStudent(t, db, "bob")

	alice.AddConnection(bobUser.ID)
	if err := repo.Save(ctx, alice); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.FindByUserID(ctx, aliceUser.ID)
	if err != nil {
		t.Fatalf("FindByUserID: %v", err)
	}
	if !got.IsConnectedTo(bobUser.ID) || got.ConnectionCount != 1 {
		t.Fatalf("connections not persisted: %+v", got.Connections)
	}

	profiles, err := repo.FindByUserIDs(ctx, []uuid.UUID{aliceUser.ID, bobUser.ID})
	if err != nil || len(profiles) != 2 {
		t.Fatalf("FindByUserIDs = %d, %v", len(profiles), err)
	}
	ids := []uuid.UUID{profiles[0].ID, profiles[1].ID}
	if !slices.Contains(ids, alice.ID) || !slices.Contains(ids, bob.ID) {
		t.Fatalf("FindByUserIDs ids = %v", ids)
	}

	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("missing profile: got %v", err)
	}
}
