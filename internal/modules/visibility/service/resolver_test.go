package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/testutil"
	"github.com/google/uuid"
)

func sampleProfile() *entity.StudentProfile {
	dob := time.Date(2001, 5, 4, 0, 0, 0, 0, time.UTC)
	return &entity.StudentProfile{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Headline:        "Backend student",
		Education:       "BSc Informatics",
		Location:        "Bandung",
		BackgroundImage: "bg.webp",
		Skills: []entity.Skill{
			{Name: "Go", LearningPath: []string{"tour", "gophercises"}, Resources: []string{"https://go.dev"}},
		},
		Projects:        []entity.StudentProject{{ID: uuid.New(), Title: "peerlink"}},
		Interests:       []string{"databases"},
		Contact:         entity.StudentContact{Email: "s@example.com", Phone: "0812", DOB: &dob, PortfolioLink: "https://s.dev"},
		ConnectionCount: 3,
	}
}

func TestResolve(t *testing.T) {
	target := sampleProfile()
	student := Viewer{UserID: uuid.New(), Role: entity.RoleStudent}
	sponsor := Viewer{UserID: uuid.New(), Role: entity.RoleSponsor}
	self := Viewer{UserID: target.UserID, Role: entity.RoleStudent}

	tests := []struct {
		name       string
		viewer     Viewer
		rel        Relationship
		wantStatus ConnectionStatus
		wantFull   bool
		wantSkills bool
	}{
		{"stranger", student, Relationship{}, StatusNone, false, true},
		{"pending", student, Relationship{Pending: true}, StatusPending, false, true},
		{"connected", student, Relationship{Connected: true}, StatusConnected, true, true},
		{"sponsor without link", sponsor, Relationship{}, StatusNone, false, false},
		{"sponsor with enrollment", sponsor, Relationship{Enrolled: true}, StatusSponsor, true, true},
		{"sponsor connected", sponsor, Relationship{Connected: true}, StatusSponsor, true, true},
		{"self", self, Relationship{}, StatusSelf, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Resolve(tt.viewer, target, "Sari", tt.rel)

			if view.ConnectionStatus != tt.wantStatus {
				t.Errorf("status = %s, want %s", view.ConnectionStatus, tt.wantStatus)
			}
			if view.FullAccess != tt.wantFull || CanAccess(tt.viewer, target, tt.rel) != tt.wantFull {
				t.Errorf("full access = %v, want %v", view.FullAccess, tt.wantFull)
			}
			if view.Name != "Sari" || view.Headline != target.Headline || view.Location != target.Location {
				t.Errorf("base fields missing: %+v", view)
			}

			gated := view.ContactInfo != nil || view.Education != nil || view.Projects != nil || view.Interests != nil
			if gated != tt.wantFull {
				t.Errorf("gated sections present = %v, want %v", gated, tt.wantFull)
			}

			if tt.wantSkills {
				if len(view.Skills) != 1 || len(view.Skills[0].LearningPath) != 2 {
					t.Errorf("expected full skills, got %+v", view.Skills)
				}
			} else {
				if view.Skills != nil || len(view.SkillNames) != 1 || view.SkillNames[0] != "Go" {
					t.Errorf("expected skill names only, got skills=%+v names=%v", view.Skills, view.SkillNames)
				}
				if view.ConnectionCount != nil || view.BackgroundImage != "" {
					t.Error("limited view leaked base detail")
				}
			}
		})
	}
}

func TestResolveShowsBirthDateOnlyToSelf(t *testing.T) {
	target := sampleProfile()

	own := Resolve(Viewer{UserID: target.UserID, Role: entity.RoleStudent}, target, "Sari", Relationship{})
	if own.ContactInfo == nil || own.ContactInfo.DOB == nil {
		t.Fatal("owner should see date of birth")
	}

	peer := Resolve(Viewer{UserID: uuid.New(), Role: entity.RoleStudent}, target, "Sari", Relationship{Connected: true})
	if peer.ContactInfo == nil || peer.ContactInfo.DOB != nil {
		t.Fatalf("connected peer contact = %+v", peer.ContactInfo)
	}
	if peer.ContactInfo.Email != "s@example.com" || peer.ContactInfo.PortfolioLink != "https://s.dev" {
		t.Fatalf("connected peer contact = %+v", peer.ContactInfo)
	}
}

func TestResolveDoesNotAliasProfile(t *testing.T) {
	target := sampleProfile()
	view := Resolve(Viewer{UserID: target.UserID, Role: entity.RoleStudent}, target, "Sari", Relationship{})

	view.Skills[0].LearningPath[0] = "changed"
	view.Interests[0] = "changed"
	if target.Skills[0].LearningPath[0] != "tour" || target.Interests[0] != "databases" {
		t.Fatal("view shares slices with the profile")
	}
}

func TestFactsLoader(t *testing.T) {
	store := testutil.NewStore()
	ctx := context.Background()
	loader := NewFactsLoader(store.Connections(), store.Sponsors(), store.Projects())

	alice, _ := store.NewStudent(t, "alice")
	bob, _ := store.NewStudent(t, "bob")
	carol, _ := store.NewStudent(t, "carol")
	acme, acmeProfile := store.NewSponsor(t, "acme")

	if err := store.Connections().Create(ctx, &entity.ConnectionRequest{
		SenderID: bob.ID, ReceiverID: alice.ID, Status: entity.ConnectionPending,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	bobProfile := store.Student(t, bob.ID)

	carolProfile := store.Student(t, carol.ID)
	carolProfile.AddConnection(alice.ID)
	if err := store.Students().Save(ctx, carolProfile); err != nil {
		t.Fatalf("save: %v", err)
	}

	aliceViewer := Viewer{UserID: alice.ID, Role: entity.RoleStudent}
	rel, err := loader.Load(ctx, aliceViewer, bobProfile)
	if err != nil || !rel.Pending || rel.Connected {
		t.Fatalf("alice->bob = %+v, err = %v", rel, err)
	}
	rel, err = loader.Load(ctx, aliceViewer, carolProfile)
	if err != nil || !rel.Connected || rel.Pending {
		t.Fatalf("alice->carol = %+v, err = %v", rel, err)
	}

	project := &entity.Project{SponsorID: acmeProfile.ID, Title: "t", Description: "d"}
	project.Enroll(bobProfile.ID)
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	sponsorViewer := Viewer{UserID: acme.ID, Role: entity.RoleSponsor}
	rel, err = loader.Load(ctx, sponsorViewer, bobProfile)
	if err != nil || !rel.Enrolled {
		t.Fatalf("acme->bob = %+v, err = %v", rel, err)
	}

	many, err := loader.LoadMany(ctx, sponsorViewer, []entity.StudentProfile{*bobProfile, *carolProfile})
	if err != nil {
		t.Fatalf("load many: %v", err)
	}
	if !many[bob.ID].Enrolled || many[carol.ID].Enrolled {
		t.Fatalf("sponsor relationships = %+v", many)
	}

	many, err = loader.LoadMany(ctx, aliceViewer, []entity.StudentProfile{*bobProfile, *carolProfile})
	if err != nil {
		t.Fatalf("load many: %v", err)
	}
	if !many[bob.ID].Pending || !many[carol.ID].Connected || many[carol.ID].Pending {
		t.Fatalf("student relationships = %+v", many)
	}
}
