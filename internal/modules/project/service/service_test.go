package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"anoa.com/peerlink/internal/entity"
	notification "anoa.com/peerlink/internal/modules/notification/service"
	"anoa.com/peerlink/internal/modules/project/dto"
	"anoa.com/peerlink/internal/testutil"
	"anoa.com/peerlink/pkg/apperror"
	"github.com/google/uuid"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *testutil.Store
	notifier *testutil.Notifier
	svc      *projectService
}

func newFixture() *fixture {
	store := testutil.NewStore()
	f := &fixture{store: store, notifier: &testutil.Notifier{}}
	f.svc = NewProjectService(store.Projects(), store.Sponsors(), store.Students(), store, f.notifier).(*projectService)
	f.svc.now = func() time.Time { return now }
	return f
}

func input(title string) dto.ProjectInput {
	return dto.ProjectInput{
		Title:               title,
		Description:         "build a thing",
		SkillsRequired:      []string{"Go"},
		StartDate:           now.AddDate(0, 1, 0),
		EndDate:             now.AddDate(0, 3, 0),
		ApplicationDeadline: now.AddDate(0, 0, 14),
	}
}

func TestCreateProject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, profile := f.store.NewSponsor(t, "acme")

	p, err := f.svc.Create(ctx, sponsor.ID, input("<b>Data pipeline</b>"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != entity.ProjectPending || p.SponsorID != profile.ID {
		t.Fatalf("unexpected project %+v", p)
	}
	if p.Title != "Data pipeline" {
		t.Fatalf("title not sanitized: %q", p.Title)
	}
	if len(p.EnrolledStudents) != 0 || len(p.SelectedStudents) != 0 {
		t.Fatalf("new project should have empty lists: %+v", p)
	}
}

func TestCreateProjectStartsPendingAndUnselected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")

	in := input("p")
	in.Status = entity.ProjectComplete
	in.SelectedStudents = []uuid.UUID{uuid.New()}
	p, err := f.svc.Create(ctx, sponsor.ID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got := f.store.Project(t, p.ID)
	if got.Status != entity.ProjectPending || len(got.SelectedStudents) != 0 {
		t.Fatalf("created status=%s selected=%v", got.Status, got.SelectedStudents)
	}

	section := dto.SectionProjectInput{ProjectInput: in}
	projects, err := f.svc.ReplaceAll(ctx, sponsor.ID, []dto.SectionProjectInput{section})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if projects[0].Status != entity.ProjectPending || len(projects[0].SelectedStudents) != 0 {
		t.Fatalf("section-created status=%s selected=%v", projects[0].Status, projects[0].SelectedStudents)
	}
}

func TestClosedProjectCannotReopen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, _ := f.store.NewStudent(t, "alice")

	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))
	closed := input("p")
	closed.Status = entity.ProjectComplete
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, closed); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, closed); err != nil {
		t.Fatalf("same status: %v", err)
	}

	reopen := input("p")
	reopen.Status = entity.ProjectPending
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, reopen); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("complete -> pending: got %v", err)
	}
	flip := input("p")
	flip.Status = entity.ProjectIncomplete
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, flip); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("complete -> incomplete: got %v", err)
	}

	section := dto.SectionProjectInput{ID: &p.ID, ProjectInput: reopen}
	if _, err := f.svc.ReplaceAll(ctx, sponsor.ID, []dto.SectionProjectInput{section}); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("section reopen: got %v", err)
	}

	if got := f.store.Project(t, p.ID); got.Status != entity.ProjectComplete {
		t.Fatalf("status = %s", got.Status)
	}
	if _, err := f.svc.Apply(ctx, student.ID, p.ID); !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("apply to closed project: got %v", err)
	}

	// Omitting the status leaves it as is.
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, input("renamed")); err != nil {
		t.Fatalf("update without status: %v", err)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")

	negative := -1.0
	cases := map[string]func(*dto.ProjectInput){
		"missing title":    func(in *dto.ProjectInput) { in.Title = " " },
		"end before start": func(in *dto.ProjectInput) { in.EndDate = in.StartDate.Add(-time.Hour) },
		"negative budget":  func(in *dto.ProjectInput) { in.Budget = &negative },
		"unknown status":   func(in *dto.ProjectInput) { in.Status = "archived" },
		"no deadline":      func(in *dto.ProjectInput) { in.ApplicationDeadline = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input("p")
			mutate(&in)
			if _, err := f.svc.Create(ctx, sponsor.ID, in); !errors.Is(err, apperror.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner, _ := f.store.NewSponsor(t, "acme")
	other, _ := f.store.NewSponsor(t, "globex")

	p, err := f.svc.Create(ctx, owner.ID, input("p"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Update(ctx, other.ID, p.ID, input("stolen")); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("update by other sponsor: got %v", err)
	}
	if err := f.svc.Delete(ctx, other.ID, p.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("delete by other sponsor: got %v", err)
	}
	if _, err := f.svc.Update(ctx, owner.ID, uuid.New(), input("x")); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("update missing: got %v", err)
	}

	in := input("renamed")
	in.Status = entity.ProjectComplete
	updated, err := f.svc.Update(ctx, owner.ID, p.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" || updated.Status != entity.ProjectComplete {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := f.svc.Delete(ctx, owner.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, owner.ID, p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestUpdateKeepsEnrollment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, _ := f.store.NewStudent(t, "alice")

	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))
	if _, err := f.svc.Apply(ctx, student.ID, p.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := f.svc.Update(ctx, sponsor.ID, p.ID, input("p2")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := f.store.Project(t, p.ID); len(got.EnrolledStudents) != 1 {
		t.Fatalf("update dropped enrollment: %v", got.EnrolledStudents)
	}
}

func TestApply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, profile := f.store.NewStudent(t, "alice")

	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))
	app, err := f.svc.Apply(ctx, student.ID, p.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Status != entity.ApplicationPending || !app.AppliedDate.Equal(now) {
		t.Fatalf("unexpected application %+v", app)
	}

	if _, err := f.svc.Apply(ctx, student.ID, p.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second apply: got %v", err)
	}

	got := f.store.Student(t, student.ID)
	if len(got.AppliedProjects) != 1 || got.AppliedProjects[0].ProjectID != p.ID {
		t.Fatalf("applied projects = %+v", got.AppliedProjects)
	}
	if pr := f.store.Project(t, p.ID); len(pr.EnrolledStudents) != 1 || pr.EnrolledStudents[0] != profile.ID {
		t.Fatalf("enrolled = %v", pr.EnrolledStudents)
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0].UserID != sponsor.ID || events[0].Event.Type != notification.EventProjectApplied {
		t.Fatalf("expected one applied event for the sponsor, got %+v", events)
	}
}

func TestApplyRejectsClosedProjects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, _ := f.store.NewStudent(t, "alice")

	late := input("late")
	late.ApplicationDeadline = now.Add(-time.Minute)
	p1, _ := f.svc.Create(ctx, sponsor.ID, late)

	p2, _ := f.svc.Create(ctx, sponsor.ID, input("done"))
	done := input("done")
	done.Status = entity.ProjectComplete
	if _, err := f.svc.Update(ctx, sponsor.ID, p2.ID, done); err != nil {
		t.Fatalf("close project: %v", err)
	}

	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		if _, err := f.svc.Apply(ctx, student.ID, id); !errors.Is(err, apperror.ErrInvalidState) {
			t.Fatalf("apply to closed project: got %v", err)
		}
	}
	if _, err := f.svc.Apply(ctx, student.ID, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("apply to missing project: got %v", err)
	}
	if got := f.store.Student(t, student.ID); len(got.AppliedProjects) != 0 {
		t.Fatalf("failed applies left entries: %+v", got.AppliedProjects)
	}
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, _ := f.store.NewStudent(t, "alice")
	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))

	f.store.FailSave = errors.New("disk full")
	if _, err := f.svc.Apply(ctx, student.ID, p.ID); err == nil {
		t.Fatal("expected save failure")
	}
	if pr := f.store.Project(t, p.ID); len(pr.EnrolledStudents) != 0 {
		t.Fatalf("enrollment survived rollback: %v", pr.EnrolledStudents)
	}

	if _, err := f.svc.Apply(ctx, student.ID, p.ID); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestConcurrentApplyKeepsOneEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, _ := f.store.NewStudent(t, "alice")
	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Apply(ctx, student.ID, p.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, apperror.ErrConflict) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d applies succeeded", succeeded)
	}
	if got := f.store.Student(t, student.ID); len(got.AppliedProjects) != 1 {
		t.Fatalf("applied = %+v", got.AppliedProjects)
	}
	if pr := f.store.Project(t, p.ID); len(pr.EnrolledStudents) != 1 {
		t.Fatalf("enrolled = %v", pr.EnrolledStudents)
	}
}

func TestToggleSelection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	other, _ := f.store.NewSponsor(t, "globex")
	student, profile := f.store.NewStudent(t, "alice")
	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))

	res, err := f.svc.ToggleSelection(ctx, sponsor.ID, p.ID, profile.ID)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !res.Selected || len(res.SelectedStudents) != 1 {
		t.Fatalf("unexpected selection %+v", res)
	}

	res, err = f.svc.ToggleSelection(ctx, sponsor.ID, p.ID, profile.ID)
	if err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if res.Selected || len(res.SelectedStudents) != 0 {
		t.Fatalf("unexpected deselection %+v", res)
	}

	if _, err := f.svc.ToggleSelection(ctx, other.ID, p.ID, profile.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("toggle by other sponsor: got %v", err)
	}
	if _, err := f.svc.ToggleSelection(ctx, sponsor.ID, p.ID, uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("toggle unknown student: got %v", err)
	}

	events := f.notifier.Events()
	if len(events) != 2 || events[0].UserID != student.ID ||
		events[0].Event.Type != notification.EventProjectSelected ||
		events[1].Event.Type != notification.EventProjectDeselected {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestReplaceAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	other, _ := f.store.NewSponsor(t, "globex")
	student, profile := f.store.NewStudent(t, "alice")

	keep, _ := f.svc.Create(ctx, sponsor.ID, input("keep"))
	drop, _ := f.svc.Create(ctx, sponsor.ID, input("drop"))
	foreign, _ := f.svc.Create(ctx, other.ID, input("foreign"))
	if _, err := f.svc.Apply(ctx, student.ID, keep.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}

	updated := dto.SectionProjectInput{ID: &keep.ID, ProjectInput: input("kept")}
	created := dto.SectionProjectInput{ProjectInput: input("fresh")}
	projects, err := f.svc.ReplaceAll(ctx, sponsor.ID, []dto.SectionProjectInput{updated, created})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}

	own, _ := f.svc.ListOwn(ctx, sponsor.ID)
	if len(own) != 2 {
		t.Fatalf("sponsor has %d projects", len(own))
	}
	if _, err := f.store.Projects().FindByID(ctx, drop.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unlisted project survived: %v", err)
	}
	k := f.store.Project(t, keep.ID)
	if k.Title != "kept" || len(k.EnrolledStudents) != 1 || k.EnrolledStudents[0] != profile.ID {
		t.Fatalf("kept project lost state: %+v", k)
	}

	withEnrolled := dto.SectionProjectInput{ProjectInput: input("x"), EnrolledStudents: json.RawMessage(`["` + profile.ID.String() + `"]`)}
	if _, err := f.svc.ReplaceAll(ctx, sponsor.ID, []dto.SectionProjectInput{withEnrolled}); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("enrolledStudents in input: got %v", err)
	}

	steal := dto.SectionProjectInput{ID: &foreign.ID, ProjectInput: input("mine")}
	if _, err := f.svc.ReplaceAll(ctx, sponsor.ID, []dto.SectionProjectInput{steal}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("foreign id: got %v", err)
	}
	if own, _ := f.svc.ListOwn(ctx, sponsor.ID); len(own) != 2 {
		t.Fatalf("failed replace changed the set: %d projects", len(own))
	}
	if got := f.store.Project(t, foreign.ID); got.Title != "foreign" {
		t.Fatalf("foreign project modified: %+v", got)
	}
}

func TestStudentProjectViews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, _ := f.store.NewSponsor(t, "acme")
	student, profile := f.store.NewStudent(t, "alice")

	applied, _ := f.svc.Create(ctx, sponsor.ID, input("applied"))
	open, _ := f.svc.Create(ctx, sponsor.ID, input("open"))
	gone, _ := f.svc.Create(ctx, sponsor.ID, input("gone"))

	for _, id := range []uuid.UUID{applied.ID, gone.ID} {
		if _, err := f.svc.Apply(ctx, student.ID, id); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if _, err := f.svc.ToggleSelection(ctx, sponsor.ID, applied.ID, profile.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := f.svc.Delete(ctx, sponsor.ID, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	available, err := f.svc.ListAvailable(ctx, student.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	flags := map[uuid.UUID]bool{}
	for _, a := range available {
		flags[a.ID] = a.HasApplied
		if a.SponsorName != "acme" {
			t.Fatalf("sponsor name = %q", a.SponsorName)
		}
	}
	if len(available) != 2 || !flags[applied.ID] || flags[open.ID] {
		t.Fatalf("unexpected available list %+v", available)
	}

	views, err := f.svc.ListStudentProjects(ctx, student.ID)
	if err != nil {
		t.Fatalf("student projects: %v", err)
	}
	if len(views.AppliedProjects) != 1 || views.AppliedProjects[0].ProjectID != applied.ID {
		t.Fatalf("applied views = %+v", views.AppliedProjects)
	}
	if len(views.SelectedProjects) != 1 || views.SelectedProjects[0].Title != "applied" {
		t.Fatalf("selected views = %+v", views.SelectedProjects)
	}

	raw, err := f.svc.ListApplied(ctx, student.ID)
	if err != nil || len(raw) != 2 {
		t.Fatalf("raw applied = %+v, %v", raw, err)
	}
}

func TestListEnrolledStudents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sponsor, sponsorProfile := f.store.NewSponsor(t, "acme")
	other, _ := f.store.NewSponsor(t, "globex")
	student, profile := f.store.NewStudent(t, "alice")

	p, _ := f.svc.Create(ctx, sponsor.ID, input("p"))
	if _, err := f.svc.Apply(ctx, student.ID, p.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}

	res, err := f.svc.ListEnrolledStudents(ctx, sponsor.ID, p.ID)
	if err != nil {
		t.Fatalf("enrolled: %v", err)
	}
	if len(res.Students) != 1 || res.Students[0].ProfileID != profile.ID || res.Students[0].Name != "alice" {
		t.Fatalf("unexpected enrolled list %+v", res)
	}
	if res.SelectedStudents == nil {
		t.Fatal("selectedStudents should be an empty list, not null")
	}

	if _, err := f.svc.ListEnrolledStudents(ctx, other.ID, p.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("other sponsor: got %v", err)
	}

	summaries, err := f.svc.ListBySponsor(ctx, sponsorProfile.ID)
	if err != nil || len(summaries) != 1 || summaries[0].SponsorName != "acme" {
		t.Fatalf("by sponsor = %+v, %v", summaries, err)
	}
}
