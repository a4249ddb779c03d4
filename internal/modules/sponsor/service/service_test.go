package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	projectService "anoa.com/peerlink/internal/modules/project/service"
	"anoa.com/peerlink/internal/modules/sponsor/dto"
	"anoa.com/peerlink/internal/testutil"
	"anoa.com/peerlink/pkg/apperror"
	commonDto "anoa.com/peerlink/pkg/dto"
)

type fixture struct {
	store  *testutil.Store
	images *testutil.Images
	svc    SponsorService
}

func newFixture() *fixture {
	store := testutil.NewStore()
	images := &testutil.Images{}
	workflow := projectService.NewProjectService(store.Projects(), store.Sponsors(), store.Students(), store, &testutil.Notifier{})
	return &fixture{
		store:  store,
		images: images,
		svc:    NewSponsorService(store.Sponsors(), store.Users(), store.Projects(), workflow, store, images),
	}
}

func decode(t *testing.T, section dto.Section, data string) dto.SectionUpdate {
	t.Helper()
	u, err := dto.DecodeSection(section, []byte(data), nil)
	if err != nil {
		t.Fatalf("decode %s: %v", section, err)
	}
	return u
}

func TestUpdateBasicInfo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user, _ := f.store.NewSponsor(t, "acme")

	res, err := f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionBasicInfo,
		`{"name":"Acme Labs","bio":"<script>x</script>We fund things"}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Name != "Acme Labs" || res.Bio != "We fund things" {
		t.Fatalf("unexpected profile %+v", res)
	}

	u, _ := f.store.Users().FindByID(ctx, user.ID)
	if u.Name != "Acme Labs" {
		t.Fatalf("user name = %q", u.Name)
	}

	res, err = f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionBasicInfo, `{"location":"Bandung"}`))
	if err != nil {
		t.Fatalf("partial update: %v", err)
	}
	if res.Bio != "We fund things" || res.Location != "Bandung" {
		t.Fatalf("omitted fields should be kept: %+v", res)
	}
}

func TestUpdateContactInfo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user, _ := f.store.NewSponsor(t, "acme")

	res, err := f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionContactInfo, `{"email":"Hi@Acme.io","phone":"+62 811"}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.ContactInfo.Email != "hi@acme.io" || res.ContactInfo.Phone != "+62 811" {
		t.Fatalf("contact = %+v", res.ContactInfo)
	}

	if _, err := dto.DecodeSection(dto.SectionContactInfo, []byte(`{"email":"nope"}`), nil); err == nil {
		t.Fatal("expected invalid email to fail validation")
	}
}

func TestUpdateLogoReplacesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user, _ := f.store.NewSponsor(t, "acme")

	upload := func(name string) dto.SectionUpdate {
		u, err := dto.DecodeSection(dto.SectionProfileLogo, nil, &commonDto.UploadFile{Reader: strings.NewReader("png"), FileName: name})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return u
	}

	if _, err := f.svc.UpdateSection(ctx, user.ID, upload("a.png")); err != nil {
		t.Fatalf("first logo: %v", err)
	}
	res, err := f.svc.UpdateSection(ctx, user.ID, upload("b.png"))
	if err != nil {
		t.Fatalf("second logo: %v", err)
	}
	if res.ProfileLogo != "/uploads/sponsors/profile-logo/b.png" {
		t.Fatalf("logo = %q", res.ProfileLogo)
	}
	if d := f.images.Deleted(); len(d) != 1 || d[0] != "/uploads/sponsors/profile-logo/a.png" {
		t.Fatalf("deleted = %v", d)
	}

	if _, err := dto.DecodeSection(dto.SectionBackgroundImage, []byte(`{}`), nil); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("image without file or url: got %v", err)
	}
}

func TestProjectsSectionReplacesSet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user, profile := f.store.NewSponsor(t, "acme")

	start := time.Now().AddDate(0, 1, 0)
	entry := map[string]any{
		"title":               "Mobile app",
		"description":         "Flutter client",
		"startDate":           start,
		"endDate":             start.AddDate(0, 2, 0),
		"applicationDeadline": start.AddDate(0, 0, -7),
	}
	data, _ := json.Marshal(map[string]any{"projects": []any{entry}})

	res, err := f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionProjects, string(data)))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(res.Projects) != 1 || res.Projects[0].Title != "Mobile app" || res.Projects[0].SponsorID != profile.ID {
		t.Fatalf("projects = %+v", res.Projects)
	}

	entry["enrolledStudents"] = []string{}
	bad, _ := json.Marshal([]any{entry})
	_, err = f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionProjects, string(bad)))
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("enrolledStudents in section: got %v", err)
	}

	res, err = f.svc.UpdateSection(ctx, user.ID, decode(t, dto.SectionProjects, `{"projects":[]}`))
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(res.Projects) != 0 {
		t.Fatalf("projects should be cleared, got %d", len(res.Projects))
	}
}

func TestGetSponsorProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, profile := f.store.NewSponsor(t, "acme")

	res, err := f.svc.GetSponsorProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Name != "acme" || res.Projects == nil {
		t.Fatalf("unexpected profile %+v", res)
	}

	if _, err := f.svc.GetSponsorProfile(ctx, profile.UserID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("lookup by user id: got %v", err)
	}
}

func TestDecodeUnknownSection(t *testing.T) {
	if _, err := dto.DecodeSection("skills", []byte(`{}`), nil); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("got %v", err)
	}
}
