package testutil

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"anoa.com/peerlink/internal/entity"
	notification "anoa.com/peerlink/internal/modules/notification/service"
	"github.com/google/uuid"
)

type Notice struct {
	UserID uuid.UUID
	Event  notification.Event
}

// Notifier records events instead of publishing them.
type Notifier struct {
	mu     sync.Mutex
	events []Notice
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notice{UserID: userID, Event: event})
}

func (n *Notifier) Events() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.events...)
}

// Limiter denies every call once Deny is set.
type Limiter struct {
	Deny bool
}

func (l *Limiter) Allow(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (bool, error) {
	return !l.Deny, nil
}

// NewStudent registers a student user and returns it with its empty profile.
func (s *Store) NewStudent(t *testing.T, name string) (*entity.User, *entity.StudentProfile) {
	t.Helper()
	ctx := context.Background()

	user := &entity.User{Name: name, Email: name + "@example.com", Role: entity.RoleStudent, PasswordHash: "x"}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed student %s: %v", name, err)
	}
	profile, err := s.Students().FindByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("seed student profile %s: %v", name, err)
	}
	return user, profile
}

func (s *Store) NewSponsor(t *testing.T, name string) (*entity.User, *entity.SponsorProfile) {
	t.Helper()
	ctx := context.Background()

	user := &entity.User{Name: name, Email: name + "@example.com", Role: entity.RoleSponsor, PasswordHash: "x"}
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed sponsor %s: %v", name, err)
	}
	profile, err := s.Sponsors().FindByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("seed sponsor profile %s: %v", name, err)
	}
	return user, profile
}

// Student reloads the profile of userID, failing the test if it is missing.
func (s *Store) Student(t *testing.T, userID uuid.UUID) *entity.StudentProfile {
	t.Helper()
	p, err := s.Students().FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load student %s: %v", userID, err)
	}
	return p
}

func (s *Store) Project(t *testing.T, id uuid.UUID) *entity.Project {
	t.Helper()
	p, err := s.Projects().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load project %s: %v", id, err)
	}
	return p
}

// Images stores nothing and answers with /uploads URLs.
type Images struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (m *Images) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "/uploads/" + folder + "/" + fileName

	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *Images) DeleteImage(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

func (m *Images) Uploaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.uploaded...)
}

func (m *Images) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
