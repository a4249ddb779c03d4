// Package testutil holds an in-memory stand-in for the Postgres repositories so
// services can be tested without a database.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"anoa.com/peerlink/internal/entity"
	studentRepo "anoa.com/peerlink/internal/modules/student/repository"
	"anoa.com/peerlink/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Store keeps every table in maps. WithinTransaction serializes transactions and
// restores a snapshot when fn fails.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users       map[uuid.UUID]entity.User
	students    map[uuid.UUID]entity.StudentProfile
	sponsors    map[uuid.UUID]entity.SponsorProfile
	projects    map[uuid.UUID]entity.Project
	connections map[uuid.UUID]entity.ConnectionRequest

	// FailSave makes the next student Save return this error, then clears itself.
	FailSave error
	Now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       map[uuid.UUID]entity.User{},
		students:    map[uuid.UUID]entity.StudentProfile{},
		sponsors:    map[uuid.UUID]entity.SponsorProfile{},
		projects:    map[uuid.UUID]entity.Project{},
		connections: map[uuid.UUID]entity.ConnectionRequest{},
		Now:         time.Now,
	}
}

type txKey struct{}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users       map[uuid.UUID]entity.User
	students    map[uuid.UUID]entity.StudentProfile
	sponsors    map[uuid.UUID]entity.SponsorProfile
	projects    map[uuid.UUID]entity.Project
	connections map[uuid.UUID]entity.ConnectionRequest
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		users:       make(map[uuid.UUID]entity.User, len(s.users)),
		students:    make(map[uuid.UUID]entity.StudentProfile, len(s.students)),
		sponsors:    make(map[uuid.UUID]entity.SponsorProfile, len(s.sponsors)),
		projects:    make(map[uuid.UUID]entity.Project, len(s.projects)),
		connections: make(map[uuid.UUID]entity.ConnectionRequest, len(s.connections)),
	}
	for k, v := range s.users {
		snap.users[k] = cloneUser(v)
	}
	for k, v := range s.students {
		snap.students[k] = cloneStudent(v)
	}
	for k, v := range s.sponsors {
		snap.sponsors[k] = v
	}
	for k, v := range s.projects {
		snap.projects[k] = cloneProject(v)
	}
	for k, v := range s.connections {
		snap.connections[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.students = snap.students
	s.sponsors = snap.sponsors
	s.projects = snap.projects
	s.connections = snap.connections
}

func cloneUser(u entity.User) entity.User {
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		u.RefreshToken = &t
	}
	if u.GoogleID != nil {
		g := *u.GoogleID
		u.GoogleID = &g
	}
	return u
}

func cloneStudent(p entity.StudentProfile) entity.StudentProfile {
	skills := make(datatypes.JSONSlice[entity.Skill], 0, len(p.Skills))
	for _, sk := range p.Skills {
		sk.LearningPath = slices.Clone(sk.LearningPath)
		sk.Resources = slices.Clone(sk.Resources)
		skills = append(skills, sk)
	}
	p.Skills = skills

	projects := make(datatypes.JSONSlice[entity.StudentProject], 0, len(p.Projects))
	for _, pr := range p.Projects {
		pr.InvolvedSkills = slices.Clone(pr.InvolvedSkills)
		projects = append(projects, pr)
	}
	p.Projects = projects

	p.Interests = slices.Clone(p.Interests)
	p.Connections = slices.Clone(p.Connections)
	p.AppliedProjects = slices.Clone(p.AppliedProjects)
	if p.Contact.DOB != nil {
		d := *p.Contact.DOB
		p.Contact.DOB = &d
	}
	p.User = nil
	return p
}

func cloneProject(p entity.Project) entity.Project {
	p.SkillsRequired = slices.Clone(p.SkillsRequired)
	p.EnrolledStudents = slices.Clone(p.EnrolledStudents)
	p.SelectedStudents = slices.Clone(p.SelectedStudents)
	if p.Budget != nil {
		b := *p.Budget
		p.Budget = &b
	}
	p.Sponsor = nil
	return p
}

func (s *Store) withUser(p entity.StudentProfile) entity.StudentProfile {
	if u, ok := s.users[p.UserID]; ok {
		u = cloneUser(u)
		p.User = &u
	}
	return p
}

// Users

type UserRepo struct{ s *Store }

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if !user.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", user.Role, apperror.ErrInvalidInput)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) && u.Role == user.Role {
			return fmt.Errorf("user already exists: %w", apperror.ErrConflict)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := s.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = cloneUser(*user)

	switch user.Role {
	case entity.RoleStudent:
		id := uuid.New()
		s.students[id] = entity.StudentProfile{
			ID:              id,
			UserID:          user.ID,
			Contact:         entity.StudentContact{Email: user.Email},
			Skills:          datatypes.JSONSlice[entity.Skill]{},
			Projects:        datatypes.JSONSlice[entity.StudentProject]{},
			Interests:       datatypes.JSONSlice[string]{},
			Connections:     datatypes.JSONSlice[uuid.UUID]{},
			AppliedProjects: datatypes.JSONSlice[entity.AppliedProject]{},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	case entity.RoleSponsor:
		id := uuid.New()
		s.sponsors[id] = entity.SponsorProfile{
			ID:        id,
			UserID:    user.ID,
			Contact:   entity.SponsorContact{Email: user.Email},
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]entity.User, 0, len(ids))
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok && !seen[id] {
			seen[id] = true
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

func (r *UserRepo) FindByEmailAndRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) && u.Role == role {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
}

func (r *UserRepo) FindByRefreshToken(ctx context.Context, token string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
}

func (r *UserRepo) update(id uuid.UUID, fn func(u *entity.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = r.s.Now()
	r.s.users[id] = u
	return nil
}

func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.update(id, func(u *entity.User) { u.Name = name })
}

func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.update(id, func(u *entity.User) {
		if token == nil {
			u.RefreshToken = nil
			return
		}
		t := *token
		u.RefreshToken = &t
	})
}

func (r *UserRepo) UpdateGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	return r.update(id, func(u *entity.User) { u.GoogleID = &googleID })
}

// Students

type StudentRepo struct{ s *Store }

func (s *Store) Students() *StudentRepo { return &StudentRepo{s: s} }

func (r *StudentRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.students {
		if p.UserID == userID {
			p = r.s.withUser(cloneStudent(p))
			return &p, nil
		}
	}
	return nil, fmt.Errorf("student profile: %w", apperror.ErrNotFound)
}

func (r *StudentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.students[id]
	if !ok {
		return nil, fmt.Errorf("student profile: %w", apperror.ErrNotFound)
	}
	p = r.s.withUser(cloneStudent(p))
	return &p, nil
}

func (r *StudentRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StudentProfile
	for _, id := range ids {
		if p, ok := r.s.students[id]; ok {
			out = append(out, r.s.withUser(cloneStudent(p)))
		}
	}
	return out, nil
}

func (r *StudentRepo) FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StudentProfile
	for _, p := range r.s.students {
		if slices.Contains(userIDs, p.UserID) {
			out = append(out, r.s.withUser(cloneStudent(p)))
		}
	}
	sortStudents(out)
	return out, nil
}

func (r *StudentRepo) Save(ctx context.Context, profile *entity.StudentProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailSave; err != nil {
		r.s.FailSave = nil
		return err
	}
	if _, ok := r.s.students[profile.ID]; !ok {
		return fmt.Errorf("student profile: %w", apperror.ErrNotFound)
	}
	profile.UpdatedAt = r.s.Now()
	r.s.students[profile.ID] = cloneStudent(*profile)
	return nil
}

func (r *StudentRepo) Search(ctx context.Context, filter studentRepo.StudentFilter) ([]entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make([]string, 0, len(filter.Skills))
	for _, sk := range filter.Skills {
		wanted = append(wanted, strings.ToLower(strings.TrimSpace(sk)))
	}
	name := strings.ToLower(strings.TrimSpace(filter.Name))

	var out []entity.StudentProfile
	for _, p := range r.s.students {
		if p.UserID == filter.ExcludeUserID {
			continue
		}
		p = r.s.withUser(cloneStudent(p))
		if name != "" && (p.User == nil || !strings.Contains(strings.ToLower(p.User.Name), name)) {
			continue
		}
		if len(wanted) > 0 && !hasAnySkill(p, wanted) {
			continue
		}
		out = append(out, p)
	}
	sortStudents(out)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *StudentRepo) DistinctSkillNames(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := map[string]bool{}
	for _, p := range r.s.students {
		for _, sk := range p.Skills {
			set[sk.Name] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (r *StudentRepo) ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]entity.StudentProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StudentProfile
	for _, p := range r.s.students {
		if bytes.Compare(p.ID[:], after[:]) > 0 {
			out = append(out, r.s.withUser(cloneStudent(p)))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasAnySkill(p entity.StudentProfile, wanted []string) bool {
	for _, sk := range p.Skills {
		if slices.Contains(wanted, strings.ToLower(sk.Name)) {
			return true
		}
	}
	return false
}

func sortStudents(ps []entity.StudentProfile) {
	sort.Slice(ps, func(i, j int) bool {
		var a, b string
		if ps[i].User != nil {
			a = ps[i].User.Name
		}
		if ps[j].User != nil {
			b = ps[j].User.Name
		}
		return a < b
	})
}

// Sponsors

type SponsorRepo struct{ s *Store }

func (s *Store) Sponsors() *SponsorRepo { return &SponsorRepo{s: s} }

func (r *SponsorRepo) withUser(p entity.SponsorProfile) entity.SponsorProfile {
	if u, ok := r.s.users[p.UserID]; ok {
		u = cloneUser(u)
		p.User = &u
	}
	return p
}

func (r *SponsorRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.SponsorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.sponsors {
		if p.UserID == userID {
			p = r.withUser(p)
			return &p, nil
		}
	}
	return nil, fmt.Errorf("sponsor profile: %w", apperror.ErrNotFound)
}

func (r *SponsorRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.SponsorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.sponsors[id]
	if !ok {
		return nil, fmt.Errorf("sponsor profile: %w", apperror.ErrNotFound)
	}
	p = r.withUser(p)
	return &p, nil
}

func (r *SponsorRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.SponsorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.SponsorProfile
	for _, id := range ids {
		if p, ok := r.s.sponsors[id]; ok {
			out = append(out, r.withUser(p))
		}
	}
	return out, nil
}

func (r *SponsorRepo) Save(ctx context.Context, profile *entity.SponsorProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sponsors[profile.ID]; !ok {
		return fmt.Errorf("sponsor profile: %w", apperror.ErrNotFound)
	}
	p := *profile
	p.User = nil
	p.UpdatedAt = r.s.Now()
	r.s.sponsors[p.ID] = p
	return nil
}

// Projects

type ProjectRepo struct{ s *Store }

func (s *Store) Projects() *ProjectRepo { return &ProjectRepo{s: s} }

func (r *ProjectRepo) Create(ctx context.Context, project *entity.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = entity.ProjectPending
	}
	now := r.s.Now()
	project.CreatedAt, project.UpdatedAt = now, now
	r.s.projects[project.ID] = cloneProject(*project)
	return nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
	}
	p = cloneProject(p)
	return &p, nil
}

func (r *ProjectRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Project, error) {
	return r.filter(func(p entity.Project) bool { return slices.Contains(ids, p.ID) }), nil
}

func (r *ProjectRepo) FindBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]entity.Project, error) {
	return r.filter(func(p entity.Project) bool { return p.SponsorID == sponsorID }), nil
}

func (r *ProjectRepo) FindOpen(ctx context.Context, now time.Time) ([]entity.Project, error) {
	return r.filter(func(p entity.Project) bool { return p.AcceptingApplications(now) }), nil
}

func (r *ProjectRepo) FindSelecting(ctx context.Context, studentProfileID uuid.UUID) ([]entity.Project, error) {
	return r.filter(func(p entity.Project) bool { return p.IsSelected(studentProfileID) }), nil
}

func (r *ProjectRepo) HasEnrollment(ctx context.Context, sponsorID, studentProfileID uuid.UUID) (bool, error) {
	matches := r.filter(func(p entity.Project) bool {
		return p.SponsorID == sponsorID && p.IsEnrolled(studentProfileID)
	})
	return len(matches) > 0, nil
}

func (r *ProjectRepo) Save(ctx context.Context, project *entity.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[project.ID]; !ok {
		return fmt.Errorf("project: %w", apperror.ErrNotFound)
	}
	project.UpdatedAt = r.s.Now()
	r.s.projects[project.ID] = cloneProject(*project)
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return fmt.Errorf("project: %w", apperror.ErrNotFound)
	}
	delete(r.s.projects, id)
	return nil
}

func (r *ProjectRepo) filter(keep func(entity.Project) bool) []entity.Project {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Project
	for _, p := range r.s.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Connection requests

type ConnectionRepo struct{ s *Store }

func (s *Store) Connections() *ConnectionRepo { return &ConnectionRepo{s: s} }

func (r *ConnectionRepo) Create(ctx context.Context, request *entity.ConnectionRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if request.Status == entity.ConnectionPending {
		for _, c := range r.s.connections {
			if c.Status == entity.ConnectionPending && samePair(c, request.SenderID, request.ReceiverID) {
				return fmt.Errorf("a pending request already exists: %w", apperror.ErrConflict)
			}
		}
	}
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = r.s.Now()
	}
	r.s.connections[request.ID] = *request
	return nil
}

func (r *ConnectionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ConnectionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.connections[id]
	if !ok {
		return nil, fmt.Errorf("connection request: %w", apperror.ErrNotFound)
	}
	return &c, nil
}

func (r *ConnectionRepo) FindPendingBetween(ctx context.Context, a, b uuid.UUID) (*entity.ConnectionRequest, error) {
	found := r.filter(func(c entity.ConnectionRequest) bool {
		return c.Status == entity.ConnectionPending && samePair(c, a, b)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *ConnectionRepo) FindPendingFrom(ctx context.Context, senderID, receiverID uuid.UUID) (*entity.ConnectionRequest, error) {
	found := r.filter(func(c entity.ConnectionRequest) bool {
		return c.Status == entity.ConnectionPending && c.SenderID == senderID && c.ReceiverID == receiverID
	})
	if len(found) == 0 {
		return nil, fmt.Errorf("no pending request found: %w", apperror.ErrNotFound)
	}
	return &found[0], nil
}

func (r *ConnectionRepo) ListPendingReceived(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return r.filter(func(c entity.ConnectionRequest) bool {
		return c.Status == entity.ConnectionPending && c.ReceiverID == userID
	}), nil
}

func (r *ConnectionRepo) ListPendingSent(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return r.filter(func(c entity.ConnectionRequest) bool {
		return c.Status == entity.ConnectionPending && c.SenderID == userID
	}), nil
}

func (r *ConnectionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.connections[id]
	if !ok {
		return fmt.Errorf("connection request: %w", apperror.ErrNotFound)
	}
	c.Status = status
	r.s.connections[id] = c
	return nil
}

func (r *ConnectionRepo) DeleteBetween(ctx context.Context, a, b uuid.UUID) (int64, error) {
	return r.deleteWhere(func(c entity.ConnectionRequest) bool { return samePair(c, a, b) }), nil
}

func (r *ConnectionRepo) DeleteByStatus(ctx context.Context, statuses ...entity.ConnectionStatus) (int64, error) {
	return r.deleteWhere(func(c entity.ConnectionRequest) bool { return slices.Contains(statuses, c.Status) }), nil
}

func (r *ConnectionRepo) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(c entity.ConnectionRequest) bool {
		return c.Status == entity.ConnectionPending && c.CreatedAt.Before(cutoff)
	}), nil
}

// All returns every stored request, oldest first.
func (r *ConnectionRepo) All() []entity.ConnectionRequest {
	return r.filter(func(entity.ConnectionRequest) bool { return true })
}

func (r *ConnectionRepo) filter(keep func(entity.ConnectionRequest) bool) []entity.ConnectionRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.ConnectionRequest
	for _, c := range r.s.connections {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *ConnectionRepo) deleteWhere(match func(entity.ConnectionRequest) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.connections {
		if match(c) {
			delete(r.s.connections, id)
			n++
		}
	}
	return n
}

func samePair(c entity.ConnectionRequest, a, b uuid.UUID) bool {
	return (c.SenderID == a && c.ReceiverID == b) || (c.SenderID == b && c.ReceiverID == a)
}
