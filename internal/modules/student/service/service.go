package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/peerlink/internal/entity"
	search "anoa.com/peerlink/internal/modules/search/service"
	"anoa.com/peerlink/internal/modules/student/dto"
	"anoa.com/peerlink/internal/modules/student/repository"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	visibility "anoa.com/peerlink/internal/modules/visibility/service"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"anoa.com/peerlink/pkg/sanitizer"
	"anoa.com/peerlink/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const searchLimit = 10

type StudentService interface {
	GetOwnProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	GetProfile(ctx context.Context, viewer visibility.Viewer, targetUserID uuid.UUID) (*visibility.StudentView, error)
	CheckProfileAccess(ctx context.Context, viewer visibility.Viewer, targetUserID uuid.UUID) (bool, error)
	UpdateSection(ctx context.Context, userID uuid.UUID, update dto.SectionUpdate) (*dto.ProfileResponse, error)

	AddSkill(ctx context.Context, userID uuid.UUID, input dto.SkillInput) (*entity.Skill, error)
	UpdateSkill(ctx context.Context, userID uuid.UUID, input dto.UpdateSkillInput) (*entity.Skill, error)
	DeleteSkill(ctx context.Context, userID uuid.UUID, name string) error
	ListSkillNames(ctx context.Context) ([]string, error)

	AddProject(ctx context.Context, userID uuid.UUID, input dto.ProjectInput) (*entity.StudentProject, error)
	UpdateProject(ctx context.Context, userID, projectID uuid.UUID, input dto.ProjectInput) (*entity.StudentProject, error)
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error

	Search(ctx context.Context, viewer visibility.Viewer, query dto.SearchQuery) ([]dto.SearchResult, error)
	IndexStudent(ctx context.Context, userID uuid.UUID)
	ReindexAll(ctx context.Context) error
}

type studentService struct {
	repo    repository.StudentRepository
	users   userRepo.UserRepository
	tx      database.Transactor
	facts   visibility.FactsLoader
	images  storage.ImageStorage
	index   search.StudentIndex
	pageLen int
}

// NewStudentService builds the profile service. index may be nil, in which case
// search runs against postgres only.
func NewStudentService(
	repo repository.StudentRepository,
	users userRepo.UserRepository,
	tx database.Transactor,
	facts visibility.FactsLoader,
	images storage.ImageStorage,
	index search.StudentIndex,
) StudentService {
	return &studentService{
		repo:    repo,
		users:   users,
		tx:      tx,
		facts:   facts,
		images:  images,
		index:   index,
		pageLen: 200,
	}
}

func (s *studentService) GetOwnProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewProfileResponse(profile), nil
}

func (s *studentService) GetProfile(ctx context.Context, viewer visibility.Viewer, targetUserID uuid.UUID) (*visibility.StudentView, error) {
	target, err := s.repo.FindByUserID(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	rel, err := s.facts.Load(ctx, viewer, target)
	if err != nil {
		return nil, err
	}

	view := visibility.Resolve(viewer, target, userName(target), rel)
	return &view, nil
}

func (s *studentService) CheckProfileAccess(ctx context.Context, viewer visibility.Viewer, targetUserID uuid.UUID) (bool, error) {
	target, err := s.repo.FindByUserID(ctx, targetUserID)
	if err != nil {
		return false, err
	}

	rel, err := s.facts.Load(ctx, viewer, target)
	if err != nil {
		return false, err
	}
	return visibility.CanAccess(viewer, target, rel), nil
}

func (s *studentService) UpdateSection(ctx context.Context, userID uuid.UUID, update dto.SectionUpdate) (*dto.ProfileResponse, error) {
	var uploaded, replaced string
	if img, ok := update.(*dto.ImageUpdate); ok && img.File != nil {
		url, err := s.images.UploadImage(ctx, img.File.Reader, "students/"+string(img.Section()), img.File.FileName)
		if err != nil {
			return nil, err
		}
		uploaded = url
	}

	var profile *entity.StudentProfile
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.repo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}

		switch u := update.(type) {
		case *dto.BasicInfoUpdate:
			if u.Name != nil {
				name := sanitizer.Text(*u.Name)
				if name == "" {
					return fmt.Errorf("name cannot be empty: %w", apperror.ErrInvalidInput)
				}
				if err := s.users.UpdateName(ctx, userID, name); err != nil {
					return err
				}
				if profile.User != nil {
					profile.User.Name = name
				}
			}
			if u.Headline != nil {
				profile.Headline = sanitizer.Text(*u.Headline)
			}
			if u.Education != nil {
				profile.Education = sanitizer.Text(*u.Education)
			}
			if u.Location != nil {
				profile.Location = sanitizer.Text(*u.Location)
			}

		case *dto.SkillsUpdate:
			skills, err := buildSkills(u.Skills)
			if err != nil {
				return err
			}
			profile.Skills = skills

		case *dto.ProjectsUpdate:
			projects := make(datatypes.JSONSlice[entity.StudentProject], 0, len(u.Projects))
			for _, in := range u.Projects {
				projects = append(projects, buildProject(uuid.New(), in))
			}
			profile.Projects = projects

		case *dto.ImageUpdate:
			url := uploaded
			if url == "" {
				url = strings.TrimSpace(u.URL)
			}
			if u.Section() == dto.SectionLogo {
				replaced, profile.ProfileLogo = profile.ProfileLogo, url
			} else {
				replaced, profile.BackgroundImage = profile.BackgroundImage, url
			}

		case *dto.InterestsUpdate:
			profile.Interests = sanitizer.Texts(u.Interests)

		case *dto.ContactInfoUpdate:
			if u.Phone != nil {
				profile.Contact.Phone = sanitizer.Text(*u.Phone)
			}
			if u.DOB != nil {
				dob := *u.DOB
				profile.Contact.DOB = &dob
			}
			if u.PortfolioLink != nil {
				profile.Contact.PortfolioLink = strings.TrimSpace(*u.PortfolioLink)
			}

		default:
			return fmt.Errorf("unsupported section %T: %w", update, apperror.ErrInvalidInput)
		}

		return s.repo.Save(ctx, profile)
	})
	if err != nil {
		if uploaded != "" {
			s.deleteImage(ctx, uploaded)
		}
		return nil, err
	}

	if replaced != "" && replaced != uploaded {
		s.deleteImage(ctx, replaced)
	}
	s.syncIndex(profile)
	return dto.NewProfileResponse(profile), nil
}

func (s *studentService) AddSkill(ctx context.Context, userID uuid.UUID, input dto.SkillInput) (*entity.Skill, error) {
	skill := buildSkill(input)
	if skill.Name == "" {
		return nil, fmt.Errorf("skill name is required: %w", apperror.ErrInvalidInput)
	}

	profile, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		if p.FindSkill(skill.Name) >= 0 {
			return fmt.Errorf("skill %q already exists: %w", skill.Name, apperror.ErrConflict)
		}
		p.Skills = append(p.Skills, skill)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.syncIndex(profile)
	return &skill, nil
}

func (s *studentService) UpdateSkill(ctx context.Context, userID uuid.UUID, input dto.UpdateSkillInput) (*entity.Skill, error) {
	var updated entity.Skill
	_, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		i := p.FindSkill(strings.TrimSpace(input.Name))
		if i < 0 {
			return fmt.Errorf("skill %q: %w", input.Name, apperror.ErrNotFound)
		}
		if input.LearningPath != nil {
			p.Skills[i].LearningPath = sanitizer.Texts(input.LearningPath)
		}
		if input.Resources != nil {
			p.Skills[i].Resources = sanitizer.Texts(input.Resources)
		}
		updated = p.Skills[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *studentService) DeleteSkill(ctx context.Context, userID uuid.UUID, name string) error {
	profile, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		i := p.FindSkill(strings.TrimSpace(name))
		if i < 0 {
			return fmt.Errorf("skill %q: %w", name, apperror.ErrNotFound)
		}
		p.Skills = append(p.Skills[:i:i], p.Skills[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.syncIndex(profile)
	return nil
}

func (s *studentService) ListSkillNames(ctx context.Context) ([]string, error) {
	return s.repo.DistinctSkillNames(ctx)
}

func (s *studentService) AddProject(ctx context.Context, userID uuid.UUID, input dto.ProjectInput) (*entity.StudentProject, error) {
	project := buildProject(uuid.New(), input)
	_, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		p.Projects = append(p.Projects, project)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *studentService) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, input dto.ProjectInput) (*entity.StudentProject, error) {
	project := buildProject(projectID, input)
	_, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		i := p.FindProject(projectID)
		if i < 0 {
			return fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		p.Projects[i] = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *studentService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	_, err := s.mutate(ctx, userID, func(p *entity.StudentProfile) error {
		i := p.FindProject(projectID)
		if i < 0 {
			return fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		p.Projects = append(p.Projects[:i:i], p.Projects[i+1:]...)
		return nil
	})
	return err
}

func (s *studentService) Search(ctx context.Context, viewer visibility.Viewer, query dto.SearchQuery) ([]dto.SearchResult, error) {
	profiles, err := s.findMatches(ctx, viewer.UserID, query)
	if err != nil {
		return nil, err
	}

	var rels map[uuid.UUID]visibility.Relationship
	if viewer.Role == entity.RoleStudent {
		rels, err = s.facts.LoadMany(ctx, viewer, profiles)
		if err != nil {
			return nil, err
		}
	}

	results := make([]dto.SearchResult, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		res := dto.SearchResult{
			ID:          p.ID,
			UserID:      p.UserID,
			Name:        userName(p),
			ProfileLogo: p.ProfileLogo,
			Headline:    p.Headline,
			Location:    p.Location,
			Skills:      p.SkillNames(),
		}
		if rels != nil {
			res.ConnectionStatus = string(visibility.Status(viewer, p, rels[p.UserID]))
		}
		results = append(results, res)
	}
	return results, nil
}

// findMatches asks the search index first and falls back to postgres when the
// index is missing or failing.
func (s *studentService) findMatches(ctx context.Context, viewerID uuid.UUID, query dto.SearchQuery) ([]entity.StudentProfile, error) {
	if s.index != nil {
		ids, err := s.index.SearchStudents(search.StudentQuery{
			Name:          query.Name,
			Skills:        query.Skills,
			ExcludeUserID: viewerID,
			Limit:         searchLimit,
		})
		if err == nil {
			profiles, err := s.repo.FindByUserIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return orderByUserID(profiles, ids), nil
		}
		log.Printf("⚠️ Student index search failed, falling back to database: %v", err)
	}

	return s.repo.Search(ctx, repository.StudentFilter{
		Name:          query.Name,
		Skills:        query.Skills,
		ExcludeUserID: viewerID,
		Limit:         searchLimit,
	})
}

func (s *studentService) IndexStudent(ctx context.Context, userID uuid.UUID) {
	if s.index == nil {
		return
	}
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Failed to load student %s for indexing: %v", userID, err)
		return
	}
	s.syncIndex(profile)
}

func (s *studentService) ReindexAll(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	total := 0
	var after uuid.UUID
	for {
		page, err := s.repo.ListAfter(ctx, after, s.pageLen)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		docs := make([]search.StudentDocument, 0, len(page))
		for i := range page {
			docs = append(docs, document(&page[i]))
		}
		if err := s.index.IndexStudents(docs); err != nil {
			return err
		}
		total += len(page)
		after = page[len(page)-1].ID
	}

	log.Printf("🔎 Reindexed %d students", total)
	return nil
}

// mutate loads the caller's profile under lock, applies fn and saves it.
func (s *studentService) mutate(ctx context.Context, userID uuid.UUID, fn func(*entity.StudentProfile) error) (*entity.StudentProfile, error) {
	var profile *entity.StudentProfile
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.repo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(profile); err != nil {
			return err
		}
		return s.repo.Save(ctx, profile)
	})
	return profile, err
}

func (s *studentService) syncIndex(profile *entity.StudentProfile) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexStudent(document(profile)); err != nil {
		log.Printf("⚠️ Failed to index student %s: %v", profile.UserID, err)
	}
}

func (s *studentService) deleteImage(ctx context.Context, url string) {
	if err := s.images.DeleteImage(ctx, url); err != nil {
		log.Printf("⚠️ Failed to delete image %s: %v", url, err)
	}
}

func document(p *entity.StudentProfile) search.StudentDocument {
	return search.NewStudentDocument(p.UserID, userName(p), p.Headline, p.Location, p.SkillNames())
}

func buildSkills(inputs []dto.SkillInput) (datatypes.JSONSlice[entity.Skill], error) {
	skills := make(datatypes.JSONSlice[entity.Skill], 0, len(inputs))
	seen := map[string]bool{}
	for _, in := range inputs {
		skill := buildSkill(in)
		key := strings.ToLower(skill.Name)
		if key == "" {
			return nil, fmt.Errorf("skill name is required: %w", apperror.ErrInvalidInput)
		}
		if seen[key] {
			return nil, fmt.Errorf("skill %q listed twice: %w", skill.Name, apperror.ErrConflict)
		}
		seen[key] = true
		skills = append(skills, skill)
	}
	return skills, nil
}

func buildSkill(in dto.SkillInput) entity.Skill {
	return entity.Skill{
		Name:         sanitizer.Text(in.Name),
		LearningPath: sanitizer.Texts(in.LearningPath),
		Resources:    sanitizer.Texts(in.Resources),
	}
}

func buildProject(id uuid.UUID, in dto.ProjectInput) entity.StudentProject {
	return entity.StudentProject{
		ID:             id,
		Title:          sanitizer.Text(in.Title),
		Description:    sanitizer.Text(in.Description),
		InvolvedSkills: sanitizer.Texts(in.InvolvedSkills),
		RepoLink:       strings.TrimSpace(in.RepoLink),
	}
}

func orderByUserID(profiles []entity.StudentProfile, ids []uuid.UUID) []entity.StudentProfile {
	byUser := make(map[uuid.UUID]entity.StudentProfile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}
	out := make([]entity.StudentProfile, 0, len(profiles))
	for _, id := range ids {
		if p, ok := byUser[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func userName(p *entity.StudentProfile) string {
	if p.User == nil {
		return ""
	}
	return p.User.Name
}
