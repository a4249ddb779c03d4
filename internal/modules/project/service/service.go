package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/metrics"
	notification "anoa.com/peerlink/internal/modules/notification/service"
	"anoa.com/peerlink/internal/modules/project/dto"
	"anoa.com/peerlink/internal/modules/project/repository"
	sponsorRepo "anoa.com/peerlink/internal/modules/sponsor/repository"
	studentRepo "anoa.com/peerlink/internal/modules/student/repository"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"anoa.com/peerlink/pkg/sanitizer"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProjectService interface {
	Create(ctx context.Context, sponsorUserID uuid.UUID, input dto.ProjectInput) (*entity.Project, error)
	Update(ctx context.Context, sponsorUserID, projectID uuid.UUID, input dto.ProjectInput) (*entity.Project, error)
	Delete(ctx context.Context, sponsorUserID, projectID uuid.UUID) error
	// ReplaceAll makes inputs the sponsor's complete project set.
	ReplaceAll(ctx context.Context, sponsorUserID uuid.UUID, inputs []dto.SectionProjectInput) ([]entity.Project, error)

	Apply(ctx context.Context, studentUserID, projectID uuid.UUID) (*entity.AppliedProject, error)
	ToggleSelection(ctx context.Context, sponsorUserID, projectID, studentProfileID uuid.UUID) (*dto.SelectionResponse, error)

	ListAvailable(ctx context.Context, studentUserID uuid.UUID) ([]dto.AvailableProject, error)
	ListOwn(ctx context.Context, sponsorUserID uuid.UUID) ([]entity.Project, error)
	ListBySponsor(ctx context.Context, sponsorProfileID uuid.UUID) ([]dto.ProjectSummary, error)
	ListStudentProjects(ctx context.Context, studentUserID uuid.UUID) (*dto.StudentProjectsResponse, error)
	ListApplied(ctx context.Context, studentUserID uuid.UUID) ([]entity.AppliedProject, error)
	ListEnrolledStudents(ctx context.Context, sponsorUserID, projectID uuid.UUID) (*dto.EnrolledStudentsResponse, error)
}

type projectService struct {
	repo     repository.ProjectRepository
	sponsors sponsorRepo.SponsorRepository
	students studentRepo.StudentRepository
	tx       database.Transactor
	notifier notification.NotificationService
	now      func() time.Time
}

func NewProjectService(
	repo repository.ProjectRepository,
	sponsors sponsorRepo.SponsorRepository,
	students studentRepo.StudentRepository,
	tx database.Transactor,
	notifier notification.NotificationService,
) ProjectService {
	return &projectService{
		repo:     repo,
		sponsors: sponsors,
		students: students,
		tx:       tx,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *projectService) Create(ctx context.Context, sponsorUserID uuid.UUID, input dto.ProjectInput) (*entity.Project, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	sponsor, err := s.sponsors.FindByUserID(ctx, sponsorUserID)
	if err != nil {
		return nil, err
	}

	project := &entity.Project{
		SponsorID:        sponsor.ID,
		EnrolledStudents: datatypes.JSONSlice[uuid.UUID]{},
	}
	applyInput(project, input)
	project.Status = entity.ProjectPending
	project.SelectedStudents = datatypes.JSONSlice[uuid.UUID]{}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	metrics.ProjectEvents.WithLabelValues("created").Inc()
	return project, nil
}

func (s *projectService) Update(ctx context.Context, sponsorUserID, projectID uuid.UUID, input dto.ProjectInput) (*entity.Project, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var project *entity.Project
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		project, err = s.ownedProject(ctx, sponsorUserID, projectID)
		if err != nil {
			return err
		}
		if err := transition(project, input.Status); err != nil {
			return err
		}
		applyInput(project, input)
		return s.repo.Save(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectEvents.WithLabelValues("updated").Inc()
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, sponsorUserID, projectID uuid.UUID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ownedProject(ctx, sponsorUserID, projectID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, projectID)
	})
	if err != nil {
		return err
	}

	metrics.ProjectEvents.WithLabelValues("deleted").Inc()
	return nil
}

func (s *projectService) ReplaceAll(ctx context.Context, sponsorUserID uuid.UUID, inputs []dto.SectionProjectInput) ([]entity.Project, error) {
	for i, in := range inputs {
		if len(in.EnrolledStudents) > 0 && string(in.EnrolledStudents) != "null" {
			return nil, fmt.Errorf("project %d: enrolled students cannot be set by the sponsor: %w", i, apperror.ErrInvalidInput)
		}
		if err := validateInput(in.ProjectInput); err != nil {
			return nil, fmt.Errorf("project %d: %w", i, err)
		}
	}

	sponsor, err := s.sponsors.FindByUserID(ctx, sponsorUserID)
	if err != nil {
		return nil, err
	}

	var result []entity.Project
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindBySponsor(ctx, sponsor.ID)
		if err != nil {
			return err
		}
		kept := make(map[uuid.UUID]bool, len(inputs))

		for _, in := range inputs {
			if in.ID == nil {
				project := &entity.Project{
					SponsorID:        sponsor.ID,
					EnrolledStudents: datatypes.JSONSlice[uuid.UUID]{},
				}
				applyInput(project, in.ProjectInput)
				project.Status = entity.ProjectPending
				project.SelectedStudents = datatypes.JSONSlice[uuid.UUID]{}
				if err := s.repo.Create(ctx, project); err != nil {
					return err
				}
				result = append(result, *project)
				continue
			}

			project, err := s.repo.FindByID(ctx, *in.ID)
			if err != nil {
				return err
			}
			if project.SponsorID != sponsor.ID {
				return fmt.Errorf("project %s: %w", project.ID, apperror.ErrNotFound)
			}
			if err := transition(project, in.Status); err != nil {
				return err
			}
			applyInput(project, in.ProjectInput)
			if err := s.repo.Save(ctx, project); err != nil {
				return err
			}
			kept[project.ID] = true
			result = append(result, *project)
		}

		for _, p := range existing {
			if kept[p.ID] {
				continue
			}
			if err := s.repo.Delete(ctx, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectEvents.WithLabelValues("replaced").Inc()
	return result, nil
}

func (s *projectService) Apply(ctx context.Context, studentUserID, projectID uuid.UUID) (*entity.AppliedProject, error) {
	var (
		application entity.AppliedProject
		project     *entity.Project
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err := s.students.FindByUserID(ctx, studentUserID)
		if err != nil {
			return err
		}
		project, err = s.repo.FindByID(ctx, projectID)
		if err != nil {
			return err
		}

		if student.FindApplication(projectID) >= 0 || project.IsEnrolled(student.ID) {
			return fmt.Errorf("already applied to this project: %w", apperror.ErrConflict)
		}
		now := s.now()
		if !project.AcceptingApplications(now) {
			return fmt.Errorf("project is not accepting applications: %w", apperror.ErrInvalidState)
		}

		application = entity.AppliedProject{
			ProjectID:   projectID,
			Status:      entity.ApplicationPending,
			AppliedDate: now,
		}
		student.AppliedProjects = append(student.AppliedProjects, application)
		project.Enroll(student.ID)

		if err := s.students.Save(ctx, student); err != nil {
			return err
		}
		return s.repo.Save(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	metrics.ProjectEvents.WithLabelValues("applied").Inc()
	if sponsor, err := s.sponsors.FindByID(ctx, project.SponsorID); err == nil {
		s.notifier.Notify(ctx, sponsor.UserID, notification.Event{
			Type:    notification.EventProjectApplied,
			ActorID: studentUserID,
			Data:    map[string]any{"projectId": projectID, "title": project.Title},
		})
	}
	return &application, nil
}

func (s *projectService) ToggleSelection(ctx context.Context, sponsorUserID, projectID, studentProfileID uuid.UUID) (*dto.SelectionResponse, error) {
	student, err := s.students.FindByID(ctx, studentProfileID)
	if err != nil {
		return nil, err
	}

	var (
		project  *entity.Project
		selected bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		project, err = s.ownedProject(ctx, sponsorUserID, projectID)
		if err != nil {
			return err
		}
		selected = project.ToggleSelection(studentProfileID)
		return s.repo.Save(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	event := notification.EventProjectDeselected
	label := "deselected"
	if selected {
		event = notification.EventProjectSelected
		label = "selected"
	}
	metrics.ProjectEvents.WithLabelValues(label).Inc()
	s.notifier.Notify(ctx, student.UserID, notification.Event{
		Type:    event,
		ActorID: sponsorUserID,
		Data:    map[string]any{"projectId": projectID, "title": project.Title},
	})

	return &dto.SelectionResponse{
		ProjectID:        projectID,
		StudentID:        studentProfileID,
		Selected:         selected,
		SelectedStudents: project.SelectedStudents,
	}, nil
}

func (s *projectService) ListAvailable(ctx context.Context, studentUserID uuid.UUID) ([]dto.AvailableProject, error) {
	student, err := s.students.FindByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.FindOpen(ctx, s.now())
	if err != nil {
		return nil, err
	}
	names, err := s.sponsorNames(ctx, projects)
	if err != nil {
		return nil, err
	}

	res := make([]dto.AvailableProject, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		res = append(res, dto.AvailableProject{
			ProjectSummary: dto.NewProjectSummary(p, names[p.SponsorID]),
			HasApplied:     student.FindApplication(p.ID) >= 0,
		})
	}
	return res, nil
}

func (s *projectService) ListOwn(ctx context.Context, sponsorUserID uuid.UUID) ([]entity.Project, error) {
	sponsor, err := s.sponsors.FindByUserID(ctx, sponsorUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindBySponsor(ctx, sponsor.ID)
}

func (s *projectService) ListBySponsor(ctx context.Context, sponsorProfileID uuid.UUID) ([]dto.ProjectSummary, error) {
	sponsor, err := s.sponsors.FindByID(ctx, sponsorProfileID)
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.FindBySponsor(ctx, sponsor.ID)
	if err != nil {
		return nil, err
	}

	name := sponsorName(sponsor)
	res := make([]dto.ProjectSummary, 0, len(projects))
	for i := range projects {
		res = append(res, dto.NewProjectSummary(&projects[i], name))
	}
	return res, nil
}

func (s *projectService) ListStudentProjects(ctx context.Context, studentUserID uuid.UUID) (*dto.StudentProjectsResponse, error) {
	student, err := s.students.FindByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(student.AppliedProjects))
	for _, a := range student.AppliedProjects {
		ids = append(ids, a.ProjectID)
	}
	applied, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	selected, err := s.repo.FindSelecting(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	names, err := s.sponsorNames(ctx, append(append([]entity.Project{}, applied...), selected...))
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Project, len(applied))
	for i := range applied {
		byID[applied[i].ID] = &applied[i]
	}

	res := &dto.StudentProjectsResponse{
		AppliedProjects:  make([]dto.AppliedProjectView, 0, len(student.AppliedProjects)),
		SelectedProjects: make([]dto.SelectedProjectView, 0, len(selected)),
	}
	for _, a := range student.AppliedProjects {
		p, ok := byID[a.ProjectID]
		if !ok {
			// The sponsor deleted the project after the application.
			continue
		}
		res.AppliedProjects = append(res.AppliedProjects, dto.AppliedProjectView{
			ProjectID:           a.ProjectID,
			Status:              a.Status,
			AppliedDate:         a.AppliedDate,
			Title:               p.Title,
			Description:         p.Description,
			SponsorName:         names[p.SponsorID],
			SkillsRequired:      p.SkillsRequired,
			ApplicationDeadline: p.ApplicationDeadline,
		})
	}
	for _, p := range selected {
		res.SelectedProjects = append(res.SelectedProjects, dto.SelectedProjectView{
			ProjectID:      p.ID,
			Title:          p.Title,
			Description:    p.Description,
			SponsorName:    names[p.SponsorID],
			SkillsRequired: p.SkillsRequired,
			StartDate:      p.StartDate,
			EndDate:        p.EndDate,
			Status:         p.Status,
		})
	}
	return res, nil
}

func (s *projectService) ListApplied(ctx context.Context, studentUserID uuid.UUID) ([]entity.AppliedProject, error) {
	student, err := s.students.FindByUserID(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	return student.AppliedProjects, nil
}

func (s *projectService) ListEnrolledStudents(ctx context.Context, sponsorUserID, projectID uuid.UUID) (*dto.EnrolledStudentsResponse, error) {
	project, err := s.ownedProject(ctx, sponsorUserID, projectID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.students.FindByIDs(ctx, project.EnrolledStudents)
	if err != nil {
		return nil, err
	}

	res := &dto.EnrolledStudentsResponse{
		Students:         make([]dto.EnrolledStudent, 0, len(profiles)),
		SelectedStudents: project.SelectedStudents,
	}
	for _, p := range profiles {
		var name string
		if p.User != nil {
			name = p.User.Name
		}
		res.Students = append(res.Students, dto.EnrolledStudent{
			ProfileID:   p.ID,
			UserID:      p.UserID,
			Name:        name,
			ProfileLogo: p.ProfileLogo,
			Headline:    p.Headline,
			Skills:      p.Skills,
			Education:   p.Education,
			Location:    p.Location,
		})
	}
	if res.SelectedStudents == nil {
		res.SelectedStudents = []uuid.UUID{}
	}
	return res, nil
}

// ownedProject loads projectID and checks it belongs to the sponsor behind sponsorUserID.
func (s *projectService) ownedProject(ctx context.Context, sponsorUserID, projectID uuid.UUID) (*entity.Project, error) {
	sponsor, err := s.sponsors.FindByUserID(ctx, sponsorUserID)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.SponsorID != sponsor.ID {
		return nil, fmt.Errorf("project belongs to another sponsor: %w", apperror.ErrForbidden)
	}
	return project, nil
}

func (s *projectService) sponsorNames(ctx context.Context, projects []entity.Project) (map[uuid.UUID]string, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		if !seen[p.SponsorID] {
			seen[p.SponsorID] = true
			ids = append(ids, p.SponsorID)
		}
	}

	sponsors, err := s.sponsors.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(sponsors))
	for i := range sponsors {
		names[sponsors[i].ID] = sponsorName(&sponsors[i])
	}
	return names, nil
}

func validateInput(in dto.ProjectInput) error {
	switch {
	case sanitizer.Text(in.Title) == "":
		return fmt.Errorf("title is required: %w", apperror.ErrInvalidInput)
	case sanitizer.Text(in.Description) == "":
		return fmt.Errorf("description is required: %w", apperror.ErrInvalidInput)
	case in.StartDate.IsZero(), in.EndDate.IsZero(), in.ApplicationDeadline.IsZero():
		return fmt.Errorf("startDate, endDate and applicationDeadline are required: %w", apperror.ErrInvalidInput)
	case in.EndDate.Before(in.StartDate):
		return fmt.Errorf("endDate must not precede startDate: %w", apperror.ErrInvalidInput)
	case in.Budget != nil && *in.Budget < 0:
		return fmt.Errorf("budget must not be negative: %w", apperror.ErrInvalidInput)
	case in.Status != "" && !in.Status.Valid():
		return fmt.Errorf("invalid status %q: %w", in.Status, apperror.ErrInvalidInput)
	}
	return nil
}

func transition(p *entity.Project, next entity.ProjectStatus) error {
	if next == "" || p.CanTransitionTo(next) {
		return nil
	}
	return fmt.Errorf("project %s cannot move from %s to %s: %w", p.ID, p.Status, next, apperror.ErrInvalidState)
}

// applyInput copies sponsor-editable fields. EnrolledStudents is never touched.
func applyInput(p *entity.Project, in dto.ProjectInput) {
	p.Title = sanitizer.Text(in.Title)
	p.Description = sanitizer.Text(in.Description)
	p.SkillsRequired = sanitizer.Texts(in.SkillsRequired)
	p.Budget = in.Budget
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.ApplicationDeadline = in.ApplicationDeadline
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.SelectedStudents != nil {
		p.SelectedStudents = append(datatypes.JSONSlice[uuid.UUID]{}, in.SelectedStudents...)
	}
}

func sponsorName(p *entity.SponsorProfile) string {
	if p.User == nil {
		return ""
	}
	return p.User.Name
}
