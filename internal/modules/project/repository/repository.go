package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Project, error)
	FindBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]entity.Project, error)
	FindOpen(ctx context.Context, now time.Time) ([]entity.Project, error)
	FindSelecting(ctx context.Context, studentProfileID uuid.UUID) ([]entity.Project, error)
	HasEnrollment(ctx context.Context, sponsorID, studentProfileID uuid.UUID) (bool, error)
	Save(ctx context.Context, project *entity.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *entity.Project) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(project).Error
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	if err := database.ForUpdate(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Project, error) {
	var projects []entity.Project
	if len(ids) == 0 {
		return projects, nil
	}
	err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&projects).Error
	return projects, err
}

func (r *projectRepository) FindBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]entity.Project, error) {
	var projects []entity.Project
	err := database.Conn(ctx, r.db).
		Where("sponsor_id = ?", sponsorID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) FindOpen(ctx context.Context, now time.Time) ([]entity.Project, error) {
	var projects []entity.Project
	err := database.Conn(ctx, r.db).
		Where("status = ? AND application_deadline > ?", entity.ProjectPending, now).
		Order("application_deadline ASC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) FindSelecting(ctx context.Context, studentProfileID uuid.UUID) ([]entity.Project, error) {
	var projects []entity.Project
	err := database.Conn(ctx, r.db).
		Where("selected_students @> ?::jsonb", idArray(studentProfileID)).
		Order("start_date ASC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) HasEnrollment(ctx context.Context, sponsorID, studentProfileID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.Project{}).
		Where("sponsor_id = ? AND enrolled_students @> ?::jsonb", sponsorID, idArray(studentProfileID)).
		Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) Save(ctx context.Context, project *entity.Project) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Save(project).Error
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := database.Conn(ctx, r.db).Delete(&entity.Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("project: %w", apperror.ErrNotFound)
	}
	return nil
}

// idArray renders a one-element JSON array for jsonb containment checks.
func idArray(id uuid.UUID) string {
	return fmt.Sprintf(`["%s"]`, id)
}
