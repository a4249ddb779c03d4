package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentFilter struct {
	Name          string
	Skills        []string
	ExcludeUserID uuid.UUID
	Limit         int
}

type StudentRepository interface {
	// FindByUserID loads the profile with its User. Inside a transaction the row is locked.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StudentProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.StudentProfile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.StudentProfile, error)
	FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.StudentProfile, error)
	Save(ctx context.Context, profile *entity.StudentProfile) error
	Search(ctx context.Context, filter StudentFilter) ([]entity.StudentProfile, error)
	DistinctSkillNames(ctx context.Context) ([]string, error)
	// ListAfter pages through all profiles ordered by id.
	ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]entity.StudentProfile, error)
}

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StudentProfile, error) {
	var profile entity.StudentProfile
	err := database.ForUpdate(ctx, r.db).
		Preload("User").
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *studentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.StudentProfile, error) {
	var profile entity.StudentProfile
	err := database.ForUpdate(ctx, r.db).
		Preload("User").
		First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *studentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.StudentProfile, error) {
	var profiles []entity.StudentProfile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := database.Conn(ctx, r.db).Preload("User").Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

func (r *studentRepository) FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.StudentProfile, error) {
	var profiles []entity.StudentProfile
	if len(userIDs) == 0 {
		return profiles, nil
	}
	err := database.Conn(ctx, r.db).Preload("User").Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

func (r *studentRepository) Save(ctx context.Context, profile *entity.StudentProfile) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Save(profile).Error
}

func (r *studentRepository) Search(ctx context.Context, filter StudentFilter) ([]entity.StudentProfile, error) {
	query := database.Conn(ctx, r.db).
		Joins("User").
		Where("student_profiles.user_id <> ?", filter.ExcludeUserID)

	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where(`"User"."name" ILIKE ?`, "%"+escapeLike(name)+"%")
	}

	if len(filter.Skills) > 0 {
		lowered := make([]string, 0, len(filter.Skills))
		for _, s := range filter.Skills {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(s)))
		}
		query = query.Where(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(student_profiles.skills) AS s WHERE LOWER(s->>'name') IN ?)",
			lowered,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	var profiles []entity.StudentProfile
	err := query.Order(`"User"."name" ASC`).Limit(limit).Find(&profiles).Error
	return profiles, err
}

func (r *studentRepository) DistinctSkillNames(ctx context.Context) ([]string, error) {
	var names []string
	err := database.Conn(ctx, r.db).
		Raw("SELECT DISTINCT s->>'name' AS name FROM student_profiles, jsonb_array_elements(student_profiles.skills) AS s ORDER BY name").
		Scan(&names).Error
	return names, err
}

func (r *studentRepository) ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]entity.StudentProfile, error) {
	var profiles []entity.StudentProfile
	err := database.Conn(ctx, r.db).
		Preload("User").
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("student profile: %w", apperror.ErrNotFound)
	}
	return err
}
