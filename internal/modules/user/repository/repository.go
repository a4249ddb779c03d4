package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRepository interface {
	// Create stores the user together with an empty profile for its role.
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error)
	FindByEmailAndRole(ctx context.Context, email string, role entity.Role) (*entity.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*entity.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	UpdateGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("user already exists: %w", apperror.ErrConflict)
			}
			return err
		}

		switch user.Role {
		case entity.RoleStudent:
			return tx.Create(&entity.StudentProfile{
				UserID:          user.ID,
				Contact:         entity.StudentContact{Email: user.Email},
				Skills:          datatypes.JSONSlice[entity.Skill]{},
				Projects:        datatypes.JSONSlice[entity.StudentProject]{},
				Interests:       datatypes.JSONSlice[string]{},
				Connections:     datatypes.JSONSlice[uuid.UUID]{},
				AppliedProjects: datatypes.JSONSlice[entity.AppliedProject]{},
			}).Error
		case entity.RoleSponsor:
			return tx.Create(&entity.SponsorProfile{
				UserID:  user.ID,
				Contact: entity.SponsorContact{Email: user.Email},
			}).Error
		}
		return fmt.Errorf("unknown role %q: %w", user.Role, apperror.ErrInvalidInput)
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := database.Conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.User, error) {
	var users []entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) FindByEmailAndRole(ctx context.Context, email string, role entity.Role) (*entity.User, error) {
	var user entity.User
	err := database.Conn(ctx, r.db).
		Where("LOWER(email) = LOWER(?) AND role = ?", email, role).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByRefreshToken(ctx context.Context, token string) (*entity.User, error) {
	var user entity.User
	if err := database.Conn(ctx, r.db).Where("refresh_token = ?", token).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.updateColumn(ctx, id, "name", name)
}

func (r *userRepository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.updateColumn(ctx, id, "refresh_token", token)
}

func (r *userRepository) UpdateGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	return r.updateColumn(ctx, id, "google_id", googleID)
}

func (r *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := database.Conn(ctx, r.db).Model(&entity.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	return err
}
