package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SponsorRepository interface {
	// FindByUserID locks the row when called inside a transaction.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.SponsorProfile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SponsorProfile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.SponsorProfile, error)
	Save(ctx context.Context, profile *entity.SponsorProfile) error
}

type sponsorRepository struct {
	db *gorm.DB
}

func NewSponsorRepository(db *gorm.DB) SponsorRepository {
	return &sponsorRepository{db: db}
}

func (r *sponsorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.SponsorProfile, error) {
	var profile entity.SponsorProfile
	err := database.ForUpdate(ctx, r.db).Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *sponsorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SponsorProfile, error) {
	var profile entity.SponsorProfile
	if err := database.Conn(ctx, r.db).Preload("User").First(&profile, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *sponsorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.SponsorProfile, error) {
	var profiles []entity.SponsorProfile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := database.Conn(ctx, r.db).Preload("User").Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

func (r *sponsorRepository) Save(ctx context.Context, profile *entity.SponsorProfile) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Save(profile).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("sponsor profile: %w", apperror.ErrNotFound)
	}
	return err
}
