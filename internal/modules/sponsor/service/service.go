package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"anoa.com/peerlink/internal/entity"
	projectRepo "anoa.com/peerlink/internal/modules/project/repository"
	projectService "anoa.com/peerlink/internal/modules/project/service"
	"anoa.com/peerlink/internal/modules/sponsor/dto"
	"anoa.com/peerlink/internal/modules/sponsor/repository"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"anoa.com/peerlink/pkg/sanitizer"
	"anoa.com/peerlink/pkg/storage"
	"github.com/google/uuid"
)

type SponsorService interface {
	GetOwnProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	GetSponsorProfile(ctx context.Context, sponsorID uuid.UUID) (*dto.ProfileResponse, error)
	UpdateSection(ctx context.Context, userID uuid.UUID, update dto.SectionUpdate) (*dto.ProfileResponse, error)
}

type sponsorService struct {
	repo     repository.SponsorRepository
	users    userRepo.UserRepository
	projects projectRepo.ProjectRepository
	workflow projectService.ProjectService
	tx       database.Transactor
	images   storage.ImageStorage
}

func NewSponsorService(
	repo repository.SponsorRepository,
	users userRepo.UserRepository,
	projects projectRepo.ProjectRepository,
	workflow projectService.ProjectService,
	tx database.Transactor,
	images storage.ImageStorage,
) SponsorService {
	return &sponsorService{
		repo:     repo,
		users:    users,
		projects: projects,
		workflow: workflow,
		tx:       tx,
		images:   images,
	}
}

func (s *sponsorService) GetOwnProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, profile)
}

func (s *sponsorService) GetSponsorProfile(ctx context.Context, sponsorID uuid.UUID) (*dto.ProfileResponse, error) {
	profile, err := s.repo.FindByID(ctx, sponsorID)
	if err != nil {
		return nil, err
	}
	return s.response(ctx, profile)
}

func (s *sponsorService) UpdateSection(ctx context.Context, userID uuid.UUID, update dto.SectionUpdate) (*dto.ProfileResponse, error) {
	if u, ok := update.(*dto.ProjectsUpdate); ok {
		if _, err := s.workflow.ReplaceAll(ctx, userID, u.Projects); err != nil {
			return nil, err
		}
		return s.GetOwnProfile(ctx, userID)
	}

	var uploaded, replaced string
	if img, ok := update.(*dto.ImageUpdate); ok && img.File != nil {
		url, err := s.images.UploadImage(ctx, img.File.Reader, "sponsors/"+string(img.Section()), img.File.FileName)
		if err != nil {
			return nil, err
		}
		uploaded = url
	}

	var profile *entity.SponsorProfile
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
			if u.Bio != nil {
				profile.Bio = sanitizer.Text(*u.Bio)
			}
			if u.Location != nil {
				profile.Location = sanitizer.Text(*u.Location)
			}

		case *dto.ImageUpdate:
			url := uploaded
			if url == "" {
				url = strings.TrimSpace(u.URL)
			}
			if u.Section() == dto.SectionProfileLogo {
				replaced, profile.ProfileLogo = profile.ProfileLogo, url
			} else {
				replaced, profile.BackgroundImage = profile.BackgroundImage, url
			}

		case *dto.ContactInfoUpdate:
			if u.Email != nil {
				profile.Contact.Email = strings.ToLower(strings.TrimSpace(*u.Email))
			}
			if u.Phone != nil {
				profile.Contact.Phone = sanitizer.Text(*u.Phone)
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
	return s.response(ctx, profile)
}

func (s *sponsorService) response(ctx context.Context, profile *entity.SponsorProfile) (*dto.ProfileResponse, error) {
	projects, err := s.projects.FindBySponsor(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	return dto.NewProfileResponse(profile, projects), nil
}

func (s *sponsorService) deleteImage(ctx context.Context, url string) {
	if err := s.images.DeleteImage(ctx, url); err != nil {
		log.Printf("⚠️ Failed to delete image %s: %v", url, err)
	}
}
