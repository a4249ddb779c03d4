package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"anoa.com/peerlink/internal/entity"
	projectDto "anoa.com/peerlink/internal/modules/project/dto"
	"anoa.com/peerlink/pkg/apperror"
	commonDto "anoa.com/peerlink/pkg/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

type Section string

const (
	SectionBasicInfo       Section = "basic-info"
	SectionProjects        Section = "projects"
	SectionProfileLogo     Section = "profile-logo"
	SectionBackgroundImage Section = "background-image"
	SectionContactInfo     Section = "contact-info"
)

type UpdateProfileRequest struct {
	Section Section         `json:"section" binding:"required"`
	Data    json.RawMessage `json:"data"`
}

type SectionUpdate interface {
	Section() Section
}

type BasicInfoUpdate struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Headline *string `json:"headline" binding:"omitempty,max=200"`
	Bio      *string `json:"bio"`
	Location *string `json:"location" binding:"omitempty,max=120"`
}

// ProjectsUpdate is the sponsor's complete project set.
type ProjectsUpdate struct {
	Projects []projectDto.SectionProjectInput `json:"projects" binding:"dive"`
}

type ImageUpdate struct {
	URL  string                `json:"url" binding:"omitempty,url"`
	File *commonDto.UploadFile `json:"-"`

	section Section
}

type ContactInfoUpdate struct {
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone" binding:"omitempty,max=30"`
}

func (BasicInfoUpdate) Section() Section   { return SectionBasicInfo }
func (ProjectsUpdate) Section() Section    { return SectionProjects }
func (u ImageUpdate) Section() Section     { return u.section }
func (ContactInfoUpdate) Section() Section { return SectionContactInfo }

func DecodeSection(section Section, data []byte, file *commonDto.UploadFile) (SectionUpdate, error) {
	var update SectionUpdate
	switch section {
	case SectionBasicInfo:
		update = &BasicInfoUpdate{}
	case SectionProjects:
		update = &ProjectsUpdate{}
	case SectionProfileLogo, SectionBackgroundImage:
		update = &ImageUpdate{section: section}
	case SectionContactInfo:
		update = &ContactInfoUpdate{}
	default:
		return nil, fmt.Errorf("invalid section %q: %w", section, apperror.ErrInvalidInput)
	}

	if len(data) > 0 && string(data) != "null" {
		// The projects section may also arrive as a bare array.
		if p, ok := update.(*ProjectsUpdate); ok && data[0] == '[' {
			if err := json.Unmarshal(data, &p.Projects); err != nil {
				return nil, fmt.Errorf("invalid %s data: %w", section, apperror.ErrInvalidInput)
			}
		} else if err := json.Unmarshal(data, update); err != nil {
			return nil, fmt.Errorf("invalid %s data: %w", section, apperror.ErrInvalidInput)
		}
	}
	if err := binding.Validator.ValidateStruct(update); err != nil {
		return nil, err
	}

	if img, ok := update.(*ImageUpdate); ok {
		img.File = file
		if img.File == nil && img.URL == "" {
			return nil, fmt.Errorf("%s needs a file or a url: %w", section, apperror.ErrInvalidInput)
		}
	}
	return update, nil
}

type ProfileResponse struct {
	ID              uuid.UUID                   `json:"id"`
	UserID          uuid.UUID                   `json:"userId"`
	Name            string                      `json:"name"`
	Bio             string                      `json:"bio"`
	Headline        string                      `json:"headline"`
	Location        string                      `json:"location"`
	ProfileLogo     string                      `json:"profileLogo"`
	BackgroundImage string                      `json:"backgroundImage"`
	ContactInfo     entity.SponsorContact       `json:"contactInfo"`
	Projects        []projectDto.ProjectSummary `json:"projects"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

func NewProfileResponse(p *entity.SponsorProfile, projects []entity.Project) *ProfileResponse {
	res := &ProfileResponse{
		ID:              p.ID,
		UserID:          p.UserID,
		Bio:             p.Bio,
		Headline:        p.Headline,
		Location:        p.Location,
		ProfileLogo:     p.ProfileLogo,
		BackgroundImage: p.BackgroundImage,
		ContactInfo:     p.Contact,
		Projects:        make([]projectDto.ProjectSummary, 0, len(projects)),
		CreatedAt:       p.CreatedAt,
	}
	if p.User != nil {
		res.Name = p.User.Name
	}
	for i := range projects {
		res.Projects = append(res.Projects, projectDto.NewProjectSummary(&projects[i], res.Name))
	}
	return res
}
