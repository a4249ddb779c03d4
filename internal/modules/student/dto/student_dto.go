package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	commonDto "anoa.com/peerlink/pkg/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

type Section string

const (
	SectionBasicInfo       Section = "basic-info"
	SectionSkills          Section = "skills"
	SectionProjects        Section = "projects"
	SectionBackgroundImage Section = "background-image"
	SectionLogo            Section = "logo"
	SectionInterests       Section = "interests"
	SectionContactInfo     Section = "contact-info"
)

// UpdateProfileRequest is the envelope of PUT /student/update-profile. Data is
// decoded into the request type of Section by DecodeSection.
type UpdateProfileRequest struct {
	Section Section         `json:"section" binding:"required"`
	Data    json.RawMessage `json:"data"`
}

// SectionUpdate is implemented by one request type per profile section.
type SectionUpdate interface {
	Section() Section
}

type BasicInfoUpdate struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Headline  *string `json:"headline" binding:"omitempty,max=200"`
	Education *string `json:"education"`
	Location  *string `json:"location" binding:"omitempty,max=120"`
}

type SkillsUpdate struct {
	Skills []SkillInput `json:"skills" binding:"required,dive"`
}

type ProjectsUpdate struct {
	Projects []ProjectInput `json:"projects" binding:"required,dive"`
}

// ImageUpdate carries either an uploaded file or a URL for logo and background sections.
type ImageUpdate struct {
	URL  string                `json:"url" binding:"omitempty,url"`
	File *commonDto.UploadFile `json:"-"`

	section Section
}

type InterestsUpdate struct {
	Interests []string `json:"interests" binding:"required,dive,max=100"`
}

type ContactInfoUpdate struct {
	Phone         *string    `json:"phone" binding:"omitempty,max=30"`
	DOB           *time.Time `json:"dob"`
	PortfolioLink *string    `json:"portfolioLink" binding:"omitempty,url"`
}

func (BasicInfoUpdate) Section() Section   { return SectionBasicInfo }
func (SkillsUpdate) Section() Section      { return SectionSkills }
func (ProjectsUpdate) Section() Section    { return SectionProjects }
func (u ImageUpdate) Section() Section     { return u.section }
func (InterestsUpdate) Section() Section   { return SectionInterests }
func (ContactInfoUpdate) Section() Section { return SectionContactInfo }

// DecodeSection binds data to the request type of section and validates it.
// file is only used by the image sections.
func DecodeSection(section Section, data []byte, file *commonDto.UploadFile) (SectionUpdate, error) {
	var update SectionUpdate
	switch section {
	case SectionBasicInfo:
		update = &BasicInfoUpdate{}
	case SectionSkills:
		update = &SkillsUpdate{}
	case SectionProjects:
		update = &ProjectsUpdate{}
	case SectionBackgroundImage, SectionLogo:
		update = &ImageUpdate{section: section}
	case SectionInterests:
		update = &InterestsUpdate{}
	case SectionContactInfo:
		update = &ContactInfoUpdate{}
	default:
		return nil, fmt.Errorf("invalid section %q: %w", section, apperror.ErrInvalidInput)
	}

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, update); err != nil {
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

type SkillInput struct {
	Name         string   `json:"name" binding:"required,max=100"`
	LearningPath []string `json:"learningPath" binding:"required,min=1"`
	Resources    []string `json:"resources" binding:"required,min=1"`
}

type UpdateSkillInput struct {
	Name         string   `json:"name" binding:"required"`
	LearningPath []string `json:"learningPath"`
	Resources    []string `json:"resources"`
}

type ProjectInput struct {
	Title          string   `json:"title" binding:"required,max=200"`
	Description    string   `json:"description" binding:"required"`
	InvolvedSkills []string `json:"involvedSkills"`
	RepoLink       string   `json:"repoLink" binding:"required,url"`
}

type SearchQuery struct {
	Name   string
	Skills []string
}

// ParseSkills accepts a JSON array (skills=["go","sql"]), a comma list, or repeated params.
func ParseSkills(values []string) ([]string, error) {
	var skills []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "[") {
			var list []string
			if err := json.Unmarshal([]byte(v), &list); err != nil {
				return nil, fmt.Errorf("skills must be an array of strings: %w", apperror.ErrInvalidInput)
			}
			skills = append(skills, list...)
			continue
		}
		skills = append(skills, strings.Split(v, ",")...)
	}

	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

type ProfileResponse struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"userId"`
	Name            string                  `json:"name"`
	Email           string                  `json:"email"`
	ProfileLogo     string                  `json:"profileLogo"`
	BackgroundImage string                  `json:"backgroundImage"`
	Headline        string                  `json:"headline"`
	Education       string                  `json:"education"`
	Location        string                  `json:"location"`
	Skills          []entity.Skill          `json:"skills"`
	Projects        []entity.StudentProject `json:"projects"`
	Interests       []string                `json:"interests"`
	ContactInfo     entity.StudentContact   `json:"contactInfo"`
	ConnectionCount int                     `json:"connectionCount"`
}

func NewProfileResponse(p *entity.StudentProfile) *ProfileResponse {
	res := &ProfileResponse{
		ID:              p.ID,
		UserID:          p.UserID,
		ProfileLogo:     p.ProfileLogo,
		BackgroundImage: p.BackgroundImage,
		Headline:        p.Headline,
		Education:       p.Education,
		Location:        p.Location,
		Skills:          p.Skills,
		Projects:        p.Projects,
		Interests:       p.Interests,
		ContactInfo:     p.Contact,
		ConnectionCount: p.ConnectionCount,
	}
	if p.User != nil {
		res.Name = p.User.Name
		res.Email = p.User.Email
	}
	return res
}

// SearchResult lists skill names only, whoever is searching.
type SearchResult struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"userId"`
	Name             string    `json:"name"`
	ProfileLogo      string    `json:"profileLogo"`
	Headline         string    `json:"headline"`
	Location         string    `json:"location"`
	Skills           []string  `json:"skills"`
	ConnectionStatus string    `json:"connectionStatus,omitempty"`
}

type AccessResponse struct {
	CanAccess bool `json:"canAccess"`
}
