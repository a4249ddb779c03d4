// Package service decides which parts of a student profile a viewer may see.
package service

import (
	"time"

	"anoa.com/peerlink/internal/entity"
	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	StatusNone      ConnectionStatus = "none"
	StatusPending   ConnectionStatus = "pending"
	StatusConnected ConnectionStatus = "connected"
	StatusSponsor   ConnectionStatus = "sponsor"
	StatusSelf      ConnectionStatus = "self"
)

type Viewer struct {
	UserID uuid.UUID
	Role   entity.Role
}

// Relationship holds the facts about viewer and target that visibility depends on.
type Relationship struct {
	Connected bool
	// Pending is true when a pending request exists in either direction.
	Pending bool
	// Enrolled is true when the target applied to one of the viewing sponsor's projects.
	Enrolled bool
}

type ContactView struct {
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	DOB           *time.Time `json:"dob,omitempty"`
	PortfolioLink string     `json:"portfolioLink"`
}

type StudentView struct {
	ID               uuid.UUID               `json:"id"`
	UserID           uuid.UUID               `json:"userId"`
	Name             string                  `json:"name"`
	ProfileLogo      string                  `json:"profileLogo"`
	BackgroundImage  string                  `json:"backgroundImage,omitempty"`
	Headline         string                  `json:"headline"`
	Location         string                  `json:"location"`
	ConnectionCount  *int                    `json:"connectionCount,omitempty"`
	Skills           []entity.Skill          `json:"skills,omitempty"`
	SkillNames       []string                `json:"skillNames,omitempty"`
	Education        *string                 `json:"education,omitempty"`
	Projects         []entity.StudentProject `json:"projects,omitempty"`
	Interests        []string                `json:"interests,omitempty"`
	ContactInfo      *ContactView            `json:"contactInfo,omitempty"`
	ConnectionStatus ConnectionStatus        `json:"connectionStatus"`
	FullAccess       bool                    `json:"fullAccess"`
}

// Status derives the connection status shown next to the profile.
func Status(viewer Viewer, target *entity.StudentProfile, rel Relationship) ConnectionStatus {
	switch {
	case viewer.UserID == target.UserID:
		return StatusSelf
	case viewer.Role == entity.RoleSponsor:
		if rel.Enrolled || rel.Connected {
			return StatusSponsor
		}
		return StatusNone
	case rel.Connected:
		return StatusConnected
	case rel.Pending:
		return StatusPending
	}
	return StatusNone
}

// CanAccess reports whether the viewer gets the gated sections of the profile.
func CanAccess(viewer Viewer, target *entity.StudentProfile, rel Relationship) bool {
	switch Status(viewer, target, rel) {
	case StatusSelf, StatusSponsor, StatusConnected:
		return true
	}
	return false
}

// Resolve filters target for viewer. name comes from the target's identity record.
func Resolve(viewer Viewer, target *entity.StudentProfile, name string, rel Relationship) StudentView {
	status := Status(viewer, target, rel)
	full := CanAccess(viewer, target, rel)

	view := StudentView{
		ID:               target.ID,
		UserID:           target.UserID,
		Name:             name,
		ProfileLogo:      target.ProfileLogo,
		Headline:         target.Headline,
		Location:         target.Location,
		ConnectionStatus: status,
		FullAccess:       full,
	}

	if viewer.Role == entity.RoleSponsor && !full {
		view.SkillNames = target.SkillNames()
		return view
	}

	count := target.ConnectionCount
	view.ConnectionCount = &count
	view.BackgroundImage = target.BackgroundImage
	view.Skills = copySkills(target.Skills)

	if !full {
		return view
	}

	education := target.Education
	view.Education = &education
	view.Projects = append([]entity.StudentProject{}, target.Projects...)
	view.Interests = append([]string{}, target.Interests...)
	view.ContactInfo = &ContactView{
		Email:         target.Contact.Email,
		Phone:         target.Contact.Phone,
		PortfolioLink: target.Contact.PortfolioLink,
	}
	if status == StatusSelf {
		view.ContactInfo.DOB = target.Contact.DOB
	}

	return view
}

func copySkills(in []entity.Skill) []entity.Skill {
	out := make([]entity.Skill, 0, len(in))
	for _, s := range in {
		out = append(out, entity.Skill{
			Name:         s.Name,
			LearningPath: append([]string{}, s.LearningPath...),
			Resources:    append([]string{}, s.Resources...),
		})
	}
	return out
}
