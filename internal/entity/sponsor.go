package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "pending"
	ProjectComplete   ProjectStatus = "complete"
	ProjectIncomplete ProjectStatus = "incomplete"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectComplete, ProjectIncomplete:
		return true
	}
	return false
}

type SponsorContact struct {
	Email string `gorm:"size:100" json:"email"`
	Phone string `gorm:"size:30" json:"phone"`
}

type SponsorProfile struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Bio             string         `gorm:"type:text" json:"bio"`
	Headline        string         `gorm:"size:200" json:"headline"`
	Location        string         `gorm:"size:120" json:"location"`
	ProfileLogo     string         `gorm:"type:text" json:"profileLogo"`
	BackgroundImage string         `gorm:"type:text" json:"backgroundImage"`
	Contact         SponsorContact `gorm:"embedded;embeddedPrefix:contact_" json:"contactInfo"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *SponsorProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Project is a sponsor-authored opportunity. EnrolledStudents mirrors the
// AppliedProjects entries on student profiles and is written with them.
type Project struct {
	ID                  uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	SponsorID           uuid.UUID                      `gorm:"type:uuid;index;not null" json:"sponsorId"`
	Sponsor             *SponsorProfile                `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title               string                         `gorm:"size:200;not null" json:"title"`
	Description         string                         `gorm:"type:text;not null" json:"description"`
	SkillsRequired      datatypes.JSONSlice[string]    `json:"skillsRequired"`
	Budget              *float64                       `json:"budget,omitempty"`
	StartDate           time.Time                      `gorm:"not null" json:"startDate"`
	EndDate             time.Time                      `gorm:"not null" json:"endDate"`
	ApplicationDeadline time.Time                      `gorm:"not null;index" json:"applicationDeadline"`
	Status              ProjectStatus                  `gorm:"size:20;not null;default:pending;index" json:"status"`
	EnrolledStudents    datatypes.JSONSlice[uuid.UUID] `json:"enrolledStudents"`
	SelectedStudents    datatypes.JSONSlice[uuid.UUID] `json:"selectedStudents"`
	CreatedAt           time.Time                      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time                      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AcceptingApplications reports whether students may still apply at now.
func (p *Project) AcceptingApplications(now time.Time) bool {
	return p.Status == ProjectPending && p.ApplicationDeadline.After(now)
}

// CanTransitionTo reports whether the status may move to next. A pending
// project may be closed as complete or incomplete; a closed one stays closed.
func (p *Project) CanTransitionTo(next ProjectStatus) bool {
	if next == p.Status {
		return true
	}
	return p.Status == ProjectPending && (next == ProjectComplete || next == ProjectIncomplete)
}

func (p *Project) IsEnrolled(studentProfileID uuid.UUID) bool {
	return containsID(p.EnrolledStudents, studentProfileID)
}

func (p *Project) IsSelected(studentProfileID uuid.UUID) bool {
	return containsID(p.SelectedStudents, studentProfileID)
}

func (p *Project) Enroll(studentProfileID uuid.UUID) {
	if !p.IsEnrolled(studentProfileID) {
		p.EnrolledStudents = append(p.EnrolledStudents, studentProfileID)
	}
}

// ToggleSelection flips membership of studentProfileID and returns the new state.
func (p *Project) ToggleSelection(studentProfileID uuid.UUID) bool {
	if p.IsSelected(studentProfileID) {
		kept := make(datatypes.JSONSlice[uuid.UUID], 0, len(p.SelectedStudents))
		for _, id := range p.SelectedStudents {
			if id != studentProfileID {
				kept = append(kept, id)
			}
		}
		p.SelectedStudents = kept
		return false
	}
	p.SelectedStudents = append(p.SelectedStudents, studentProfileID)
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
