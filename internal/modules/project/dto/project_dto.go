package dto

import (
	"encoding/json"
	"time"

	"anoa.com/peerlink/internal/entity"
	"github.com/google/uuid"
)

type ProjectInput struct {
	Title               string               `json:"title" binding:"required,max=200"`
	Description         string               `json:"description" binding:"required"`
	SkillsRequired      []string             `json:"skillsRequired"`
	Budget              *float64             `json:"budget" binding:"omitempty,gte=0"`
	StartDate           time.Time            `json:"startDate" binding:"required"`
	EndDate             time.Time            `json:"endDate" binding:"required,gtefield=StartDate"`
	ApplicationDeadline time.Time            `json:"applicationDeadline" binding:"required"`
	Status              entity.ProjectStatus `json:"status" binding:"omitempty,oneof=pending complete incomplete"`
	// SelectedStudents replaces the selection when set.
	SelectedStudents []uuid.UUID `json:"selectedStudents"`
}

// SectionProjectInput is one entry of the sponsor "projects" profile section.
// Entries with an id update that project, entries without one create a project.
type SectionProjectInput struct {
	ID *uuid.UUID `json:"id"`
	ProjectInput
	// EnrolledStudents is only read to reject it; enrollment comes from applications.
	EnrolledStudents json.RawMessage `json:"enrolledStudents"`
}

type SelectStudentInput struct {
	StudentID uuid.UUID `json:"studentId" binding:"required"`
}

type SelectionResponse struct {
	ProjectID        uuid.UUID   `json:"projectId"`
	StudentID        uuid.UUID   `json:"studentId"`
	Selected         bool        `json:"selected"`
	SelectedStudents []uuid.UUID `json:"selectedStudents"`
}

// ProjectSummary is the public shape of a project, without enrollment lists.
type ProjectSummary struct {
	ID                  uuid.UUID            `json:"id"`
	SponsorID           uuid.UUID            `json:"sponsorId"`
	SponsorName         string               `json:"sponsorName,omitempty"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	SkillsRequired      []string             `json:"skillsRequired"`
	Budget              *float64             `json:"budget,omitempty"`
	StartDate           time.Time            `json:"startDate"`
	EndDate             time.Time            `json:"endDate"`
	ApplicationDeadline time.Time            `json:"applicationDeadline"`
	Status              entity.ProjectStatus `json:"status"`
}

func NewProjectSummary(p *entity.Project, sponsorName string) ProjectSummary {
	return ProjectSummary{
		ID:                  p.ID,
		SponsorID:           p.SponsorID,
		SponsorName:         sponsorName,
		Title:               p.Title,
		Description:         p.Description,
		SkillsRequired:      p.SkillsRequired,
		Budget:              p.Budget,
		StartDate:           p.StartDate,
		EndDate:             p.EndDate,
		ApplicationDeadline: p.ApplicationDeadline,
		Status:              p.Status,
	}
}

type AvailableProject struct {
	ProjectSummary
	HasApplied bool `json:"hasApplied"`
}

type AppliedProjectView struct {
	ProjectID           uuid.UUID                `json:"projectId"`
	Status              entity.ApplicationStatus `json:"status"`
	AppliedDate         time.Time                `json:"appliedDate"`
	Title               string                   `json:"title"`
	Description         string                   `json:"description"`
	SponsorName         string                   `json:"sponsorName"`
	SkillsRequired      []string                 `json:"skillsRequired"`
	ApplicationDeadline time.Time                `json:"applicationDeadline"`
}

type SelectedProjectView struct {
	ProjectID      uuid.UUID            `json:"projectId"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	SponsorName    string               `json:"sponsorName"`
	SkillsRequired []string             `json:"skillsRequired"`
	StartDate      time.Time            `json:"startDate"`
	EndDate        time.Time            `json:"endDate"`
	Status         entity.ProjectStatus `json:"status"`
}

type StudentProjectsResponse struct {
	AppliedProjects  []AppliedProjectView  `json:"appliedProjects"`
	SelectedProjects []SelectedProjectView `json:"selectedProjects"`
}

type EnrolledStudent struct {
	ProfileID   uuid.UUID      `json:"profileId"`
	UserID      uuid.UUID      `json:"userId"`
	Name        string         `json:"name"`
	ProfileLogo string         `json:"profileLogo"`
	Headline    string         `json:"headline"`
	Skills      []entity.Skill `json:"skills"`
	Education   string         `json:"education"`
	Location    string         `json:"location"`
}

type EnrolledStudentsResponse struct {
	Students         []EnrolledStudent `json:"students"`
	SelectedStudents []uuid.UUID       `json:"selectedStudents"`
}
