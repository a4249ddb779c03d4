package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

type Skill struct {
	Name         string   `json:"name"`
	LearningPath []string `json:"learningPath"`
	Resources    []string `json:"resources"`
}

type StudentProject struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	InvolvedSkills []string  `json:"involvedSkills"`
	RepoLink       string    `json:"repoLink"`
}

type AppliedProject struct {
	ProjectID   uuid.UUID         `json:"projectId"`
	Status      ApplicationStatus `json:"status"`
	AppliedDate time.Time         `json:"appliedDate"`
}

type StudentContact struct {
	Email         string     `gorm:"size:100" json:"email"`
	Phone         string     `gorm:"size:30" json:"phone"`
	DOB           *time.Time `json:"dob"`
	PortfolioLink string     `gorm:"type:text" json:"portfolioLink"`
}

// StudentProfile is a single document row; nested collections live in JSONB columns.
type StudentProfile struct {
	ID              uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID                           `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	User            *User                               `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProfileLogo     string                              `gorm:"type:text" json:"profileLogo"`
	BackgroundImage string                              `gorm:"type:text" json:"backgroundImage"`
	Headline        string                              `gorm:"size:200" json:"headline"`
	Education       string                              `gorm:"type:text" json:"education"`
	Location        string                              `gorm:"size:120" json:"location"`
	Skills          datatypes.JSONSlice[Skill]          `json:"skills"`
	Projects        datatypes.JSONSlice[StudentProject] `json:"projects"`
	Interests       datatypes.JSONSlice[string]         `json:"interests"`
	Contact         StudentContact                      `gorm:"embedded;embeddedPrefix:contact_" json:"contactInfo"`
	Connections     datatypes.JSONSlice[uuid.UUID]      `json:"connections"`
	ConnectionCount int                                 `gorm:"not null;default:0" json:"connectionCount"`
	AppliedProjects datatypes.JSONSlice[AppliedProject] `json:"appliedProjects"`
	CreatedAt       time.Time                           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time                           `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *StudentProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *StudentProfile) FindSkill(name string) int {
	for i, s := range p.Skills {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}

func (p *StudentProfile) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		names = append(names, s.Name)
	}
	return names
}

func (p *StudentProfile) IsConnectedTo(userID uuid.UUID) bool {
	for _, id := range p.Connections {
		if id == userID {
			return true
		}
	}
	return false
}

// AddConnection adds userID to the connection set and keeps the count in step with it.
func (p *StudentProfile) AddConnection(userID uuid.UUID) {
	if !p.IsConnectedTo(userID) {
		p.Connections = append(p.Connections, userID)
	}
	p.ConnectionCount = len(p.Connections)
}

func (p *StudentProfile) RemoveConnection(userID uuid.UUID) {
	kept := make(datatypes.JSONSlice[uuid.UUID], 0, len(p.Connections))
	for _, id := range p.Connections {
		if id != userID {
			kept = append(kept, id)
		}
	}
	p.Connections = kept
	p.ConnectionCount = len(p.Connections)
}

func (p *StudentProfile) FindApplication(projectID uuid.UUID) int {
	for i, a := range p.AppliedProjects {
		if a.ProjectID == projectID {
			return i
		}
	}
	return -1
}

func (p *StudentProfile) FindProject(id uuid.UUID) int {
	for i, pr := range p.Projects {
		if pr.ID == id {
			return i
		}
	}
	return -1
}
