package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleSponsor Role = "sponsor"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleSponsor
}

// User is the identity record. One profile of the matching role references it by ID.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;not null;uniqueIndex:idx_users_email_role" json:"email"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:20;not null;uniqueIndex:idx_users_email_role" json:"role"`
	RefreshToken *string   `gorm:"type:text" json:"-"`
	GoogleID     *string   `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
