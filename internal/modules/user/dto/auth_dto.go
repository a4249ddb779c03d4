package dto

import (
	"time"

	"anoa.com/peerlink/internal/entity"
	"github.com/google/uuid"
)

type SignupInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student sponsor"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=student sponsor"`
}

type UserResponse struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  entity.Role `json:"role"`
}

// AuthResult carries the session artifacts the HTTP layer turns into cookies.
// RefreshToken is empty when only the access token was renewed.
type AuthResult struct {
	User             UserResponse
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
