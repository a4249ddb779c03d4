package dto

import (
	"time"

	"anoa.com/peerlink/internal/entity"
	"github.com/google/uuid"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func (a Action) Valid() bool {
	return a == ActionAccept || a == ActionReject
}

type SendRequestInput struct {
	ConnectionUserID uuid.UUID `json:"connectionUserId" binding:"required"`
}

type StudentSendRequestInput struct {
	ReceiverID uuid.UUID `json:"receiverId" binding:"required"`
}

type RespondBySenderInput struct {
	SenderUserID uuid.UUID `json:"senderUserId" binding:"required"`
}

type HandleRequestInput struct {
	RequestID uuid.UUID `json:"requestId" binding:"required"`
	Action    Action    `json:"action" binding:"required,oneof=accept reject"`
}

type RemoveConnectionInput struct {
	StudentID uuid.UUID `json:"studentId" binding:"required"`
}

type UserSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ConnectionRequestResponse struct {
	ID          uuid.UUID               `json:"id"`
	SenderID    uuid.UUID               `json:"senderId"`
	ReceiverID  uuid.UUID               `json:"receiverId"`
	Status      entity.ConnectionStatus `json:"status"`
	CreatedAt   time.Time               `json:"createdAt"`
	Counterpart *UserSummary            `json:"counterpart,omitempty"`
}

type PendingListResponse struct {
	Received []ConnectionRequestResponse `json:"received"`
	Sent     []ConnectionRequestResponse `json:"sent"`
}

type ConnectedStudentResponse struct {
	ProfileID   uuid.UUID      `json:"profileId"`
	UserID      uuid.UUID      `json:"userId"`
	Name        string         `json:"name"`
	ProfileLogo string         `json:"profileLogo"`
	Headline    string         `json:"headline"`
	Location    string         `json:"location"`
	Skills      []entity.Skill `json:"skills"`
}

type SweepResult struct {
	Terminal int64 `json:"terminal"`
	Expired  int64 `json:"expired"`
}

func NewConnectionRequestResponse(r *entity.ConnectionRequest) ConnectionRequestResponse {
	return ConnectionRequestResponse{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
	}
}
