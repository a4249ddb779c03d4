package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

type ConnectionRequest struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_connection_pair" json:"senderId"`
	ReceiverID uuid.UUID        `gorm:"type:uuid;not null;index:idx_connection_pair;index" json:"receiverId"`
	Status     ConnectionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt  time.Time        `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (r *ConnectionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
