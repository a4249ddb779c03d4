package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventProjectApplied      = "project.applied"
	EventProjectSelected     = "project.selected"
	EventProjectDeselected   = "project.deselected"
)

type Event struct {
	Type      string         `json:"type"`
	ActorID   uuid.UUID      `json:"actorId"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NotificationService pushes realtime events to a user's websocket sessions.
// Delivery is best effort: events are never stored and failures are only logged.
type NotificationService interface {
	Notify(ctx context.Context, userID uuid.UUID, event Event)
}

type notificationService struct {
	redisClient *redis.Client
}

func NewNotificationService(redisClient *redis.Client) NotificationService {
	return &notificationService{redisClient: redisClient}
}

func Channel(userID uuid.UUID) string {
	return "user_notifications:" + userID.String()
}

func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, event Event) {
	if s.redisClient == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Failed to encode %s event: %v", event.Type, err)
		return
	}

	if err := s.redisClient.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		log.Printf("⚠️ Failed to publish %s event to %s: %v", event.Type, userID, err)
	}
}
