package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/metrics"
	"anoa.com/peerlink/internal/modules/connection/dto"
	"anoa.com/peerlink/internal/modules/connection/repository"
	notification "anoa.com/peerlink/internal/modules/notification/service"
	studentRepo "anoa.com/peerlink/internal/modules/student/repository"
	userRepo "anoa.com/peerlink/internal/modules/user/repository"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/cache"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
)

type ConnectionService interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*dto.ConnectionRequestResponse, error)
	RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, action dto.Action) (*dto.ConnectionRequestResponse, error)
	RespondBySender(ctx context.Context, responderID, senderID uuid.UUID, action dto.Action) (*dto.ConnectionRequestResponse, error)
	ListPending(ctx context.Context, userID uuid.UUID) (*dto.PendingListResponse, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]dto.ConnectedStudentResponse, error)
	RemoveConnection(ctx context.Context, userID, otherID uuid.UUID) error
	SweepExpired(ctx context.Context, now time.Time) (*dto.SweepResult, error)
}

type Options struct {
	PendingTTL      time.Duration
	RequestInterval time.Duration
}

type connectionService struct {
	repo     repository.ConnectionRepository
	students studentRepo.StudentRepository
	users    userRepo.UserRepository
	tx       database.Transactor
	notifier notification.NotificationService
	limiter  cache.RateLimiter
	opts     Options
}

func NewConnectionService(
	repo repository.ConnectionRepository,
	students studentRepo.StudentRepository,
	users userRepo.UserRepository,
	tx database.Transactor,
	notifier notification.NotificationService,
	limiter cache.RateLimiter,
	opts Options,
) ConnectionService {
	return &connectionService{
		repo:     repo,
		students: students,
		users:    users,
		tx:       tx,
		notifier: notifier,
		limiter:  limiter,
		opts:     opts,
	}
}

func (s *connectionService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*dto.ConnectionRequestResponse, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("cannot send a connection request to yourself: %w", apperror.ErrInvalidOperation)
	}

	sender, err := s.students.FindByUserID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByUserID(ctx, receiverID); err != nil {
		return nil, err
	}

	if sender.IsConnectedTo(receiverID) {
		return nil, fmt.Errorf("already connected: %w", apperror.ErrConflict)
	}

	existing, err := s.repo.FindPendingBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("a pending request already exists: %w", apperror.ErrConflict)
	}

	allowed, err := s.limiter.Allow(ctx, senderID, "connection_request", s.opts.RequestInterval)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("please wait before sending another request: %w", apperror.ErrRateLimitExceeded)
	}

	request := &entity.ConnectionRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     entity.ConnectionPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues("sent").Inc()
	s.notifier.Notify(ctx, receiverID, notification.Event{
		Type:    notification.EventConnectionRequested,
		ActorID: senderID,
		Data:    map[string]any{"requestId": request.ID, "senderName": displayName(sender.User)},
	})

	res := dto.NewConnectionRequestResponse(request)
	return &res, nil
}

func (s *connectionService) RespondToRequest(ctx context.Context, responderID, requestID uuid.UUID, action dto.Action) (*dto.ConnectionRequestResponse, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("action must be accept or reject: %w", apperror.ErrInvalidInput)
	}

	var request *entity.ConnectionRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		request, err = s.repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if request.SenderID == responderID {
			return fmt.Errorf("cannot respond to your own request: %w", apperror.ErrInvalidOperation)
		}
		if request.ReceiverID != responderID || request.Status != entity.ConnectionPending {
			return fmt.Errorf("no pending request found: %w", apperror.ErrNotFound)
		}

		if action == dto.ActionReject {
			request.Status = entity.ConnectionRejected
			return s.repo.UpdateStatus(ctx, request.ID, request.Status)
		}

		request.Status = entity.ConnectionAccepted
		if err := s.repo.UpdateStatus(ctx, request.ID, request.Status); err != nil {
			return err
		}

		sender, receiver, err := s.lockPair(ctx, request.SenderID, request.ReceiverID)
		if err != nil {
			return err
		}
		sender.AddConnection(receiver.UserID)
		receiver.AddConnection(sender.UserID)

		if err := s.students.Save(ctx, sender); err != nil {
			return err
		}
		return s.students.Save(ctx, receiver)
	})
	if err != nil {
		return nil, err
	}

	if request.Status == entity.ConnectionAccepted {
		metrics.ConnectionTransitions.WithLabelValues("accepted").Inc()
		s.notifier.Notify(ctx, request.SenderID, notification.Event{
			Type:    notification.EventConnectionAccepted,
			ActorID: responderID,
			Data:    map[string]any{"requestId": request.ID},
		})
	} else {
		metrics.ConnectionTransitions.WithLabelValues("rejected").Inc()
	}

	res := dto.NewConnectionRequestResponse(request)
	return &res, nil
}

func (s *connectionService) RespondBySender(ctx context.Context, responderID, senderID uuid.UUID, action dto.Action) (*dto.ConnectionRequestResponse, error) {
	if responderID == senderID {
		return nil, fmt.Errorf("cannot respond to your own request: %w", apperror.ErrInvalidOperation)
	}

	request, err := s.repo.FindPendingFrom(ctx, senderID, responderID)
	if err != nil {
		return nil, err
	}
	return s.RespondToRequest(ctx, responderID, request.ID, action)
}

func (s *connectionService) ListPending(ctx context.Context, userID uuid.UUID) (*dto.PendingListResponse, error) {
	received, err := s.repo.ListPendingReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	sent, err := s.repo.ListPendingSent(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(received)+len(sent))
	for _, r := range received {
		ids = append(ids, r.SenderID)
	}
	for _, r := range sent {
		ids = append(ids, r.ReceiverID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	res := &dto.PendingListResponse{
		Received: make([]dto.ConnectionRequestResponse, 0, len(received)),
		Sent:     make([]dto.ConnectionRequestResponse, 0, len(sent)),
	}
	for i := range received {
		item := dto.NewConnectionRequestResponse(&received[i])
		item.Counterpart = &dto.UserSummary{ID: received[i].SenderID, Name: names[received[i].SenderID]}
		res.Received = append(res.Received, item)
	}
	for i := range sent {
		item := dto.NewConnectionRequestResponse(&sent[i])
		item.Counterpart = &dto.UserSummary{ID: sent[i].ReceiverID, Name: names[sent[i].ReceiverID]}
		res.Sent = append(res.Sent, item)
	}
	return res, nil
}

func (s *connectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]dto.ConnectedStudentResponse, error) {
	profile, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	connected, err := s.students.FindByUserIDs(ctx, profile.Connections)
	if err != nil {
		return nil, err
	}

	res := make([]dto.ConnectedStudentResponse, 0, len(connected))
	for _, p := range connected {
		res = append(res, dto.ConnectedStudentResponse{
			ProfileID:   p.ID,
			UserID:      p.UserID,
			Name:        displayName(p.User),
			ProfileLogo: p.ProfileLogo,
			Headline:    p.Headline,
			Location:    p.Location,
			Skills:      p.Skills,
		})
	}
	return res, nil
}

func (s *connectionService) RemoveConnection(ctx context.Context, userID, otherID uuid.UUID) error {
	if userID == otherID {
		return fmt.Errorf("cannot remove yourself: %w", apperror.ErrInvalidOperation)
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, b, err := s.lockPair(ctx, userID, otherID)
		if err != nil {
			return err
		}
		a.RemoveConnection(b.UserID)
		b.RemoveConnection(a.UserID)

		if err := s.students.Save(ctx, a); err != nil {
			return err
		}
		if err := s.students.Save(ctx, b); err != nil {
			return err
		}

		_, err = s.repo.DeleteBetween(ctx, userID, otherID)
		return err
	})
	if err != nil {
		return err
	}

	metrics.ConnectionTransitions.WithLabelValues("removed").Inc()
	return nil
}

func (s *connectionService) SweepExpired(ctx context.Context, now time.Time) (*dto.SweepResult, error) {
	terminal, err := s.repo.DeleteByStatus(ctx, entity.ConnectionAccepted, entity.ConnectionRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to delete processed requests: %w", err)
	}

	expired, err := s.repo.DeletePendingBefore(ctx, now.Add(-s.opts.PendingTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired requests: %w", err)
	}

	metrics.SweepDeleted.WithLabelValues("terminal").Add(float64(terminal))
	metrics.SweepDeleted.WithLabelValues("expired").Add(float64(expired))
	log.Printf("🧹 Connection sweep removed %d processed and %d expired requests", terminal, expired)

	return &dto.SweepResult{Terminal: terminal, Expired: expired}, nil
}

// lockPair loads both profiles in a fixed order so concurrent transactions lock rows consistently.
func (s *connectionService) lockPair(ctx context.Context, a, b uuid.UUID) (*entity.StudentProfile, *entity.StudentProfile, error) {
	first, second := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		first, second = b, a
	}

	p1, err := s.students.FindByUserID(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	p2, err := s.students.FindByUserID(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == a {
		return p1, p2, nil
	}
	return p2, p1, nil
}

func displayName(u *entity.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}
