package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConnectionRepository interface {
	Create(ctx context.Context, request *entity.ConnectionRequest) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ConnectionRequest, error)
	// FindPendingBetween looks in both directions. It returns nil, nil when there is none.
	FindPendingBetween(ctx context.Context, a, b uuid.UUID) (*entity.ConnectionRequest, error)
	FindPendingFrom(ctx context.Context, senderID, receiverID uuid.UUID) (*entity.ConnectionRequest, error)
	ListPendingReceived(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	ListPendingSent(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus) error
	DeleteBetween(ctx context.Context, a, b uuid.UUID) (int64, error)
	DeleteByStatus(ctx context.Context, statuses ...entity.ConnectionStatus) (int64, error)
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, request *entity.ConnectionRequest) error {
	err := database.Conn(ctx, r.db).Create(request).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("a pending request already exists: %w", apperror.ErrConflict)
	}
	return err
}

// PendingPairIndex keeps one pending request per unordered pair.
const PendingPairIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_connection_pending_pair
	ON connection_requests (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))
	WHERE status = 'pending'`

func (r *connectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ConnectionRequest, error) {
	var request entity.ConnectionRequest
	if err := database.ForUpdate(ctx, r.db).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("connection request: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &request, nil
}

func (r *connectionRepository) FindPendingBetween(ctx context.Context, a, b uuid.UUID) (*entity.ConnectionRequest, error) {
	var requests []entity.ConnectionRequest
	err := database.Conn(ctx, r.db).
		Where("status = ?", entity.ConnectionPending).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Limit(1).
		Find(&requests).Error
	if err != nil || len(requests) == 0 {
		return nil, err
	}
	return &requests[0], nil
}

func (r *connectionRepository) FindPendingFrom(ctx context.Context, senderID, receiverID uuid.UUID) (*entity.ConnectionRequest, error) {
	var request entity.ConnectionRequest
	err := database.Conn(ctx, r.db).
		Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, entity.ConnectionPending).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no pending request found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &request, nil
}

func (r *connectionRepository) ListPendingReceived(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return r.listPending(ctx, "receiver_id = ?", userID)
}

func (r *connectionRepository) ListPendingSent(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return r.listPending(ctx, "sender_id = ?", userID)
}

func (r *connectionRepository) listPending(ctx context.Context, cond string, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	var requests []entity.ConnectionRequest
	err := database.Conn(ctx, r.db).
		Where(cond, userID).
		Where("status = ?", entity.ConnectionPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (r *connectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus) error {
	res := database.Conn(ctx, r.db).
		Model(&entity.ConnectionRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("connection request: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *connectionRepository) DeleteBetween(ctx context.Context, a, b uuid.UUID) (int64, error) {
	res := database.Conn(ctx, r.db).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Delete(&entity.ConnectionRequest{})
	return res.RowsAffected, res.Error
}

func (r *connectionRepository) DeleteByStatus(ctx context.Context, statuses ...entity.ConnectionStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	res := database.Conn(ctx, r.db).Where("status IN ?", statuses).Delete(&entity.ConnectionRequest{})
	return res.RowsAffected, res.Error
}

func (r *connectionRepository) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).
		Where("status = ? AND created_at < ?", entity.ConnectionPending, cutoff).
		Delete(&entity.ConnectionRequest{})
	return res.RowsAffected, res.Error
}
