package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindReusableByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// FindReusableByUser returns the latest subscription a checkout retry may
// update in place instead of inserting a second row.
func (r *repository) FindReusableByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusPending,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusPaused,
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN (?)", userID, statuses).
		Order("updated_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
