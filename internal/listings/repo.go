package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
)

// Repository covers the listing subset the billing core touches: reading
// paused ids and toggling paused/published.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPausedByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Listing, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error
	PauseAllByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListPausedByOwner returns at most limit paused listings, most recently
// updated first, so reactivation re-surfaces the listings the seller most
// recently cared about.
func (r *repository) ListPausedByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, enums.ListingStatusPaused).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Listing
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ListingStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) PauseAllByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("owner_id = ? AND status = ?", ownerID, enums.ListingStatusPublished).
		Update("status", enums.ListingStatusPaused)
	return result.RowsAffected, result.Error
}
