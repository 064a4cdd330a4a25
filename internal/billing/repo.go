package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
)

// Repository reads the plan catalog. Plans are immutable to the billing core.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPlans(ctx context.Context) ([]models.Plan, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).
		Order("is_default DESC, monthly_price_cents ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	if slug == "" {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
