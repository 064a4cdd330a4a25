package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/enums"
)

// Subscription is the seller's billing relationship. At most one subscription
// per user may hold status active; pending/past_due/paused rows are reused in
// place on checkout retries. Writes go through the subscriptions service only.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID             uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;not null;default:'pending'"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end"`
	NextPaymentDue     *time.Time               `gorm:"column:next_payment_due"`
	GraceUntil         *time.Time               `gorm:"column:grace_until"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
