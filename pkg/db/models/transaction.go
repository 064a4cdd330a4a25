package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/enums"
)

// Transaction is one payment attempt, keyed by a globally unique reference.
// Rows are created at checkout initiation and mutated only through the
// ledger's conditional terminal transition; they are never deleted.
type Transaction struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID        *uuid.UUID              `gorm:"column:subscription_id;type:uuid"`
	PlanID                uuid.UUID               `gorm:"column:plan_id;type:uuid;not null"`
	Reference             string                  `gorm:"column:reference;not null;uniqueIndex"`
	AmountCents           int64                   `gorm:"column:amount_cents;not null"`
	CurrencyCode          string                  `gorm:"column:currency_code;not null;default:'KES'"`
	Status                enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`
	ProviderTransactionID *string                 `gorm:"column:provider_transaction_id"`
	PaidAt                *time.Time              `gorm:"column:paid_at"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
