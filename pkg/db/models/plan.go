package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Plan is an immutable pricing tier. Read-only to the billing core.
type Plan struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Slug              string         `gorm:"column:slug;not null;uniqueIndex"`
	Name              string         `gorm:"column:name;not null"`
	MonthlyPriceCents int64          `gorm:"column:monthly_price_cents;not null"`
	CurrencyCode      string         `gorm:"column:currency_code;not null;default:'KES'"`
	MaxActiveListings int            `gorm:"column:max_active_listings;not null"`
	Features          pq.StringArray `gorm:"column:features;type:text[]"`
	IsDefault         bool           `gorm:"column:is_default;not null;default:false"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayPrice converts the stored minor-currency amount to major units.
func (p Plan) DisplayPrice() decimal.Decimal {
	return decimal.NewFromInt(p.MonthlyPriceCents).Div(decimal.NewFromInt(100))
}
