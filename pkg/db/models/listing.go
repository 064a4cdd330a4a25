package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/enums"
)

// Listing is owned by the listings subsystem; the billing core only reads ids
// and toggles paused/published up to the plan quota.
type Listing struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index"`
	Title     string              `gorm:"column:title;not null"`
	Status    enums.ListingStatus `gorm:"column:status;not null;default:'draft'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
