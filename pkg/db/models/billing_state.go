package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/enums"
)

// BillingState holds per-user quota state, one row per user, created lazily on
// first guarded access. Version backs the optimistic-concurrency update used
// by the quota enforcer; no other component mutates this row.
type BillingState struct {
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Tier            enums.Tier `gorm:"column:tier;not null;default:'free'"`
	Credits         int        `gorm:"column:credits;not null;default:0"`
	DailyUsageCount int        `gorm:"column:daily_usage_count;not null;default:0"`
	LastResetAt     time.Time  `gorm:"column:last_reset_at;not null"`
	Version         int64      `gorm:"column:version;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
