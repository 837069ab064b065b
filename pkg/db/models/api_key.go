package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// APIKey is a caller credential owned by exactly one user. Keys are
// deactivated rather than deleted while any usage references them.
type APIKey struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Key        string         `gorm:"column:key;not null;uniqueIndex"`
	Name       string         `gorm:"column:name;not null"`
	Active     bool           `gorm:"column:active;not null;default:true"`
	Scopes     pq.StringArray `gorm:"type:text[];column:scopes"`
	UsageCount int64          `gorm:"column:usage_count;not null;default:0"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
