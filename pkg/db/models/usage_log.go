package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog is an append-only record written once per successful guarded
// operation. Rows are never mutated or deleted.
type UsageLog struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Action    string    `gorm:"column:action;not null"`
	Cost      int       `gorm:"column:cost;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
