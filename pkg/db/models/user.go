package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. The id is immutable and is
// the join key for every credential, ledger, and payment lookup.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         *string    `gorm:"type:text;uniqueIndex"`
	PasswordHash  *string    `gorm:"column:password_hash"`
	WalletAddress *string    `gorm:"column:wallet_address;uniqueIndex"`
	DisplayName   *string    `gorm:"column:display_name"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
