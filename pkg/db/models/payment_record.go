package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotagate/quotagate-backend/pkg/enums"
)

// PaymentRecord is an append-only fact describing a submitted payment. The
// recorded status reflects what the upgrade processor was told, not an
// on-chain verification result.
type PaymentRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TxHash        string              `gorm:"column:tx_hash;not null;index"`
	WalletAddress string              `gorm:"column:wallet_address;not null"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string              `gorm:"column:currency;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
