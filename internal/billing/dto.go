package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/enums"
)

// StateDTO is the transport shape of a user's billing state.
type StateDTO struct {
	UserID          uuid.UUID  `json:"user_id"`
	Tier            enums.Tier `json:"tier"`
	Credits         int        `json:"credits"`
	DailyUsageCount int        `json:"daily_usage_count"`
	LastResetAt     time.Time  `json:"last_reset_at"`
}

// UsageEntryDTO is one usage history row.
type UsageEntryDTO struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	Cost      int       `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentRecordDTO is one recorded payment.
type PaymentRecordDTO struct {
	ID        uuid.UUID           `json:"id"`
	TxHash    string              `json:"tx_hash"`
	Amount    decimal.Decimal     `json:"amount"`
	Currency  string              `json:"currency"`
	Status    enums.PaymentStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// ApplyPaymentRequest is the simulated payment submission payload.
type ApplyPaymentRequest struct {
	TxHash        string `json:"tx_hash" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required"`
}

// ApplyPaymentResult reports the outcome of an upgrade.
type ApplyPaymentResult struct {
	Success bool       `json:"success"`
	NewTier enums.Tier `json:"new_tier"`
	Credits int        `json:"credits"`
}

func stateFromModel(s *models.BillingState) *StateDTO {
	if s == nil {
		return nil
	}
	return &StateDTO{
		UserID:          s.UserID,
		Tier:            s.Tier,
		Credits:         s.Credits,
		DailyUsageCount: s.DailyUsageCount,
		LastResetAt:     s.LastResetAt,
	}
}

func usageFromModel(u *models.UsageLog) UsageEntryDTO {
	return UsageEntryDTO{
		ID:        u.ID,
		Action:    u.Action,
		Cost:      u.Cost,
		CreatedAt: u.CreatedAt,
	}
}

func paymentFromModel(p *models.PaymentRecord) PaymentRecordDTO {
	return PaymentRecordDTO{
		ID:        p.ID,
		TxHash:    p.TxHash,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}
