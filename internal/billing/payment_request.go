package billing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotagate/quotagate-backend/pkg/config"
)

// AnonymousReference is used when no caller identity could be resolved.
const AnonymousReference = "anonymous"

// PaymentRequest tells a denied or curious caller how to upgrade. It is a
// pure projection of config; nothing is persisted when one is generated.
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Address     string          `json:"address"`
	Network     string          `json:"network"`
	ReferenceID string          `json:"reference_id"`
}

// NewPaymentRequest builds the upgrade instructions for the given caller.
// A nil or zero user id produces an anonymous reference.
func NewPaymentRequest(cfg config.PaymentConfig, userID uuid.UUID) PaymentRequest {
	reference := AnonymousReference
	if userID != uuid.Nil {
		reference = userID.String()
	}
	return PaymentRequest{
		Amount:      decimal.New(cfg.AmountCents, -2),
		Currency:    strings.ToUpper(cfg.Currency),
		Address:     cfg.ReceiveAddress,
		Network:     cfg.Network,
		ReferenceID: reference,
	}
}
