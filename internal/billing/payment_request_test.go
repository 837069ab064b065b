package billing

import (
	"testing"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/config"
)

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		AmountCents:    1000,
		Currency:       "usdc",
		Network:        "base",
		ReceiveAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	}
}

func TestNewPaymentRequestForUser(t *testing.T) {
	userID := uuid.New()
	req := NewPaymentRequest(testPaymentConfig(), userID)

	if got := req.Amount.StringFixed(2); got != "10.00" {
		t.Fatalf("amount = %s, want 10.00", got)
	}
	if req.Currency != "USDC" {
		t.Fatalf("currency = %s, want USDC", req.Currency)
	}
	if req.Network != "base" {
		t.Fatalf("network = %s", req.Network)
	}
	if req.Address != "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48" {
		t.Fatalf("address = %s", req.Address)
	}
	if req.ReferenceID != userID.String() {
		t.Fatalf("reference = %s, want %s", req.ReferenceID, userID)
	}
}

func TestNewPaymentRequestAnonymous(t *testing.T) {
	req := NewPaymentRequest(testPaymentConfig(), uuid.Nil)
	if req.ReferenceID != AnonymousReference {
		t.Fatalf("reference = %s, want %s", req.ReferenceID, AnonymousReference)
	}
}

func TestNewPaymentRequestIsDeterministic(t *testing.T) {
	userID := uuid.New()
	first := NewPaymentRequest(testPaymentConfig(), userID)
	second := NewPaymentRequest(testPaymentConfig(), userID)
	if !first.Amount.Equal(second.Amount) || first.ReferenceID != second.ReferenceID || first.Address != second.Address {
		t.Fatal("identical inputs must produce identical requests")
	}
}
