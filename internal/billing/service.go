package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/enums"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
	"github.com/quotagate/quotagate-backend/pkg/metrics"
	"github.com/quotagate/quotagate-backend/pkg/pagination"
)

// Service defines the billing behavior needed by controllers.
type Service interface {
	GetState(ctx context.Context, userID uuid.UUID) (*StateDTO, error)
	PaymentRequestFor(ctx context.Context, userID uuid.UUID) PaymentRequest
	ApplyPayment(ctx context.Context, userID uuid.UUID, req ApplyPaymentRequest) (*ApplyPaymentResult, error)
	ListUsage(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]UsageEntryDTO, string, error)
	ListPayments(ctx context.Context, userID uuid.UUID) ([]PaymentRecordDTO, error)
}

type service struct {
	repo       Repository
	paymentCfg config.PaymentConfig
	billingCfg config.BillingConfig
	logger     *logger.Logger
	metrics    *metrics.GuardMetrics
	now        func() time.Time
}

// ServiceParams bundles the dependencies required to build a billing service.
type ServiceParams struct {
	Repo          Repository
	PaymentConfig config.PaymentConfig
	BillingConfig config.BillingConfig
	Logger        *logger.Logger
	Metrics       *metrics.GuardMetrics
	Now           func() time.Time
}

// NewService constructs a billing service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("billing repository is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:       params.Repo,
		paymentCfg: params.PaymentConfig,
		billingCfg: params.BillingConfig,
		logger:     params.Logger,
		metrics:    params.Metrics,
		now:        params.Now,
	}, nil
}

func (s *service) GetState(ctx context.Context, userID uuid.UUID) (*StateDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	state, err := s.repo.GetState(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load billing state")
	}
	if state == nil {
		// No guarded request yet; report the state a first request would see.
		return &StateDTO{
			UserID:          userID,
			Tier:            enums.TierFree,
			Credits:         s.billingCfg.FreeStartingCredits,
			DailyUsageCount: 0,
			LastResetAt:     s.now(),
		}, nil
	}
	return stateFromModel(state), nil
}

func (s *service) PaymentRequestFor(ctx context.Context, userID uuid.UUID) PaymentRequest {
	return NewPaymentRequest(s.paymentCfg, userID)
}

// ApplyPayment records the submitted payment and upgrades the caller's tier.
// Settlement verification is simulated: every submission is treated as paid.
func (s *service) ApplyPayment(ctx context.Context, userID uuid.UUID, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	txHash := strings.TrimSpace(req.TxHash)
	wallet := strings.TrimSpace(req.WalletAddress)
	if txHash == "" || wallet == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx_hash and wallet_address are required")
	}

	record := &models.PaymentRecord{
		TxHash:        txHash,
		WalletAddress: wallet,
		UserID:        userID,
		Amount:        decimal.New(s.paymentCfg.AmountCents, -2),
		Currency:      strings.ToUpper(s.paymentCfg.Currency),
		Status:        enums.PaymentStatusCompleted,
	}
	if err := s.repo.AppendPayment(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}

	state, err := s.repo.GetState(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load billing state")
	}

	previousTier := enums.TierFree
	var credits int
	if state == nil {
		credits = s.billingCfg.PaidWelcomeCredits
		if err := s.repo.CreateState(ctx, &models.BillingState{
			UserID:      userID,
			Tier:        enums.TierPaid,
			Credits:     credits,
			LastResetAt: s.now(),
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create billing state")
		}
	} else {
		previousTier = state.Tier
		if err := s.repo.UpgradeState(ctx, userID, s.billingCfg.PaidTopUpCredits); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upgrade billing state")
		}
		credits = state.Credits + s.billingCfg.PaidTopUpCredits
	}

	s.metrics.IncUpgrade(previousTier.String())
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"tx_hash": txHash,
	}), "tier upgrade applied")

	return &ApplyPaymentResult{
		Success: true,
		NewTier: enums.TierPaid,
		Credits: credits,
	}, nil
}

func (s *service) ListUsage(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]UsageEntryDTO, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	logs, next, err := s.repo.ListUsage(ctx, ListUsageQuery{
		UserID: userID,
		Limit:  params.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list usage")
	}

	entries := make([]UsageEntryDTO, 0, len(logs))
	for i := range logs {
		entries = append(entries, usageFromModel(&logs[i]))
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return entries, nextCursor, nil
}

func (s *service) ListPayments(ctx context.Context, userID uuid.UUID) ([]PaymentRecordDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	records, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	payments := make([]PaymentRecordDTO, 0, len(records))
	for i := range records {
		payments = append(payments, paymentFromModel(&records[i]))
	}
	return payments, nil
}
