package guard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/internal/billing"
	"github.com/quotagate/quotagate-backend/internal/identity"
	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/db"
	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/enums"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
	"github.com/quotagate/quotagate-backend/pkg/metrics"
)

// maxSwapAttempts bounds the optimistic-lock retry loop.
const maxSwapAttempts = 3

// AccessResult is the guard's decision for one request.
type AccessResult struct {
	Allowed          bool                    `json:"allowed"`
	Reason           enums.DenyReason        `json:"reason,omitempty"`
	UserID           uuid.UUID               `json:"user_id,omitempty"`
	Tier             enums.Tier              `json:"tier,omitempty"`
	CreditsRemaining int                     `json:"credits_remaining"`
	DailyUsageCount  int                     `json:"daily_usage_count"`
	PaymentRequired  bool                    `json:"payment_required"`
	Payment          *billing.PaymentRequest `json:"payment,omitempty"`
}

// Service admits or denies metered requests.
type Service interface {
	// AuthorizeUser runs the quota check for an already-authenticated user.
	AuthorizeUser(ctx context.Context, userID uuid.UUID, action string) (*AccessResult, error)
	// AuthorizeCredential resolves the presented credentials first, then runs
	// the same check. Credential failures become denials, not errors.
	AuthorizeCredential(ctx context.Context, input identity.Input, action string) (*AccessResult, error)
}

type stateRepository interface {
	GetState(ctx context.Context, userID uuid.UUID) (*models.BillingState, error)
	CreateState(ctx context.Context, state *models.BillingState) error
	CompareAndSwapState(ctx context.Context, state *models.BillingState, expectedVersion int64) (bool, error)
}

type usageRecorder interface {
	Record(log models.UsageLog)
}

type service struct {
	resolver   identity.Resolver
	states     stateRepository
	recorder   usageRecorder
	policies   PolicyTable
	paymentCfg config.PaymentConfig
	billingCfg config.BillingConfig
	logger     *logger.Logger
	metrics    *metrics.GuardMetrics
	now        func() time.Time
}

// ServiceParams bundles the dependencies required to build the guard.
type ServiceParams struct {
	Resolver      identity.Resolver
	StateRepo     stateRepository
	Recorder      usageRecorder
	PaymentConfig config.PaymentConfig
	BillingConfig config.BillingConfig
	Logger        *logger.Logger
	Metrics       *metrics.GuardMetrics
	Now           func() time.Time
}

// NewService constructs the quota enforcer with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Resolver == nil {
		return nil, errors.New("identity resolver is required")
	}
	if params.StateRepo == nil {
		return nil, errors.New("billing state repository is required")
	}
	if params.Recorder == nil {
		return nil, errors.New("usage recorder is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		resolver:   params.Resolver,
		states:     params.StateRepo,
		recorder:   params.Recorder,
		policies:   NewPolicyTable(params.BillingConfig),
		paymentCfg: params.PaymentConfig,
		billingCfg: params.BillingConfig,
		logger:     params.Logger,
		metrics:    params.Metrics,
		now:        params.Now,
	}, nil
}

func (s *service) AuthorizeCredential(ctx context.Context, input identity.Input, action string) (*AccessResult, error) {
	userID, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeInvalidCredential {
			s.metrics.IncDenied(enums.DenyReasonInvalidCredential.String(), "")
			return &AccessResult{
				Allowed: false,
				Reason:  enums.DenyReasonInvalidCredential,
			}, nil
		}
		return nil, err
	}
	if userID == uuid.Nil {
		s.metrics.IncDenied(enums.DenyReasonAuthenticationRequired.String(), "")
		payment := billing.NewPaymentRequest(s.paymentCfg, uuid.Nil)
		return &AccessResult{
			Allowed:         false,
			Reason:          enums.DenyReasonAuthenticationRequired,
			PaymentRequired: true,
			Payment:         &payment,
		}, nil
	}
	return s.AuthorizeUser(ctx, userID, action)
}

func (s *service) AuthorizeUser(ctx context.Context, userID uuid.UUID, action string) (*AccessResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	started := s.now()
	result, err := s.authorize(ctx, userID, action)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCheckDuration(result.Tier.String(), s.now().Sub(started))
	if result.Allowed {
		s.metrics.IncAllowed(result.Tier.String())
	} else {
		s.metrics.IncDenied(result.Reason.String(), result.Tier.String())
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"reason":  result.Reason.String(),
		})
		s.logger.Info(logCtx, "access denied")
	}
	return result, nil
}

func (s *service) authorize(ctx context.Context, userID uuid.UUID, action string) (*AccessResult, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		state, err := s.loadOrCreateState(ctx, userID)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if !sameCalendarDay(state.LastResetAt, now) {
			state.DailyUsageCount = 0
			state.LastResetAt = now
		}

		policy := s.policies.For(state.Tier)

		if state.DailyUsageCount >= policy.DailyLimit {
			if err := s.persistReset(ctx, state); err != nil {
				return nil, err
			}
			return s.deny(userID, state, enums.DenyReasonDailyLimitExceeded), nil
		}
		if policy.ChargesCredits && state.Credits < policy.RequestCost {
			if err := s.persistReset(ctx, state); err != nil {
				return nil, err
			}
			return s.deny(userID, state, enums.DenyReasonInsufficientCredits), nil
		}

		expected := state.Version
		state.DailyUsageCount++
		if policy.ChargesCredits {
			state.Credits -= policy.RequestCost
		}

		swapped, err := s.states.CompareAndSwapState(ctx, state, expected)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist billing state")
		}
		if !swapped {
			continue
		}

		s.recorder.Record(models.UsageLog{
			UserID: userID,
			Action: action,
			Cost:   policy.RequestCost,
		})

		return &AccessResult{
			Allowed:          true,
			UserID:           userID,
			Tier:             state.Tier,
			CreditsRemaining: state.Credits,
			DailyUsageCount:  state.DailyUsageCount,
		}, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeConflict, "billing state contention, retry")
}

func (s *service) loadOrCreateState(ctx context.Context, userID uuid.UUID) (*models.BillingState, error) {
	state, err := s.states.GetState(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load billing state")
	}
	if state != nil {
		return state, nil
	}

	fresh := &models.BillingState{
		UserID:      userID,
		Tier:        enums.TierFree,
		Credits:     s.billingCfg.FreeStartingCredits,
		LastResetAt: s.now(),
	}
	if err := s.states.CreateState(ctx, fresh); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost the creation race; the winner's row is authoritative.
			return s.states.GetState(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create billing state")
	}
	return fresh, nil
}

// persistReset stores a pending calendar-day reset on the denial path so the
// zeroed counter survives. A CAS conflict here is fine: the competing writer
// already observed the same day.
func (s *service) persistReset(ctx context.Context, state *models.BillingState) error {
	if state.DailyUsageCount != 0 {
		return nil
	}
	if _, err := s.states.CompareAndSwapState(ctx, state, state.Version); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist reset")
	}
	return nil
}

func (s *service) deny(userID uuid.UUID, state *models.BillingState, reason enums.DenyReason) *AccessResult {
	payment := billing.NewPaymentRequest(s.paymentCfg, userID)
	return &AccessResult{
		Allowed:          false,
		Reason:           reason,
		UserID:           userID,
		Tier:             state.Tier,
		CreditsRemaining: state.Credits,
		DailyUsageCount:  state.DailyUsageCount,
		PaymentRequired:  true,
		Payment:          &payment,
	}
}

// sameCalendarDay compares full year/month/day in server-local time, so state
// from any prior day resets even after long dormancy.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
