package guard

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/internal/billing"
	"github.com/quotagate/quotagate-backend/internal/identity"
	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/enums"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
)

type stubStateRepo struct {
	states        map[uuid.UUID]*models.BillingState
	conflictsLeft int
	swapCalls     int
}

func newStubStateRepo() *stubStateRepo {
	return &stubStateRepo{states: map[uuid.UUID]*models.BillingState{}}
}

func (s *stubStateRepo) GetState(ctx context.Context, userID uuid.UUID) (*models.BillingState, error) {
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (s *stubStateRepo) CreateState(ctx context.Context, state *models.BillingState) error {
	copied := *state
	s.states[state.UserID] = &copied
	return nil
}

func (s *stubStateRepo) CompareAndSwapState(ctx context.Context, state *models.BillingState, expectedVersion int64) (bool, error) {
	s.swapCalls++
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		current := s.states[state.UserID]
		current.Version++
		return false, nil
	}
	current, ok := s.states[state.UserID]
	if !ok || current.Version != expectedVersion {
		return false, nil
	}
	copied := *state
	copied.Version = expectedVersion + 1
	s.states[state.UserID] = &copied
	state.Version = copied.Version
	return true, nil
}

type stubResolver struct {
	userID uuid.UUID
	err    error
}

func (s *stubResolver) Resolve(ctx context.Context, input identity.Input) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return s.userID, nil
}

type captureRecorder struct {
	logs []models.UsageLog
}

func (c *captureRecorder) Record(log models.UsageLog) {
	c.logs = append(c.logs, log)
}

type guardFixture struct {
	service  Service
	states   *stubStateRepo
	resolver *stubResolver
	recorder *captureRecorder
	now      time.Time
}

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		AmountCents:    1000,
		Currency:       "USDC",
		Network:        "base",
		ReceiveAddress: "0xReceive",
	}
}

func testBillingConfig() config.BillingConfig {
	return config.BillingConfig{
		FreeStartingCredits: 20,
		FreeDailyLimit:      10,
		PaidDailyLimit:      1000,
		RequestCost:         1,
		PaidWelcomeCredits:  120,
		PaidTopUpCredits:    100,
	}
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	f := &guardFixture{
		states:   newStubStateRepo(),
		resolver: &stubResolver{},
		recorder: &captureRecorder{},
		now:      time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local),
	}
	svc, err := NewService(ServiceParams{
		Resolver:      f.resolver,
		StateRepo:     f.states,
		Recorder:      f.recorder,
		PaymentConfig: testPaymentConfig(),
		BillingConfig: testBillingConfig(),
		Logger:        logger.New(logger.Options{ServiceName: "guard-test", Output: io.Discard}),
		Now:           func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new guard service: %v", err)
	}
	f.service = svc
	return f
}

func TestFirstRequestCreatesFreeStateAndCharges(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed, got %+v", result)
	}
	if result.Tier != enums.TierFree {
		t.Fatalf("tier = %s", result.Tier)
	}
	if result.CreditsRemaining != 19 {
		t.Fatalf("credits = %d, want 19", result.CreditsRemaining)
	}
	if result.DailyUsageCount != 1 {
		t.Fatalf("usage = %d, want 1", result.DailyUsageCount)
	}

	if len(f.recorder.logs) != 1 {
		t.Fatalf("expected 1 usage log, got %d", len(f.recorder.logs))
	}
	log := f.recorder.logs[0]
	if log.UserID != userID || log.Action != "api_request" || log.Cost != 1 {
		t.Fatalf("unexpected usage log %+v", log)
	}
}

func TestDailyLimitDeniesEleventhRequest(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()

	for i := 0; i < 10; i++ {
		result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d unexpectedly denied: %+v", i+1, result)
		}
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed {
		t.Fatal("eleventh request should be denied")
	}
	if result.Reason != enums.DenyReasonDailyLimitExceeded {
		t.Fatalf("reason = %s", result.Reason)
	}
	if !result.PaymentRequired || result.Payment == nil {
		t.Fatal("denial should carry payment instructions")
	}
	if result.Payment.ReferenceID != userID.String() {
		t.Fatalf("payment reference = %s", result.Payment.ReferenceID)
	}
	if got := result.Payment.Amount.StringFixed(2); got != "10.00" {
		t.Fatalf("payment amount = %s", got)
	}
	if len(f.recorder.logs) != 10 {
		t.Fatalf("denied request must not log usage, got %d logs", len(f.recorder.logs))
	}
	if f.states.states[userID].Credits != 10 {
		t.Fatalf("credits = %d, want 10", f.states.states[userID].Credits)
	}
}

func TestInsufficientCreditsDeniesFreeUser(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:      userID,
		Tier:        enums.TierFree,
		Credits:     0,
		LastResetAt: f.now,
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial")
	}
	if result.Reason != enums.DenyReasonInsufficientCredits {
		t.Fatalf("reason = %s", result.Reason)
	}
	if !result.PaymentRequired || result.Payment == nil {
		t.Fatal("denial should carry payment instructions")
	}
	if len(f.recorder.logs) != 0 {
		t.Fatal("denied request must not log usage")
	}
}

func TestPaidTierDoesNotChargeCredits(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:      userID,
		Tier:        enums.TierPaid,
		Credits:     120,
		LastResetAt: f.now,
	}

	for i := 0; i < 3; i++ {
		result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
		if err != nil {
			t.Fatalf("authorize: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("paid request denied: %+v", result)
		}
		if result.CreditsRemaining != 120 {
			t.Fatalf("paid credits changed: %d", result.CreditsRemaining)
		}
	}
	if f.states.states[userID].DailyUsageCount != 3 {
		t.Fatalf("usage = %d, want 3", f.states.states[userID].DailyUsageCount)
	}
	if len(f.recorder.logs) != 3 {
		t.Fatalf("expected 3 usage logs, got %d", len(f.recorder.logs))
	}
	if f.recorder.logs[0].Cost != 0 {
		t.Fatalf("paid usage cost = %d, want 0", f.recorder.logs[0].Cost)
	}
}

func TestPaidTierStillHasDailyCeiling(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:          userID,
		Tier:            enums.TierPaid,
		Credits:         120,
		DailyUsageCount: 1000,
		LastResetAt:     f.now,
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed || result.Reason != enums.DenyReasonDailyLimitExceeded {
		t.Fatalf("expected paid ceiling denial, got %+v", result)
	}
}

func TestCalendarDayResetRestoresQuota(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:          userID,
		Tier:            enums.TierFree,
		Credits:         10,
		DailyUsageCount: 10,
		LastResetAt:     f.now.AddDate(0, 0, -1),
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed after day rollover, got %+v", result)
	}
	if result.DailyUsageCount != 1 {
		t.Fatalf("usage = %d, want 1", result.DailyUsageCount)
	}

	stored := f.states.states[userID]
	if !stored.LastResetAt.Equal(f.now) {
		t.Fatalf("last reset not updated: %v", stored.LastResetAt)
	}
}

func TestResetAppliesAfterLongDormancy(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:          userID,
		Tier:            enums.TierFree,
		Credits:         10,
		DailyUsageCount: 10,
		LastResetAt:     f.now.AddDate(0, -2, -3),
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed after dormancy, got %+v", result)
	}
}

func TestSameDayDoesNotReset(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:          userID,
		Tier:            enums.TierFree,
		Credits:         10,
		DailyUsageCount: 4,
		LastResetAt:     f.now.Add(-5 * time.Hour),
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.DailyUsageCount != 5 {
		t.Fatalf("usage = %d, want 5", result.DailyUsageCount)
	}
}

func TestInsufficientCreditsDenialPersistsReset(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:          userID,
		Tier:            enums.TierFree,
		Credits:         0,
		DailyUsageCount: 10,
		LastResetAt:     f.now.AddDate(0, 0, -1),
	}

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed || result.Reason != enums.DenyReasonInsufficientCredits {
		t.Fatalf("expected credits denial after reset, got %+v", result)
	}

	stored := f.states.states[userID]
	if stored.DailyUsageCount != 0 {
		t.Fatalf("reset not persisted, usage = %d", stored.DailyUsageCount)
	}
}

func TestAnonymousCallerGetsPaymentInstructions(t *testing.T) {
	f := newGuardFixture(t)
	f.resolver.userID = uuid.Nil

	result, err := f.service.AuthorizeCredential(context.Background(), identity.Input{}, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed || result.Reason != enums.DenyReasonAuthenticationRequired {
		t.Fatalf("expected authentication required, got %+v", result)
	}
	if result.Payment == nil || result.Payment.ReferenceID != billing.AnonymousReference {
		t.Fatalf("expected anonymous payment reference, got %+v", result.Payment)
	}
}

func TestInvalidCredentialDenialLeavesLedgerUntouched(t *testing.T) {
	f := newGuardFixture(t)
	f.resolver.err = pkgerrors.New(pkgerrors.CodeInvalidCredential, "invalid or inactive api key")

	result, err := f.service.AuthorizeCredential(context.Background(), identity.Input{APIKey: "qg_bogus"}, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Allowed || result.Reason != enums.DenyReasonInvalidCredential {
		t.Fatalf("expected invalid credential denial, got %+v", result)
	}
	if result.PaymentRequired || result.Payment != nil {
		t.Fatal("credential failures must not carry payment instructions")
	}
	if len(f.states.states) != 0 {
		t.Fatal("ledger must stay untouched")
	}
	if len(f.recorder.logs) != 0 {
		t.Fatal("no usage log for credential failures")
	}
}

func TestCredentialPathDelegatesToUserCheck(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.resolver.userID = userID

	result, err := f.service.AuthorizeCredential(context.Background(), identity.Input{APIKey: "qg_valid"}, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Allowed || result.UserID != userID {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSwapConflictRetriesAndSucceeds(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:      userID,
		Tier:        enums.TierFree,
		Credits:     20,
		LastResetAt: f.now,
	}
	f.states.conflictsLeft = 2

	result, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("expected allowed after retries, got %+v", result)
	}
	if f.states.swapCalls != 3 {
		t.Fatalf("swap calls = %d, want 3", f.states.swapCalls)
	}
	if f.states.states[userID].DailyUsageCount != 1 {
		t.Fatalf("usage = %d, want exactly 1 admission", f.states.states[userID].DailyUsageCount)
	}
}

func TestSwapContentionExhaustsRetries(t *testing.T) {
	f := newGuardFixture(t)
	userID := uuid.New()
	f.states.states[userID] = &models.BillingState{
		UserID:      userID,
		Tier:        enums.TierFree,
		Credits:     20,
		LastResetAt: f.now,
	}
	f.states.conflictsLeft = maxSwapAttempts

	_, err := f.service.AuthorizeUser(context.Background(), userID, "api_request")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(f.recorder.logs) != 0 {
		t.Fatal("no usage log without a successful swap")
	}
}
