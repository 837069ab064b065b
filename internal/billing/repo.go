package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	"github.com/quotagate/quotagate-backend/pkg/enums"
	"github.com/quotagate/quotagate-backend/pkg/pagination"
)

// Repository handles billing persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetState(ctx context.Context, userID uuid.UUID) (*models.BillingState, error)
	CreateState(ctx context.Context, state *models.BillingState) error
	CompareAndSwapState(ctx context.Context, state *models.BillingState, expectedVersion int64) (bool, error)
	UpgradeState(ctx context.Context, userID uuid.UUID, creditDelta int) error
	AppendUsage(ctx context.Context, log *models.UsageLog) error
	ListUsage(ctx context.Context, params ListUsageQuery) ([]models.UsageLog, *pagination.Cursor, error)
	AppendPayment(ctx context.Context, record *models.PaymentRecord) error
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentRecord, error)
}

type repository struct {
	db *gorm.DB
}

// ListUsageQuery configures usage history queries.
type ListUsageQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetState(ctx context.Context, userID uuid.UUID) (*models.BillingState, error) {
	var state models.BillingState
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&state).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *repository) CreateState(ctx context.Context, state *models.BillingState) error {
	return r.db.WithContext(ctx).Create(state).Error
}

// CompareAndSwapState persists the state only when the stored version still
// equals expectedVersion. Returns false when another writer got there first.
func (r *repository) CompareAndSwapState(ctx context.Context, state *models.BillingState, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BillingState{}).
		Where("user_id = ? AND version = ?", state.UserID, expectedVersion).
		Updates(map[string]any{
			"tier":              state.Tier,
			"credits":           state.Credits,
			"daily_usage_count": state.DailyUsageCount,
			"last_reset_at":     state.LastResetAt,
			"version":           expectedVersion + 1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	state.Version = expectedVersion + 1
	return true, nil
}

// UpgradeState flips the tier to paid and adds credits in a single statement
// so concurrent payments never lose a top-up.
func (r *repository) UpgradeState(ctx context.Context, userID uuid.UUID, creditDelta int) error {
	return r.db.WithContext(ctx).
		Model(&models.BillingState{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"tier":    enums.TierPaid,
			"credits": gorm.Expr("credits + ?", creditDelta),
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (r *repository) AppendUsage(ctx context.Context, log *models.UsageLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) ListUsage(ctx context.Context, params ListUsageQuery) ([]models.UsageLog, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("user_id = ?", params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var logs []models.UsageLog
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&logs).Error; err != nil {
		return nil, nil, err
	}

	if len(logs) > limit {
		next := logs[limit]
		logs = logs[:limit]
		return logs, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}

	return logs, nil, nil
}

func (r *repository) AppendPayment(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
