package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/enums"
)

func TestNewPolicyTable(t *testing.T) {
	cfg := config.BillingConfig{
		FreeStartingCredits: 20,
		FreeDailyLimit:      10,
		PaidDailyLimit:      1000,
		RequestCost:         1,
	}
	table := NewPolicyTable(cfg)

	free := table.For(enums.TierFree)
	assert.Equal(t, 10, free.DailyLimit)
	assert.Equal(t, 1, free.RequestCost)
	assert.True(t, free.ChargesCredits)

	paid := table.For(enums.TierPaid)
	assert.Equal(t, 1000, paid.DailyLimit)
	assert.Equal(t, 0, paid.RequestCost)
	assert.False(t, paid.ChargesCredits)
}

func TestPolicyTableUnknownTierFallsBackToFree(t *testing.T) {
	table := NewPolicyTable(config.BillingConfig{FreeDailyLimit: 10, RequestCost: 1})

	unknown := table.For(enums.Tier("enterprise"))
	assert.Equal(t, table.For(enums.TierFree), unknown)
}
