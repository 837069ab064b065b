package guard

import (
	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/enums"
)

// Policy describes the quota rules for one tier. Adding a tier is a data
// change here, not a new code path in the enforcer.
type Policy struct {
	DailyLimit     int
	RequestCost    int
	ChargesCredits bool
}

// PolicyTable maps each tier to its quota policy.
type PolicyTable map[enums.Tier]Policy

// NewPolicyTable derives the tier policies from configuration.
func NewPolicyTable(cfg config.BillingConfig) PolicyTable {
	return PolicyTable{
		enums.TierFree: {
			DailyLimit:     cfg.FreeDailyLimit,
			RequestCost:    cfg.RequestCost,
			ChargesCredits: true,
		},
		enums.TierPaid: {
			DailyLimit:     cfg.PaidDailyLimit,
			RequestCost:    0,
			ChargesCredits: false,
		},
	}
}

// For returns the policy for the tier, falling back to the free policy for
// unknown values so a corrupted row fails closed rather than unlimited.
func (t PolicyTable) For(tier enums.Tier) Policy {
	if policy, ok := t[tier]; ok {
		return policy
	}
	return t[enums.TierFree]
}
