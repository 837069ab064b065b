package enums

import "fmt"

// Tier names a billing plan that determines quota and cost policy.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

var validTiers = []Tier{
	TierFree,
	TierPaid,
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t Tier) IsValid() bool {
	for _, candidate := range validTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTier converts raw input into a Tier.
func ParseTier(value string) (Tier, error) {
	for _, candidate := range validTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}
