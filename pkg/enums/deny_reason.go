package enums

import "fmt"

// DenyReason is the machine-parseable tag attached to a guard denial.
type DenyReason string

const (
	DenyReasonAuthenticationRequired DenyReason = "AUTHENTICATION_REQUIRED"
	DenyReasonInvalidCredential      DenyReason = "INVALID_CREDENTIAL"
	DenyReasonDailyLimitExceeded     DenyReason = "DAILY_LIMIT_EXCEEDED"
	DenyReasonInsufficientCredits    DenyReason = "INSUFFICIENT_CREDITS"
)

var validDenyReasons = []DenyReason{
	DenyReasonAuthenticationRequired,
	DenyReasonInvalidCredential,
	DenyReasonDailyLimitExceeded,
	DenyReasonInsufficientCredits,
}

// String implements fmt.Stringer.
func (r DenyReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r DenyReason) IsValid() bool {
	for _, candidate := range validDenyReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDenyReason converts raw input into a DenyReason.
func ParseDenyReason(value string) (DenyReason, error) {
	for _, candidate := range validDenyReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deny reason %q", value)
}
