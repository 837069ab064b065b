package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/api/responses"
	"github.com/quotagate/quotagate-backend/internal/guard"
	"github.com/quotagate/quotagate-backend/pkg/enums"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
)

// Guard runs the quota check for the authenticated user before the handler.
// Denials short-circuit with 402 and carry the payment request in the details.
func Guard(svc guard.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil || userID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			action := fmt.Sprintf("%s %s", r.Method, routePattern(r))
			result, err := svc.AuthorizeUser(ctx, userID, action)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			if !result.Allowed {
				responses.WriteError(ctx, logg, w, denialError(result))
				return
			}

			w.Header().Set("X-Credits-Remaining", strconv.Itoa(result.CreditsRemaining))
			w.Header().Set("X-Daily-Usage", strconv.Itoa(result.DailyUsageCount))
			next.ServeHTTP(w, r)
		})
	}
}

func denialError(result *guard.AccessResult) error {
	switch result.Reason {
	case enums.DenyReasonAuthenticationRequired:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	case enums.DenyReasonInvalidCredential:
		return pkgerrors.New(pkgerrors.CodeInvalidCredential, "invalid credential")
	}

	details := map[string]any{
		"reason":            string(result.Reason),
		"credits_remaining": result.CreditsRemaining,
		"daily_usage_count": result.DailyUsageCount,
	}
	if result.Payment != nil {
		details["payment"] = result.Payment
	}
	return pkgerrors.New(pkgerrors.CodePaymentRequired, denialMessage(result.Reason)).WithDetails(details)
}

func denialMessage(reason enums.DenyReason) string {
	switch reason {
	case enums.DenyReasonDailyLimitExceeded:
		return "daily request limit exceeded"
	case enums.DenyReasonInsufficientCredits:
		return "insufficient credits"
	}
	return "access denied"
}
