package controllers

import (
	"net/http"

	"github.com/quotagate/quotagate-backend/api/responses"
	"github.com/quotagate/quotagate-backend/api/validators"
	"github.com/quotagate/quotagate-backend/internal/billing"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
)

// PaymentsSimulate accepts a simulated on-chain payment and upgrades the
// caller to the paid tier. The route sits behind the idempotency middleware
// so replays return the stored response instead of granting credits twice.
func PaymentsSimulate(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body billing.ApplyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyPayment(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
