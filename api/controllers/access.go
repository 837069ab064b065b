package controllers

import (
	"net/http"
	"strings"

	"github.com/quotagate/quotagate-backend/api/responses"
	"github.com/quotagate/quotagate-backend/api/validators"
	"github.com/quotagate/quotagate-backend/internal/guard"
	"github.com/quotagate/quotagate-backend/internal/identity"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/logger"
)

type accessCheckRequest struct {
	WalletAddress string `json:"wallet_address,omitempty"`
	Action        string `json:"action,omitempty" validate:"omitempty,max=200"`
}

// AccessCheck runs the guard for callers presenting an API key or wallet
// address directly. The decision is always a 200 with the result in the body;
// a denial here is data, not an HTTP failure.
func AccessCheck(svc guard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guard service unavailable"))
			return
		}

		var body accessCheckRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := identity.Input{
			APIKey:        strings.TrimSpace(r.Header.Get("X-API-Key")),
			WalletAddress: validators.SanitizeString(body.WalletAddress, 128),
		}

		action := validators.SanitizeString(body.Action, 200)
		if action == "" {
			action = "access.check"
		}

		result, err := svc.AuthorizeCredential(r.Context(), input, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
