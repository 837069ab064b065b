package controllers

import (
	"net/http"

	"github.com/quotagate/quotagate-backend/api/middleware"
	"github.com/quotagate/quotagate-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// ProtectedPing is a sample metered resource. Reaching it means the caller
// passed both authentication and the quota guard.
func ProtectedPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "protected", "status": "ok"}
		if user := middleware.UserIDFromContext(r.Context()); user != "" {
			payload["user_id"] = user
		}
		responses.WriteSuccess(w, payload)
	}
}
