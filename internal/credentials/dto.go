package credentials

import (
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
)

// APIKeyDTO is the transport shape for listing keys. The secret is masked so
// it is only ever revealed once, at creation time.
type APIKeyDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	MaskedKey  string     `json:"masked_key"`
	Active     bool       `json:"active"`
	Scopes     []string   `json:"scopes"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreatedAPIKeyDTO is returned from key creation and includes the plaintext secret.
type CreatedAPIKeyDTO struct {
	APIKeyDTO
	Key string `json:"key"`
}

// CreateKeyRequest is the payload for issuing a new API key.
type CreateKeyRequest struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Scopes []string `json:"scopes,omitempty" validate:"omitempty,dive,max=50"`
}

func fromModel(k *models.APIKey) APIKeyDTO {
	return APIKeyDTO{
		ID:         k.ID,
		Name:       k.Name,
		MaskedKey:  maskKey(k.Key),
		Active:     k.Active,
		Scopes:     append([]string(nil), k.Scopes...),
		UsageCount: k.UsageCount,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:6] + "..." + key[len(key)-4:]
}
