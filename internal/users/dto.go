package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         *string    `json:"email,omitempty"`
	WalletAddress *string    `json:"wallet_address,omitempty"`
	DisplayName   *string    `json:"display_name,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email         *string
	PasswordHash  *string
	WalletAddress *string
	DisplayName   *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
		DisplayName:   u.DisplayName,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:         c.Email,
		PasswordHash:  c.PasswordHash,
		WalletAddress: c.WalletAddress,
		DisplayName:   c.DisplayName,
	}
}
