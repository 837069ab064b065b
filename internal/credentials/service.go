package credentials

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
	"github.com/quotagate/quotagate-backend/pkg/security"
)

// Service defines the behavior needed by the API key controller.
type Service interface {
	CreateKey(ctx context.Context, userID uuid.UUID, req CreateKeyRequest) (*CreatedAPIKeyDTO, error)
	ListKeys(ctx context.Context, userID uuid.UUID) ([]APIKeyDTO, error)
	DeactivateKey(ctx context.Context, userID, keyID uuid.UUID) error
}

type service struct {
	repo Repository
}

// ServiceParams bundles the dependencies required to build a credentials service.
type ServiceParams struct {
	Repo Repository
}

// NewService constructs an API key service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("credentials repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) CreateKey(ctx context.Context, userID uuid.UUID, req CreateKeyRequest) (*CreatedAPIKeyDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	secret, err := security.GenerateAPIKey()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate api key")
	}

	record := &models.APIKey{
		UserID: userID,
		Key:    secret,
		Name:   name,
		Active: true,
		Scopes: pq.StringArray(req.Scopes),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist api key")
	}

	return &CreatedAPIKeyDTO{
		APIKeyDTO: fromModel(record),
		Key:       secret,
	}, nil
}

func (s *service) ListKeys(ctx context.Context, userID uuid.UUID) ([]APIKeyDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list api keys")
	}
	keys := make([]APIKeyDTO, 0, len(records))
	for i := range records {
		keys = append(keys, fromModel(&records[i]))
	}
	return keys, nil
}

func (s *service) DeactivateKey(ctx context.Context, userID, keyID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	record, err := s.repo.FindByID(ctx, keyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup api key")
	}
	if record == nil || record.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "api key not found")
	}
	if err := s.repo.Deactivate(ctx, keyID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate api key")
	}
	return nil
}
