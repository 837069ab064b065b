package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
)

// Input carries the credentials a caller may present. Both fields are optional;
// an empty input resolves to uuid.Nil without error.
type Input struct {
	APIKey        string
	WalletAddress string
}

// Resolver maps presented credentials to a user id.
type Resolver interface {
	// Resolve returns the owning user id for the provided credentials.
	// uuid.Nil with a nil error means the caller is anonymous. A present but
	// unknown or inactive API key is an INVALID_CREDENTIAL error.
	Resolve(ctx context.Context, input Input) (uuid.UUID, error)
}

type keyRepository interface {
	FindActiveByKey(ctx context.Context, key string) (*models.APIKey, error)
	TouchUsage(ctx context.Context, id uuid.UUID, at time.Time) error
}

type walletRepository interface {
	FindByWallet(ctx context.Context, walletAddress string) (*models.User, error)
}

type resolver struct {
	keys    keyRepository
	wallets walletRepository
	now     func() time.Time
}

// ResolverParams bundles the dependencies required to build a resolver.
type ResolverParams struct {
	KeyRepo    keyRepository
	WalletRepo walletRepository
	Now        func() time.Time
}

// NewResolver constructs an identity resolver with the provided dependencies.
func NewResolver(params ResolverParams) (Resolver, error) {
	if params.KeyRepo == nil {
		return nil, errors.New("key repository is required")
	}
	if params.WalletRepo == nil {
		return nil, errors.New("wallet repository is required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &resolver{
		keys:    params.KeyRepo,
		wallets: params.WalletRepo,
		now:     params.Now,
	}, nil
}

func (r *resolver) Resolve(ctx context.Context, input Input) (uuid.UUID, error) {
	if key := strings.TrimSpace(input.APIKey); key != "" {
		return r.resolveKey(ctx, key)
	}
	if wallet := strings.TrimSpace(input.WalletAddress); wallet != "" {
		return r.resolveWallet(ctx, wallet)
	}
	return uuid.Nil, nil
}

func (r *resolver) resolveKey(ctx context.Context, key string) (uuid.UUID, error) {
	record, err := r.keys.FindActiveByKey(ctx, key)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup api key")
	}
	if record == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidCredential, "invalid or inactive api key")
	}
	if err := r.keys.TouchUsage(ctx, record.ID, r.now()); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record key usage")
	}
	return record.UserID, nil
}

func (r *resolver) resolveWallet(ctx context.Context, wallet string) (uuid.UUID, error) {
	user, err := r.wallets.FindByWallet(ctx, wallet)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wallet")
	}
	if user == nil {
		return uuid.Nil, nil
	}
	return user.ID, nil
}
