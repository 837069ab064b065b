package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quotagate/quotagate-backend/pkg/db/models"
	pkgerrors "github.com/quotagate/quotagate-backend/pkg/errors"
)

type stubKeyRepo struct {
	active  map[string]*models.APIKey
	touched []uuid.UUID
}

func (s *stubKeyRepo) FindActiveByKey(ctx context.Context, key string) (*models.APIKey, error) {
	return s.active[key], nil
}

func (s *stubKeyRepo) TouchUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

type stubWalletRepo struct {
	byWallet map[string]*models.User
}

func (s *stubWalletRepo) FindByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	return s.byWallet[walletAddress], nil
}

func newTestResolver(t *testing.T) (Resolver, *stubKeyRepo, *stubWalletRepo) {
	t.Helper()
	keys := &stubKeyRepo{active: map[string]*models.APIKey{}}
	wallets := &stubWalletRepo{byWallet: map[string]*models.User{}}
	res, err := NewResolver(ResolverParams{KeyRepo: keys, WalletRepo: wallets})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return res, keys, wallets
}

func TestResolveAPIKeySuccess(t *testing.T) {
	res, keys, _ := newTestResolver(t)
	owner := uuid.New()
	keyID := uuid.New()
	keys.active["qg_valid"] = &models.APIKey{ID: keyID, UserID: owner, Active: true}

	got, err := res.Resolve(context.Background(), Input{APIKey: "qg_valid"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != owner {
		t.Fatalf("resolved %s, want %s", got, owner)
	}
	if len(keys.touched) != 1 || keys.touched[0] != keyID {
		t.Fatal("expected usage touch for the matched key")
	}
}

func TestResolveUnknownAPIKeyIsInvalidCredential(t *testing.T) {
	res, keys, _ := newTestResolver(t)

	_, err := res.Resolve(context.Background(), Input{APIKey: "qg_bogus"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidCredential {
		t.Fatalf("expected invalid credential, got %v", err)
	}
	if len(keys.touched) != 0 {
		t.Fatal("no usage touch expected for unknown key")
	}
}

func TestResolveAPIKeyTakesPrecedenceOverWallet(t *testing.T) {
	res, keys, wallets := newTestResolver(t)
	keyOwner := uuid.New()
	walletOwner := uuid.New()
	keys.active["qg_valid"] = &models.APIKey{ID: uuid.New(), UserID: keyOwner, Active: true}
	wallets.byWallet["0xabc"] = &models.User{ID: walletOwner}

	got, err := res.Resolve(context.Background(), Input{APIKey: "qg_valid", WalletAddress: "0xabc"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != keyOwner {
		t.Fatalf("api key should win, got %s", got)
	}
}

func TestResolveWalletKnownAndUnknown(t *testing.T) {
	res, _, wallets := newTestResolver(t)
	owner := uuid.New()
	wallets.byWallet["0xabc"] = &models.User{ID: owner}

	got, err := res.Resolve(context.Background(), Input{WalletAddress: "0xabc"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != owner {
		t.Fatalf("resolved %s, want %s", got, owner)
	}

	got, err = res.Resolve(context.Background(), Input{WalletAddress: "0xunknown"})
	if err != nil {
		t.Fatalf("unknown wallet should not error: %v", err)
	}
	if got != uuid.Nil {
		t.Fatalf("unknown wallet should be anonymous, got %s", got)
	}
}

func TestResolveEmptyInputIsAnonymous(t *testing.T) {
	res, _, _ := newTestResolver(t)
	got, err := res.Resolve(context.Background(), Input{APIKey: "  ", WalletAddress: ""})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != uuid.Nil {
		t.Fatalf("expected anonymous, got %s", got)
	}
}
