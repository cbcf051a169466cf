package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/manutd22/newlife/internal/config"
	"github.com/manutd22/newlife/internal/domain"
)

type UserStore interface {
	Upsert(ctx context.Context, id *domain.VerifiedIdentity) (*domain.User, bool, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SetWallet(ctx context.Context, id int64, address string) error
	Leaderboard(ctx context.Context, limit int) ([]domain.User, error)
}

type CodeStore interface {
	Get(ctx context.Context, code string) (*domain.ReferralCode, error)
	GetActive(ctx context.Context, ownerID int64) (*domain.ReferralCode, error)
	Issue(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error)
	Rotate(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error)
	Revoke(ctx context.Context, code string) error
}

// RegistryService owns user rows, referral codes and wallet bindings.
type RegistryService struct {
	users UserStore
	codes CodeStore
}

func NewRegistryService(users UserStore, codes CodeStore) *RegistryService {
	return &RegistryService{users: users, codes: codes}
}

// Upsert registers the verified identity. Safe to call on every launch: the
// store guarantees a single row per user id no matter how many concurrent
// callers race here. The bool reports first registration.
func (s *RegistryService) Upsert(ctx context.Context, id *domain.VerifiedIdentity) (*domain.User, bool, error) {
	return s.users.Upsert(ctx, id)
}

func (s *RegistryService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *RegistryService) ConnectWallet(ctx context.Context, userID int64, address string) error {
	if address == "" {
		return fmt.Errorf("connect wallet for user %d: empty address", userID)
	}
	return s.users.SetWallet(ctx, userID, address)
}

func (s *RegistryService) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > config.MaxLeaderboardLimit {
		limit = config.MaxLeaderboardLimit
	}
	return s.users.Leaderboard(ctx, limit)
}

// EnsureReferralCode returns the owner's active code, issuing one if needed.
// Safe on every launch: the store resolves concurrent first issues to a
// single code, so racing callers all get the same one.
func (s *RegistryService) EnsureReferralCode(ctx context.Context, ownerID int64) (*domain.ReferralCode, error) {
	existing, err := s.codes.GetActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	return s.codes.Issue(ctx, ownerID, code)
}

// RegenerateReferralCode replaces the active code with a fresh one. The old
// code keeps resolving so already-shared links stay valid.
func (s *RegistryService) RegenerateReferralCode(ctx context.Context, ownerID int64) (*domain.ReferralCode, error) {
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	return s.codes.Rotate(ctx, ownerID, code)
}

// RevokeReferralCode makes a code unresolvable. Only the owner may revoke.
func (s *RegistryService) RevokeReferralCode(ctx context.Context, ownerID int64, code string) error {
	existing, err := s.codes.Get(ctx, code)
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		return domain.ErrCodeNotFound
	}
	if existing.Revoked() {
		return domain.ErrCodeRevoked
	}
	return s.codes.Revoke(ctx, code)
}

func generateCode() (string, error) {
	code := make([]byte, config.ReferralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(config.ReferralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("random int: %w", err)
		}
		code[i] = config.ReferralCodeCharset[n.Int64()]
	}
	return string(code), nil
}

func (s *RegistryService) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		_, err = s.codes.Get(ctx, code)
		if errors.Is(err, domain.ErrCodeNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate unique referral code after 10 attempts")
}
