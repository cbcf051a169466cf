package service

import (
	"fmt"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/manutd22/newlife/internal/domain"
)

// IdentityService validates raw Mini App init data. Verification is pure:
// the same payload always yields the same identity and nothing is stored.
type IdentityService struct {
	botToken string
	ttl      time.Duration
}

func NewIdentityService(botToken string, ttl time.Duration) *IdentityService {
	return &IdentityService{botToken: botToken, ttl: ttl}
}

// Verify checks the payload signature and freshness and extracts the stable
// user identity. Any failure maps to domain.ErrInvalidAssertion; the caller
// has nothing to retry without re-authenticating.
func (s *IdentityService) Verify(raw string) (*domain.VerifiedIdentity, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty init data", domain.ErrInvalidAssertion)
	}

	if err := initdata.Validate(raw, s.botToken, s.ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAssertion, err)
	}
	if data.User.ID == 0 {
		return nil, fmt.Errorf("%w: no user in init data", domain.ErrInvalidAssertion)
	}

	return &domain.VerifiedIdentity{
		UserID:     data.User.ID,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		Username:   data.User.Username,
		StartParam: data.StartParam,
		AuthDate:   data.AuthDate(),
	}, nil
}
