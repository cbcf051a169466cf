package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/manutd22/newlife/internal/domain"
)

// LedgerStore is the transactional persistence the ledger runs on. Apply
// must insert the entry and move the balance atomically, keying duplicates
// off the source event id (returning the original entry plus
// domain.ErrDuplicateEvent) and refusing credits that would drive the
// balance negative (domain.ErrNegativeBalance).
type LedgerStore interface {
	Apply(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error)
}

type LedgerService struct {
	store LedgerStore
}

func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{store: store}
}

var validReasons = map[domain.LedgerReason]bool{
	domain.ReasonQuestReward:   true,
	domain.ReasonReferralBonus: true,
	domain.ReasonCorrection:    true,
}

// Credit applies a balance mutation at most once per source event. A replay
// returns the original entry together with domain.ErrDuplicateEvent; callers
// treat that as success. Retries after transient failures must reuse the
// same sourceEventID, never mint a fresh one.
func (s *LedgerService) Credit(ctx context.Context, userID, amount int64, reason domain.LedgerReason, sourceEventID string) (*domain.LedgerEntry, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !validReasons[reason] {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReason, reason)
	}
	if sourceEventID == "" {
		return nil, fmt.Errorf("credit user %d: empty source event id", userID)
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		SourceEventID: sourceEventID,
	}
	return s.store.Apply(ctx, entry)
}

func (s *LedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.store.Balance(ctx, userID)
}

func (s *LedgerService) Entries(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	return s.store.ListByUser(ctx, userID)
}
