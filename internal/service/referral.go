package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/manutd22/newlife/internal/config"
	"github.com/manutd22/newlife/internal/domain"
)

type EdgeStore interface {
	CreateEdge(ctx context.Context, referrerID, refereeID int64) (*domain.ReferralEdge, error)
	GetEdge(ctx context.Context, refereeID int64) (*domain.ReferralEdge, error)
	CountByReferrer(ctx context.Context, referrerID int64) (int, error)
	ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error)
}

type PendingStore interface {
	Put(ctx context.Context, deviceID, token string) error
	Get(ctx context.Context, deviceID string) (string, time.Time, error)
	Clear(ctx context.Context, deviceID string) error
}

// ReferralService attributes new users to their inviters. Attribution is
// first-write-wins: once an edge exists, later launches never move it.
type ReferralService struct {
	edges   EdgeStore
	codes   CodeStore
	users   UserStore
	pending PendingStore
	ledger  *LedgerService
	bonus   int64
}

func NewReferralService(edges EdgeStore, codes CodeStore, users UserStore, pending PendingStore, ledger *LedgerService, bonus int64) *ReferralService {
	return &ReferralService{
		edges:   edges,
		codes:   codes,
		users:   users,
		pending: pending,
		ledger:  ledger,
		bonus:   bonus,
	}
}

// Resolve walks the candidate tokens in the caller's precedence order and
// attributes the first one that resolves to a real referrer. Unresolvable
// tokens mean "nothing to attribute" and the walk continues; a token that
// resolves to the user themselves is a definitive rejection.
func (s *ReferralService) Resolve(ctx context.Context, identity *domain.VerifiedIdentity, candidates []string) (domain.ReferralDecision, error) {
	existing, err := s.edges.GetEdge(ctx, identity.UserID)
	if err != nil {
		return domain.ReferralDecision{}, err
	}
	if existing != nil {
		return s.alreadyAttributed(ctx, existing), nil
	}

	for _, token := range candidates {
		if token == "" {
			continue
		}
		referrerID, ok, err := s.resolveToken(ctx, token)
		if err != nil {
			return domain.ReferralDecision{}, err
		}
		if !ok {
			continue
		}
		if referrerID == identity.UserID {
			return domain.ReferralDecision{
				Outcome: domain.ReferralSelfRejected,
				Token:   token,
			}, nil
		}
		return s.attribute(ctx, referrerID, identity.UserID, token)
	}

	return domain.ReferralDecision{Outcome: domain.ReferralNone}, nil
}

func (s *ReferralService) attribute(ctx context.Context, referrerID, refereeID int64, token string) (domain.ReferralDecision, error) {
	edge, err := s.edges.CreateEdge(ctx, referrerID, refereeID)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEdge) {
			// Lost the race to a concurrent launch. The winner's edge stands.
			existing, err := s.edges.GetEdge(ctx, refereeID)
			if err != nil {
				return domain.ReferralDecision{}, err
			}
			return s.alreadyAttributed(ctx, existing), nil
		}
		return domain.ReferralDecision{}, err
	}

	return domain.ReferralDecision{
		Outcome:       domain.ReferralAttributed,
		ReferrerID:    edge.ReferrerID,
		Token:         token,
		BonusCredited: s.creditBonus(ctx, edge),
	}, nil
}

// alreadyAttributed re-drives the referrer bonus so a crash between edge
// creation and the ledger call heals on the next launch. The ledger
// deduplicates by event id, so this is safe to do every time.
func (s *ReferralService) alreadyAttributed(ctx context.Context, edge *domain.ReferralEdge) domain.ReferralDecision {
	return domain.ReferralDecision{
		Outcome:       domain.ReferralAlreadyAttributed,
		ReferrerID:    edge.ReferrerID,
		BonusCredited: s.creditBonus(ctx, edge),
	}
}

func (s *ReferralService) creditBonus(ctx context.Context, edge *domain.ReferralEdge) bool {
	_, err := s.ledger.Credit(ctx, edge.ReferrerID, s.bonus,
		domain.ReasonReferralBonus, domain.ReferralEventID(edge.RefereeID))
	if err == nil {
		return true
	}
	if !errors.Is(err, domain.ErrDuplicateEvent) {
		// The edge is durable, so the next launch retries this credit with
		// the same event id.
		slog.Error("credit referral bonus", "error", err,
			"referrer_id", edge.ReferrerID, "referee_id", edge.RefereeID)
	}
	return false
}

// resolveToken maps a token to a referrer id. Supported forms: invite_<id>,
// r_<code> and a bare referral code. Anything else, an unknown or revoked
// code, or a referrer that does not exist is "no match", not an error.
func (s *ReferralService) resolveToken(ctx context.Context, token string) (int64, bool, error) {
	if raw, found := strings.CutPrefix(token, config.InviteTokenPrefix); found {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, false, nil
		}
		if _, err := s.users.GetByID(ctx, id); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return 0, false, nil
			}
			return 0, false, err
		}
		return id, true, nil
	}

	code := strings.TrimPrefix(token, config.CodeTokenPrefix)
	rc, err := s.codes.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if rc.Revoked() {
		return 0, false, nil
	}
	return rc.OwnerID, true, nil
}

// ResolveLaunch is the per-launch entry point. It stacks the explicit
// deep-link parameter over the assertion-embedded one over the device's
// pending token, resolves, and clears the pending token on any definitive
// outcome. A transient failure leaves the pending token in place for the
// next launch.
func (s *ReferralService) ResolveLaunch(ctx context.Context, identity *domain.VerifiedIdentity, deepLinkToken, deviceID string) (domain.ReferralDecision, error) {
	candidates := []string{deepLinkToken, identity.StartParam}

	var pendingToken string
	if deviceID != "" {
		token, storedAt, err := s.pending.Get(ctx, deviceID)
		switch {
		case err != nil:
			slog.Warn("load pending referral token", "error", err, "device_id", deviceID)
		case token == "":
		case time.Since(storedAt) > config.PendingTokenMaxAge:
			// Too old to act on; drop the row rather than carry it forever.
			if err := s.pending.Clear(ctx, deviceID); err != nil {
				slog.Warn("clear expired referral token", "error", err, "device_id", deviceID)
			}
		default:
			pendingToken = token
			candidates = append(candidates, token)
		}
	}

	decision, err := s.Resolve(ctx, identity, candidates)
	if err != nil {
		return decision, err
	}

	if deviceID != "" && pendingToken != "" {
		if err := s.pending.Clear(ctx, deviceID); err != nil {
			slog.Warn("clear pending referral token", "error", err, "device_id", deviceID)
		}
	}
	return decision, nil
}

// SavePending stores a token seen before the visitor authenticated.
func (s *ReferralService) SavePending(ctx context.Context, deviceID, token string) error {
	return s.pending.Put(ctx, deviceID, token)
}

func (s *ReferralService) InviteCount(ctx context.Context, referrerID int64) (int, error) {
	return s.edges.CountByReferrer(ctx, referrerID)
}

func (s *ReferralService) Friends(ctx context.Context, referrerID int64) ([]domain.Friend, error) {
	return s.edges.ListReferees(ctx, referrerID)
}
