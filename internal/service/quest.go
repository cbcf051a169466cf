package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/manutd22/newlife/internal/domain"
)

type QuestStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Quest, error)
	ListIncomplete(ctx context.Context, userID int64) ([]domain.Quest, error)
	HasCompletion(ctx context.Context, userID, questID int64) (bool, error)
	CreateCompletion(ctx context.Context, userID, questID int64) (*domain.QuestCompletion, error)
}

// QuestService evaluates quest completion. The completion row and the ledger
// entry form one idempotent unit keyed by the quest event id: whichever half
// a crashed run left behind, re-evaluating finishes the job without paying
// twice.
type QuestService struct {
	quests   QuestStore
	users    UserStore
	ledger   *LedgerService
	checkers map[domain.QuestType]EligibilityChecker
	timeout  time.Duration
}

func NewQuestService(quests QuestStore, users UserStore, ledger *LedgerService, checkers map[domain.QuestType]EligibilityChecker, timeout time.Duration) *QuestService {
	return &QuestService{
		quests:   quests,
		users:    users,
		ledger:   ledger,
		checkers: checkers,
		timeout:  timeout,
	}
}

// DefaultCheckers wires the standard checker per quest type.
func DefaultCheckers(api ChatMemberAPI, page *PageChecker, edges EdgeStore) map[domain.QuestType]EligibilityChecker {
	return map[domain.QuestType]EligibilityChecker{
		domain.QuestSubscriptionCheck:    NewMembershipChecker(api),
		domain.QuestDailyBonus:           AlwaysEligible{},
		domain.QuestInviteCount:          NewInviteCountChecker(edges),
		domain.QuestWalletConnect:        WalletChecker{},
		domain.QuestOnChainTransaction:   WalletChecker{},
		domain.QuestSocialPost:           page,
		domain.QuestExternalSubscription: page,
	}
}

func (s *QuestService) Incomplete(ctx context.Context, userID int64) ([]domain.Quest, error) {
	return s.quests.ListIncomplete(ctx, userID)
}

// CheckEligibility probes whether the user could complete the quest, with no
// side effects. Timeouts and checker failures read as "not eligible".
func (s *QuestService) CheckEligibility(ctx context.Context, userID, questID int64) (bool, string, error) {
	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return false, "", err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, "", err
	}
	eligible, reason := s.runChecker(ctx, user, quest)
	return eligible, reason, nil
}

// Evaluate completes the quest for the user if they are eligible, crediting
// the reward exactly once.
func (s *QuestService) Evaluate(ctx context.Context, userID, questID int64) (domain.QuestOutcome, error) {
	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return domain.QuestOutcome{}, err
	}
	if !quest.Enabled {
		return domain.QuestOutcome{Kind: domain.QuestNotEligible, Reason: "quest disabled"}, nil
	}

	done, err := s.quests.HasCompletion(ctx, userID, questID)
	if err != nil {
		return domain.QuestOutcome{}, err
	}
	if done {
		return s.alreadyCompleted(ctx, userID, quest)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.QuestOutcome{}, err
	}

	if eligible, reason := s.runChecker(ctx, user, quest); !eligible {
		return domain.QuestOutcome{Kind: domain.QuestNotEligible, Reason: reason}, nil
	}

	if _, err := s.quests.CreateCompletion(ctx, userID, questID); err != nil {
		if errors.Is(err, domain.ErrAlreadyCompleted) {
			// Concurrent evaluate won the insert.
			return s.alreadyCompleted(ctx, userID, quest)
		}
		return domain.QuestOutcome{}, err
	}

	if err := s.creditReward(ctx, userID, quest); err != nil {
		// The completion row is durable; a retry re-drives this credit with
		// the same event id.
		return domain.QuestOutcome{}, err
	}
	return domain.QuestOutcome{Kind: domain.QuestCompleted, Reward: quest.Reward}, nil
}

// alreadyCompleted re-attempts the credit before answering, so a crash
// between completion and credit heals here.
func (s *QuestService) alreadyCompleted(ctx context.Context, userID int64, quest *domain.Quest) (domain.QuestOutcome, error) {
	if err := s.creditReward(ctx, userID, quest); err != nil {
		return domain.QuestOutcome{}, err
	}
	return domain.QuestOutcome{Kind: domain.QuestAlreadyCompleted}, nil
}

func (s *QuestService) creditReward(ctx context.Context, userID int64, quest *domain.Quest) error {
	_, err := s.ledger.Credit(ctx, userID, quest.Reward,
		domain.ReasonQuestReward, domain.QuestEventID(userID, quest.ID))
	if err != nil && !errors.Is(err, domain.ErrDuplicateEvent) {
		return err
	}
	return nil
}

func (s *QuestService) runChecker(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string) {
	checker, ok := s.checkers[quest.Type]
	if !ok {
		return false, "no eligibility check configured"
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	eligible, reason, err := checker.Check(cctx, user, quest)
	if err != nil {
		// Timeout or an upstream failure is never a completion; the user
		// simply retries.
		slog.Warn("eligibility check failed", "error", err,
			"user_id", user.ID, "quest_id", quest.ID, "type", quest.Type)
		return false, "eligibility check unavailable, try again"
	}
	return eligible, reason
}
