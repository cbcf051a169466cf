package domain

import "time"

type QuestType string

const (
	QuestSubscriptionCheck    QuestType = "subscription-check"
	QuestDailyBonus           QuestType = "daily-bonus"
	QuestInviteCount          QuestType = "invite-count"
	QuestWalletConnect        QuestType = "wallet-connect"
	QuestSocialPost           QuestType = "social-post"
	QuestExternalSubscription QuestType = "external-subscription"
	QuestOnChainTransaction   QuestType = "on-chain-transaction"
)

// Quest is a configured task with a one-time reward. Check* fields only
// matter for the quest types that use them.
type Quest struct {
	ID     int64
	Title  string
	Type   QuestType
	Reward int64

	// subscription-check
	Channel string

	// social-post / external-subscription page checks
	CheckURL      string
	CheckSelector string
	CheckContains string

	// invite-count
	MinInvites int

	Enabled bool
}

// QuestCompletion records that a user finished a quest. Unique per
// (user, quest).
type QuestCompletion struct {
	UserID      int64
	QuestID     int64
	CompletedAt time.Time
}

type QuestOutcomeKind string

const (
	QuestCompleted        QuestOutcomeKind = "completed"
	QuestAlreadyCompleted QuestOutcomeKind = "already_completed"
	QuestNotEligible      QuestOutcomeKind = "not_eligible"
)

// QuestOutcome is the result of one evaluate call. Reward is set only for
// Completed; Reason only for NotEligible.
type QuestOutcome struct {
	Kind   QuestOutcomeKind
	Reward int64
	Reason string
}
