package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LedgerReason string

const (
	ReasonQuestReward   LedgerReason = "quest-reward"
	ReasonReferralBonus LedgerReason = "referral-bonus"
	ReasonCorrection    LedgerReason = "correction"
)

// LedgerEntry is one applied balance mutation. SourceEventID is the
// idempotency key: replaying the same logical event never produces a second
// entry.
type LedgerEntry struct {
	ID            uuid.UUID
	UserID        int64
	Amount        int64
	Reason        LedgerReason
	SourceEventID string
	AppliedAt     time.Time
}

// QuestEventID builds the idempotency key for a quest reward.
func QuestEventID(userID, questID int64) string {
	return fmt.Sprintf("quest:%d:%d", userID, questID)
}

// ReferralEventID builds the idempotency key for a referral bonus. Keyed by
// referee only: a referee can trigger the bonus at most once.
func ReferralEventID(refereeID int64) string {
	return fmt.Sprintf("referral:%d", refereeID)
}
