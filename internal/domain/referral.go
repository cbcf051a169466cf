package domain

import "time"

// ReferralEdge links a referred user to their referrer. At most one edge per
// referee, created once and never updated.
type ReferralEdge struct {
	RefereeID  int64
	ReferrerID int64
	CreatedAt  time.Time
}

// ReferralCode is a shareable invite token. An owner has at most one active
// code; regenerating keeps old codes resolvable until they are revoked.
type ReferralCode struct {
	Code      string
	OwnerID   int64
	Active    bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (c *ReferralCode) Revoked() bool {
	return c.RevokedAt != nil
}

// Friend is a referee as shown on the friends page.
type Friend struct {
	UserID    int64
	FirstName string
	Username  string
	InvitedAt time.Time
}

type ReferralOutcome string

const (
	ReferralAttributed        ReferralOutcome = "attributed"
	ReferralNone              ReferralOutcome = "no_referral"
	ReferralSelfRejected      ReferralOutcome = "self_referral_rejected"
	ReferralAlreadyAttributed ReferralOutcome = "already_attributed"
)

// ReferralDecision is the result of resolving the candidate tokens for one
// launch. BonusCredited reports whether the referrer bonus went through on
// this call (it is false for replays, where the ledger deduplicates it).
type ReferralDecision struct {
	Outcome       ReferralOutcome
	ReferrerID    int64
	Token         string
	BonusCredited bool
}
