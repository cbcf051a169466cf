package config

import "time"

const (
	// Referral code format
	ReferralCodeLength  = 6
	ReferralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Deep-link token prefixes
	InviteTokenPrefix = "invite_"
	CodeTokenPrefix   = "r_"

	// Pending tokens older than this are ignored when retried
	PendingTokenMaxAge = 7 * 24 * time.Hour

	// Page-check HTTP client timeout (outer bound; per-call timeout comes
	// from Config.EligibilityTimeout)
	PageCheckClientTimeout = 30 * time.Second

	// Leaderboard page size cap
	MaxLeaderboardLimit = 100
)
