package domain

import "errors"

var (
	ErrInvalidAssertion = errors.New("invalid launch assertion")
	ErrUserNotFound     = errors.New("user not found")
	ErrQuestNotFound    = errors.New("quest not found")
	ErrCodeNotFound     = errors.New("referral code not found")
	ErrCodeRevoked      = errors.New("referral code revoked")

	// Idempotent no-ops. The caller already got what it asked for, just not
	// on this call.
	ErrDuplicateEvent   = errors.New("duplicate source event")
	ErrDuplicateEdge    = errors.New("referral edge already exists")
	ErrAlreadyCompleted = errors.New("quest already completed")

	ErrNegativeBalance = errors.New("credit would make balance negative")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidReason   = errors.New("invalid ledger reason")
)
