package domain

import "time"

// User is a Telegram identity known to the app. The balance is maintained by
// the reward ledger and never touched directly.
type User struct {
	ID            int64
	FirstName     string
	LastName      string
	Username      string
	WalletAddress *string
	Balance       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

func (u *User) HasWallet() bool {
	return u.WalletAddress != nil && *u.WalletAddress != ""
}

// VerifiedIdentity is the result of validating a launch assertion. It carries
// everything the registry needs to upsert the user, plus the start parameter
// embedded in the signed payload.
type VerifiedIdentity struct {
	UserID     int64
	FirstName  string
	LastName   string
	Username   string
	StartParam string
	AuthDate   time.Time
}
