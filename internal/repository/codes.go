package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manutd22/newlife/internal/domain"
)

type Codes struct {
	db *pgxpool.Pool
}

func NewCodes(db *pgxpool.Pool) *Codes {
	return &Codes{db: db}
}

const codeColumns = `code, owner_id, active, revoked_at, created_at`

func scanCode(row pgx.Row) (*domain.ReferralCode, error) {
	c := &domain.ReferralCode{}
	err := row.Scan(&c.Code, &c.OwnerID, &c.Active, &c.RevokedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Codes) Get(ctx context.Context, code string) (*domain.ReferralCode, error) {
	c, err := scanCode(r.db.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM referral_codes WHERE code = $1`, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	return c, nil
}

func (r *Codes) GetActive(ctx context.Context, ownerID int64) (*domain.ReferralCode, error) {
	c, err := scanCode(r.db.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM referral_codes WHERE owner_id = $1 AND active`, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active referral code: %w", err)
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// activeAfterConflict reads the code a concurrent writer installed. Called
// after a unique violation on the one-active-per-owner index, so the winner's
// committed row must exist.
func (r *Codes) activeAfterConflict(ctx context.Context, ownerID int64) (*domain.ReferralCode, error) {
	c, err := r.GetActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("referral code conflict for owner %d with no active code", ownerID)
	}
	return c, nil
}

// Issue installs a first code for an owner with none. Two concurrent launches
// both land here; the one-active-per-owner index lets exactly one insert
// through and the loser gets the winner's code back.
func (r *Codes) Issue(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error) {
	c, err := scanCode(r.db.QueryRow(ctx, `
		INSERT INTO referral_codes (code, owner_id)
		VALUES ($1, $2)
		RETURNING `+codeColumns,
		code, ownerID))
	if err != nil {
		if isUniqueViolation(err) {
			return r.activeAfterConflict(ctx, ownerID)
		}
		return nil, fmt.Errorf("issue referral code: %w", err)
	}
	return c, nil
}

// Rotate deactivates the owner's current code and installs a new one in a
// single transaction. Old codes stay resolvable until revoked.
func (r *Codes) Rotate(ctx context.Context, ownerID int64, code string) (*domain.ReferralCode, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE referral_codes SET active = FALSE WHERE owner_id = $1 AND active`,
		ownerID); err != nil {
		return nil, fmt.Errorf("deactivate old codes: %w", err)
	}

	c, err := scanCode(tx.QueryRow(ctx, `
		INSERT INTO referral_codes (code, owner_id)
		VALUES ($1, $2)
		RETURNING `+codeColumns,
		code, ownerID))
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent writer installed an active code this transaction's
			// snapshot never saw. Their code stands.
			return r.activeAfterConflict(ctx, ownerID)
		}
		return nil, fmt.Errorf("insert referral code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func (r *Codes) Revoke(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE referral_codes
		SET revoked_at = now(), active = FALSE
		WHERE code = $1 AND revoked_at IS NULL
	`, code)
	if err != nil {
		return fmt.Errorf("revoke referral code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}
