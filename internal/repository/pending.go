package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingTokens stores referral tokens captured before the visitor's identity
// is known (e.g. a bare link open on a device). They are retried as the
// lowest-priority candidate on the next verified launch.
type PendingTokens struct {
	db *pgxpool.Pool
}

func NewPendingTokens(db *pgxpool.Pool) *PendingTokens {
	return &PendingTokens{db: db}
}

func (r *PendingTokens) Put(ctx context.Context, deviceID, token string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pending_tokens (device_id, token)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET token = EXCLUDED.token, created_at = now()
	`, deviceID, token)
	if err != nil {
		return fmt.Errorf("store pending token: %w", err)
	}
	return nil
}

// Get returns the stored token for a device, or "" when there is none.
func (r *PendingTokens) Get(ctx context.Context, deviceID string) (string, time.Time, error) {
	var token string
	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`SELECT token, created_at FROM pending_tokens WHERE device_id = $1`,
		deviceID).Scan(&token, &createdAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("get pending token: %w", err)
	}
	return token, createdAt, nil
}

func (r *PendingTokens) Clear(ctx context.Context, deviceID string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM pending_tokens WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("clear pending token: %w", err)
	}
	return nil
}
