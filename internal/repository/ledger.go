package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manutd22/newlife/internal/domain"
)

type Ledger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

const entryColumns = `id, user_id, amount, reason, source_event_id, applied_at`

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.SourceEventID, &e.AppliedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Apply inserts the entry and moves the balance in one transaction. The
// source_event_id unique index deduplicates replays: when it fires, the
// existing entry is returned together with ErrDuplicateEvent and the balance
// is untouched. A credit that would take the balance below zero returns
// ErrNegativeBalance and nothing is written.
func (r *Ledger) Apply(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := scanEntry(tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, reason, source_event_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_event_id) DO NOTHING
		RETURNING `+entryColumns,
		e.ID, e.UserID, e.Amount, e.Reason, e.SourceEventID))
	if err != nil {
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("insert ledger entry: %w", err)
		}
		// Replay. Roll back and hand the caller the original entry.
		_ = tx.Rollback(ctx)
		existing, err := r.BySourceEvent(ctx, e.SourceEventID)
		if err != nil {
			return nil, err
		}
		return existing, domain.ErrDuplicateEvent
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
	`, e.UserID, e.Amount)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNegativeBalance
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *Ledger) BySourceEvent(ctx context.Context, sourceEventID string) (*domain.LedgerEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE source_event_id = $1`,
		sourceEventID))
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

func (r *Ledger) ListByUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY applied_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Balance reads the running total maintained by Apply.
func (r *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}
