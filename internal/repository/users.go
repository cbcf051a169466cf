package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manutd22/newlife/internal/domain"
)

type Users struct {
	db *pgxpool.Pool
}

func NewUsers(db *pgxpool.Pool) *Users {
	return &Users{db: db}
}

const userColumns = `id, first_name, last_name, username, wallet_address, balance, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username,
		&u.WalletAddress, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Upsert inserts the user or refreshes profile fields on conflict. The write
// is a single statement, so concurrent launches for the same id can never
// produce two rows. The bool reports whether the row was created.
func (r *Users) Upsert(ctx context.Context, id *domain.VerifiedIdentity) (*domain.User, bool, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, username)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			updated_at = now()
		RETURNING `+userColumns+`, (xmax = 0) AS inserted
	`, id.UserID, id.FirstName, id.LastName, id.Username)

	u := &domain.User{}
	var inserted bool
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username,
		&u.WalletAddress, &u.Balance, &u.CreatedAt, &u.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
	return u, inserted, nil
}

func (r *Users) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Users) SetWallet(ctx context.Context, id int64, address string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET wallet_address = $2, updated_at = now() WHERE id = $1`,
		id, address)
	if err != nil {
		return fmt.Errorf("set wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *Users) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY balance DESC, id ASC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
