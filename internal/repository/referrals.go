package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manutd22/newlife/internal/domain"
)

type Referrals struct {
	db *pgxpool.Pool
}

func NewReferrals(db *pgxpool.Pool) *Referrals {
	return &Referrals{db: db}
}

// CreateEdge records the referral fact. The referee_id primary key is the
// concurrency guard: a second writer loses the insert and gets
// ErrDuplicateEdge instead of overwriting the first attribution.
func (r *Referrals) CreateEdge(ctx context.Context, referrerID, refereeID int64) (*domain.ReferralEdge, error) {
	edge := &domain.ReferralEdge{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO referral_edges (referee_id, referrer_id)
		VALUES ($1, $2)
		ON CONFLICT (referee_id) DO NOTHING
		RETURNING referee_id, referrer_id, created_at
	`, refereeID, referrerID).Scan(&edge.RefereeID, &edge.ReferrerID, &edge.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDuplicateEdge
		}
		return nil, fmt.Errorf("create referral edge: %w", err)
	}
	return edge, nil
}

// GetEdge returns the edge for a referee, or nil when the user has none.
func (r *Referrals) GetEdge(ctx context.Context, refereeID int64) (*domain.ReferralEdge, error) {
	edge := &domain.ReferralEdge{}
	err := r.db.QueryRow(ctx, `
		SELECT referee_id, referrer_id, created_at
		FROM referral_edges WHERE referee_id = $1
	`, refereeID).Scan(&edge.RefereeID, &edge.ReferrerID, &edge.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get referral edge: %w", err)
	}
	return edge, nil
}

func (r *Referrals) CountByReferrer(ctx context.Context, referrerID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM referral_edges WHERE referrer_id = $1`,
		referrerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}

func (r *Referrals) ListReferees(ctx context.Context, referrerID int64) ([]domain.Friend, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.first_name, u.username, e.created_at
		FROM referral_edges e
		JOIN users u ON u.id = e.referee_id
		WHERE e.referrer_id = $1
		ORDER BY e.created_at DESC
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list referees: %w", err)
	}
	defer rows.Close()

	var friends []domain.Friend
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.UserID, &f.FirstName, &f.Username, &f.InvitedAt); err != nil {
			return nil, fmt.Errorf("scan referee row: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}
