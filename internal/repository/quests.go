package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manutd22/newlife/internal/domain"
)

type Quests struct {
	db *pgxpool.Pool
}

func NewQuests(db *pgxpool.Pool) *Quests {
	return &Quests{db: db}
}

const questColumns = `id, title, type, reward, channel, check_url, check_selector, check_contains, min_invites, enabled`

func scanQuest(row pgx.Row) (*domain.Quest, error) {
	q := &domain.Quest{}
	err := row.Scan(&q.ID, &q.Title, &q.Type, &q.Reward, &q.Channel,
		&q.CheckURL, &q.CheckSelector, &q.CheckContains, &q.MinInvites, &q.Enabled)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Upsert syncs one catalog entry into the quests table.
func (r *Quests) Upsert(ctx context.Context, q *domain.Quest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO quests (id, title, type, reward, channel, check_url, check_selector, check_contains, min_invites, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			type = EXCLUDED.type,
			reward = EXCLUDED.reward,
			channel = EXCLUDED.channel,
			check_url = EXCLUDED.check_url,
			check_selector = EXCLUDED.check_selector,
			check_contains = EXCLUDED.check_contains,
			min_invites = EXCLUDED.min_invites,
			enabled = EXCLUDED.enabled
	`, q.ID, q.Title, q.Type, q.Reward, q.Channel,
		q.CheckURL, q.CheckSelector, q.CheckContains, q.MinInvites, q.Enabled)
	if err != nil {
		return fmt.Errorf("upsert quest: %w", err)
	}
	return nil
}

func (r *Quests) GetByID(ctx context.Context, id int64) (*domain.Quest, error) {
	q, err := scanQuest(r.db.QueryRow(ctx,
		`SELECT `+questColumns+` FROM quests WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrQuestNotFound
		}
		return nil, fmt.Errorf("get quest: %w", err)
	}
	return q, nil
}

// ListIncomplete returns enabled quests the user has not completed yet.
func (r *Quests) ListIncomplete(ctx context.Context, userID int64) ([]domain.Quest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+questColumns+`
		FROM quests q
		WHERE q.enabled
		  AND NOT EXISTS (
			SELECT 1 FROM quest_completions c
			WHERE c.quest_id = q.id AND c.user_id = $1
		  )
		ORDER BY q.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomplete quests: %w", err)
	}
	defer rows.Close()

	var quests []domain.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest row: %w", err)
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}

func (r *Quests) HasCompletion(ctx context.Context, userID, questID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM quest_completions WHERE user_id = $1 AND quest_id = $2
		)
	`, userID, questID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check quest completion: %w", err)
	}
	return exists, nil
}

// CreateCompletion records the completion. The composite primary key is the
// guard: a concurrent duplicate gets ErrAlreadyCompleted, not a second row.
func (r *Quests) CreateCompletion(ctx context.Context, userID, questID int64) (*domain.QuestCompletion, error) {
	c := &domain.QuestCompletion{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO quest_completions (user_id, quest_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, quest_id) DO NOTHING
		RETURNING user_id, quest_id, completed_at
	`, userID, questID).Scan(&c.UserID, &c.QuestID, &c.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAlreadyCompleted
		}
		return nil, fmt.Errorf("create quest completion: %w", err)
	}
	return c, nil
}
