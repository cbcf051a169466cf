// Package catalog loads the quest definitions the evaluator runs against.
// Quests are configuration, not user data: the TOML file is the source of
// truth and is synced into the database at startup.
package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/manutd22/newlife/internal/domain"
	"github.com/pelletier/go-toml/v2"
)

type questEntry struct {
	ID            int64  `toml:"id"`
	Title         string `toml:"title"`
	Type          string `toml:"type"`
	Reward        int64  `toml:"reward"`
	Channel       string `toml:"channel"`
	CheckURL      string `toml:"check_url"`
	CheckSelector string `toml:"check_selector"`
	CheckContains string `toml:"check_contains"`
	MinInvites    int    `toml:"min_invites"`
	Disabled      bool   `toml:"disabled"`
}

type file struct {
	Quests []questEntry `toml:"quests"`
}

var validTypes = map[domain.QuestType]bool{
	domain.QuestSubscriptionCheck:    true,
	domain.QuestDailyBonus:           true,
	domain.QuestInviteCount:          true,
	domain.QuestWalletConnect:        true,
	domain.QuestSocialPost:           true,
	domain.QuestExternalSubscription: true,
	domain.QuestOnChainTransaction:   true,
}

func Load(path string) ([]domain.Quest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quest catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.Quest, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quest catalog: %w", err)
	}

	seen := make(map[int64]bool, len(f.Quests))
	quests := make([]domain.Quest, 0, len(f.Quests))
	for _, e := range f.Quests {
		if e.ID <= 0 {
			return nil, fmt.Errorf("quest %q: id must be positive", e.Title)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("quest id %d defined twice", e.ID)
		}
		seen[e.ID] = true

		qt := domain.QuestType(e.Type)
		if !validTypes[qt] {
			return nil, fmt.Errorf("quest %d: unknown type %q", e.ID, e.Type)
		}
		if e.Reward <= 0 {
			return nil, fmt.Errorf("quest %d: reward must be positive", e.ID)
		}
		if qt == domain.QuestSubscriptionCheck && e.Channel == "" {
			return nil, fmt.Errorf("quest %d: subscription-check needs a channel", e.ID)
		}
		if qt == domain.QuestInviteCount && e.MinInvites <= 0 {
			return nil, fmt.Errorf("quest %d: invite-count needs min_invites", e.ID)
		}

		quests = append(quests, domain.Quest{
			ID:            e.ID,
			Title:         e.Title,
			Type:          qt,
			Reward:        e.Reward,
			Channel:       e.Channel,
			CheckURL:      e.CheckURL,
			CheckSelector: e.CheckSelector,
			CheckContains: e.CheckContains,
			MinInvites:    e.MinInvites,
			Enabled:       !e.Disabled,
		})
	}
	return quests, nil
}

// Sync pushes the catalog into storage so the evaluator and the API read a
// consistent set.
func Sync(ctx context.Context, store interface {
	Upsert(ctx context.Context, q *domain.Quest) error
}, quests []domain.Quest) error {
	for i := range quests {
		if err := store.Upsert(ctx, &quests[i]); err != nil {
			return fmt.Errorf("sync quest %d: %w", quests[i].ID, err)
		}
	}
	return nil
}
