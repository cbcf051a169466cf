package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/manutd22/newlife/internal/domain"
)

// EligibilityChecker decides whether a user may complete a quest right now.
// Checks are read-only; recording the completion is the evaluator's job.
type EligibilityChecker interface {
	Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error)
}

type ChatMemberAPI interface {
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// MembershipChecker verifies channel subscription through the Bot API.
type MembershipChecker struct {
	api ChatMemberAPI
}

func NewMembershipChecker(api ChatMemberAPI) *MembershipChecker {
	return &MembershipChecker{api: api}
}

func (c *MembershipChecker) Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error) {
	member, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: quest.Channel,
		UserID: user.ID,
	})
	if err != nil {
		return false, "", fmt.Errorf("get chat member: %w", err)
	}
	if member == nil {
		return false, "not subscribed to the channel", nil
	}

	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator, models.ChatMemberTypeMember:
		return true, "", nil
	case models.ChatMemberTypeRestricted:
		if member.Restricted != nil && member.Restricted.IsMember {
			return true, "", nil
		}
	}
	return false, "not subscribed to the channel", nil
}

// PageChecker fetches a configured page and looks for expected content.
// Serves the social-post and external-subscription quest types, where the
// proof lives on a public page rather than in the Bot API.
type PageChecker struct {
	client *http.Client
}

func NewPageChecker(client *http.Client) *PageChecker {
	return &PageChecker{client: client}
}

func (c *PageChecker) Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error) {
	url := strings.ReplaceAll(quest.CheckURL, "{user_id}", strconv.FormatInt(user.ID, 10))
	url = strings.ReplaceAll(url, "{username}", user.Username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, "", fmt.Errorf("parse page: %w", err)
	}

	scope := doc.Selection
	if quest.CheckSelector != "" {
		scope = doc.Find(quest.CheckSelector)
	}
	if strings.Contains(scope.Text(), quest.CheckContains) {
		return true, "", nil
	}
	return false, "expected content not found", nil
}

// InviteCountChecker gates invite quests on the number of referral edges the
// user has earned as referrer.
type InviteCountChecker struct {
	edges EdgeStore
}

func NewInviteCountChecker(edges EdgeStore) *InviteCountChecker {
	return &InviteCountChecker{edges: edges}
}

func (c *InviteCountChecker) Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error) {
	n, err := c.edges.CountByReferrer(ctx, user.ID)
	if err != nil {
		return false, "", err
	}
	if n >= quest.MinInvites {
		return true, "", nil
	}
	return false, fmt.Sprintf("invited %d of %d friends", n, quest.MinInvites), nil
}

// WalletChecker requires a bound wallet address. Used for the wallet-connect
// quest and as the proxy for on-chain-transaction, where chain scanning is
// out of scope.
type WalletChecker struct{}

func (WalletChecker) Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error) {
	if user.HasWallet() {
		return true, "", nil
	}
	return false, "no wallet connected", nil
}

// AlwaysEligible passes everyone through; the completion uniqueness is what
// caps the reward at once per user.
type AlwaysEligible struct{}

func (AlwaysEligible) Check(ctx context.Context, user *domain.User, quest *domain.Quest) (bool, string, error) {
	return true, "", nil
}
