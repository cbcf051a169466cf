package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/manutd22/newlife/internal/domain"
	"github.com/manutd22/newlife/internal/service"
)

type questStoreStub struct {
	quest     *domain.Quest
	completed bool
}

func (s *questStoreStub) GetByID(ctx context.Context, id int64) (*domain.Quest, error) {
	if s.quest == nil || s.quest.ID != id {
		return nil, domain.ErrQuestNotFound
	}
	q := *s.quest
	return &q, nil
}

func (s *questStoreStub) ListIncomplete(ctx context.Context, userID int64) ([]domain.Quest, error) {
	return nil, nil
}

func (s *questStoreStub) HasCompletion(ctx context.Context, userID, questID int64) (bool, error) {
	return s.completed, nil
}

func (s *questStoreStub) CreateCompletion(ctx context.Context, userID, questID int64) (*domain.QuestCompletion, error) {
	if s.completed {
		return nil, domain.ErrAlreadyCompleted
	}
	s.completed = true
	return &domain.QuestCompletion{UserID: userID, QuestID: questID, CompletedAt: time.Now()}, nil
}

type userStoreStub struct {
	user *domain.User
}

func (s *userStoreStub) Upsert(ctx context.Context, id *domain.VerifiedIdentity) (*domain.User, bool, error) {
	return s.user, false, nil
}

func (s *userStoreStub) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.user, nil
}

func (s *userStoreStub) SetWallet(ctx context.Context, id int64, address string) error {
	return nil
}

func (s *userStoreStub) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	return nil, nil
}

// ledgerStoreStub applies entries normally but cannot read the balance back.
type ledgerStoreStub struct {
	entries []*domain.LedgerEntry
}

func (s *ledgerStoreStub) Apply(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	for _, old := range s.entries {
		if old.SourceEventID == e.SourceEventID {
			return old, domain.ErrDuplicateEvent
		}
	}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *ledgerStoreStub) Balance(ctx context.Context, userID int64) (int64, error) {
	return 0, errors.New("balance read failed")
}

func (s *ledgerStoreStub) ListByUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	return nil, nil
}

// A failing balance read after a successful completion must not fail the
// request or go unlogged; the response simply omits the balance.
func TestCompleteQuest_BalanceReadFailure(t *testing.T) {
	var logBuf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, nil)))
	defer slog.SetDefault(prev)

	ledgerSvc := service.NewLedgerService(&ledgerStoreStub{})
	questSvc := service.NewQuestService(
		&questStoreStub{quest: &domain.Quest{ID: 1, Title: "Daily bonus", Type: domain.QuestDailyBonus, Reward: 50, Enabled: true}},
		&userStoreStub{user: &domain.User{ID: 7, FirstName: "Ann"}},
		ledgerSvc,
		map[domain.QuestType]service.EligibilityChecker{domain.QuestDailyBonus: service.AlwaysEligible{}},
		time.Second,
	)

	app := fiber.New()
	h := New(Deps{Ledger: ledgerSvc, Quests: questSvc})
	h.Register(app)

	req := httptest.NewRequest(http.MethodPost, "/quests/complete", strings.NewReader(`{"userId":7,"questId":1}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if _, ok := body["balance"]; ok {
		t.Error("balance present in response despite failed read")
	}
	if !strings.Contains(logBuf.String(), "read balance") {
		t.Error("failed balance read was not logged")
	}
}
