package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/manutd22/newlife/internal/domain"
	"github.com/manutd22/newlife/internal/service"
)

type Handler struct {
	identity *service.IdentityService
	registry *service.RegistryService
	referral *service.ReferralService
	ledger   *service.LedgerService
	quests   *service.QuestService
}

type Deps struct {
	Identity *service.IdentityService
	Registry *service.RegistryService
	Referral *service.ReferralService
	Ledger   *service.LedgerService
	Quests   *service.QuestService
}

func New(deps Deps) *Handler {
	return &Handler{
		identity: deps.Identity,
		registry: deps.Registry,
		referral: deps.Referral,
		ledger:   deps.Ledger,
		quests:   deps.Quests,
	}
}

func (h *Handler) Register(app *fiber.App) {
	app.Post("/users/save-telegram-user", h.saveTelegramUser)
	app.Get("/users/:id", h.getUser)
	app.Post("/users/:id/connect-wallet", h.connectWallet)
	app.Get("/users/:id/referral-code", h.getReferralCode)
	app.Post("/users/:id/referral-code", h.regenerateReferralCode)
	app.Delete("/users/:id/referral-code/:code", h.revokeReferralCode)

	app.Post("/referral/pending", h.savePendingToken)
	app.Get("/friends", h.listFriends)
	app.Get("/leaderboard", h.leaderboard)

	app.Get("/quests/incomplete", h.listIncompleteQuests)
	app.Get("/quests/check-subscription", h.checkSubscription)
	app.Post("/quests/complete", h.completeQuest)
}

// fail maps domain errors to HTTP responses without leaking internals.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAssertion):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid init data"})
	case errors.Is(err, domain.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.Is(err, domain.ErrQuestNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
	case errors.Is(err, domain.ErrCodeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "referral code not found"})
	case errors.Is(err, domain.ErrCodeRevoked):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "referral code revoked"})
	case errors.Is(err, domain.ErrNegativeBalance), errors.Is(err, domain.ErrInvalidAmount):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func userJSON(u *domain.User) fiber.Map {
	m := fiber.Map{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"username":  u.Username,
		"balance":   u.Balance,
		"createdAt": u.CreatedAt,
	}
	if u.WalletAddress != nil {
		m["walletAddress"] = *u.WalletAddress
	}
	return m
}
