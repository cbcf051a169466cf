package handler

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/manutd22/newlife/internal/domain"
)

type saveUserRequest struct {
	InitData   string `json:"initData"`
	StartParam string `json:"startParam"`
	DeviceID   string `json:"deviceId"`
}

// Bonus credit states surfaced to the client. The client renders pending
// until the ledger confirms; it never credits optimistically.
const (
	creditStateConfirmed = "confirmed"
	creditStateRejected  = "rejected"
	creditStatePending   = "pending"
	creditStateNone      = "none"
)

// saveTelegramUser is the launch endpoint: verify the assertion, upsert the
// user, resolve referral intent. Safe to call on every app open.
func (h *Handler) saveTelegramUser(c *fiber.Ctx) error {
	var req saveUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	identity, err := h.identity.Verify(req.InitData)
	if err != nil {
		return fail(c, err)
	}

	user, created, err := h.registry.Upsert(c.Context(), identity)
	if err != nil {
		return fail(c, err)
	}

	code, err := h.registry.EnsureReferralCode(c.Context(), user.ID)
	if err != nil {
		return fail(c, err)
	}

	referral := fiber.Map{"outcome": domain.ReferralNone, "creditState": creditStateNone}
	decision, err := h.referral.ResolveLaunch(c.Context(), identity, req.StartParam, req.DeviceID)
	if err != nil {
		// Transient: attribution is re-driven on the next launch with the
		// same tokens, so report pending rather than failing the whole call.
		slog.Error("resolve referral", "error", err, "user_id", user.ID)
		referral["creditState"] = creditStatePending
	} else {
		referral["outcome"] = decision.Outcome
		switch decision.Outcome {
		case domain.ReferralAttributed, domain.ReferralAlreadyAttributed:
			referral["referrerId"] = decision.ReferrerID
			referral["creditState"] = creditStateConfirmed
		case domain.ReferralSelfRejected:
			referral["creditState"] = creditStateRejected
		}
	}

	// Balance may have moved if this launch completed an attribution.
	balance, err := h.ledger.Balance(c.Context(), user.ID)
	if err != nil {
		slog.Warn("read balance", "error", err, "user_id", user.ID)
	} else {
		user.Balance = balance
	}

	return c.JSON(fiber.Map{
		"user":         userJSON(user),
		"created":      created,
		"referralCode": code.Code,
		"referral":     referral,
	})
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := h.registry.GetUser(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	entries, err := h.ledger.Entries(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	history := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		history = append(history, fiber.Map{
			"id":        e.ID,
			"amount":    e.Amount,
			"reason":    e.Reason,
			"appliedAt": e.AppliedAt,
		})
	}

	return c.JSON(fiber.Map{"user": userJSON(user), "ledger": history})
}

type connectWalletRequest struct {
	Address string `json:"address"`
}

func (h *Handler) connectWallet(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	var req connectWalletRequest
	if err := c.BodyParser(&req); err != nil || req.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address required"})
	}

	if err := h.registry.ConnectWallet(c.Context(), id, req.Address); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handler) getReferralCode(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	code, err := h.registry.EnsureReferralCode(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"code": code.Code, "createdAt": code.CreatedAt})
}

func (h *Handler) regenerateReferralCode(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	code, err := h.registry.RegenerateReferralCode(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"code": code.Code, "createdAt": code.CreatedAt})
}

func (h *Handler) revokeReferralCode(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	if err := h.registry.RevokeReferralCode(c.Context(), id, c.Params("code")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type pendingTokenRequest struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
}

// savePendingToken captures a referral token from a bare link visit, before
// the visitor has authenticated. It is retried on their next launch.
func (h *Handler) savePendingToken(c *fiber.Ctx) error {
	var req pendingTokenRequest
	if err := c.BodyParser(&req); err != nil || req.DeviceID == "" || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deviceId and token required"})
	}

	if err := h.referral.SavePending(c.Context(), req.DeviceID, req.Token); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
