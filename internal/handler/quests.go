package handler

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/manutd22/newlife/internal/domain"
)

func queryInt64(c *fiber.Ctx, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	return v, err == nil
}

func (h *Handler) listIncompleteQuests(c *fiber.Ctx) error {
	userID, ok := queryInt64(c, "userId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId required"})
	}

	quests, err := h.quests.Incomplete(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(quests))
	for _, q := range quests {
		out = append(out, fiber.Map{
			"id":     q.ID,
			"title":  q.Title,
			"type":   q.Type,
			"reward": q.Reward,
		})
	}
	return c.JSON(out)
}

// checkSubscription probes eligibility without recording anything. The
// client uses it to gate the Complete button for subscription quests.
func (h *Handler) checkSubscription(c *fiber.Ctx) error {
	userID, ok := queryInt64(c, "userId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId required"})
	}
	questID, ok := queryInt64(c, "questId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "questId required"})
	}

	eligible, reason, err := h.quests.CheckEligibility(c.Context(), userID, questID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"isSubscribed": eligible, "reason": reason})
}

type completeQuestRequest struct {
	UserID  int64 `json:"userId"`
	QuestID int64 `json:"questId"`
}

func (h *Handler) completeQuest(c *fiber.Ctx) error {
	var req completeQuestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	outcome, err := h.quests.Evaluate(c.Context(), req.UserID, req.QuestID)
	if err != nil {
		return fail(c, err)
	}

	resp := fiber.Map{
		"success": outcome.Kind == domain.QuestCompleted,
		"outcome": outcome.Kind,
	}
	switch outcome.Kind {
	case domain.QuestCompleted:
		resp["reward"] = outcome.Reward
		if balance, err := h.ledger.Balance(c.Context(), req.UserID); err != nil {
			slog.Warn("read balance", "error", err, "user_id", req.UserID)
		} else {
			resp["balance"] = balance
		}
	case domain.QuestNotEligible:
		resp["message"] = outcome.Reason
	}
	return c.JSON(resp)
}
