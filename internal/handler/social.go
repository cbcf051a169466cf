package handler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) listFriends(c *fiber.Ctx) error {
	userID, ok := queryInt64(c, "userId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId required"})
	}

	friends, err := h.referral.Friends(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(friends))
	for _, f := range friends {
		out = append(out, fiber.Map{
			"id":        f.UserID,
			"firstName": f.FirstName,
			"username":  f.Username,
			"invitedAt": f.InvitedAt,
		})
	}
	return c.JSON(out)
}

func (h *Handler) leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	users, err := h.registry.Leaderboard(c.Context(), limit)
	if err != nil {
		return fail(c, err)
	}

	out := make([]fiber.Map, 0, len(users))
	for i, u := range users {
		out = append(out, fiber.Map{
			"rank":      i + 1,
			"id":        u.ID,
			"firstName": u.FirstName,
			"username":  u.Username,
			"balance":   u.Balance,
		})
	}
	return c.JSON(out)
}
