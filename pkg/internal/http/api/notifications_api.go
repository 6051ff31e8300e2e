package api

import (
	"github.com/gofiber/fiber/v2"
)

func listNotifications(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	return c.JSON(fiber.Map{
		"notifications": engines.Notifier.Visible(),
		"badge":         engines.Notifier.BadgeCount(),
	})
}

func readAllNotifications(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	engines.Notifier.ReadAll()
	return c.SendStatus(fiber.StatusOK)
}

func clickNotification(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	target, actorID, ok := engines.Notifier.Click(c.Params("notificationId"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "notification was not found")
	}

	return c.JSON(fiber.Map{
		"target":  target,
		"actorId": actorID,
	})
}
