package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/http/exts"
	"github.com/luner-app/luner/pkg/internal/models"
)

func listConversations(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	conversations, err := engines.Messaging.ListConversations(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	return c.JSON(conversations)
}

func openConversation(c *fiber.Ctx) error {
	var data struct {
		TargetID string `json:"targetId" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	conversationID, err := engines.Messaging.OpenConversation(c.UserContext(), data.TargetID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"conversationId": conversationID,
	})
}

func listMessages(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	messages, err := engines.Messaging.Messages(c.UserContext(), c.Params("conversationId"))
	if err != nil {
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return c.JSON(messages)
}

func sendMessage(c *fiber.Ctx) error {
	var data struct {
		Text string `json:"text" validate:"required,max=4096"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	message, err := engines.Messaging.SendMessage(c.UserContext(), c.Params("conversationId"), data.Text)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(message)
}
