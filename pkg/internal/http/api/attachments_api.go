package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/luner-app/luner/pkg/internal/blob"
)

// uploadAttachment validates a multipart media file and stores it through the
// blob capability, returning the public URL a post draft can reference.
func uploadAttachment(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file field")
	}

	contentType := header.Header.Get(fiber.HeaderContentType)
	if err := blob.ValidateMedia(contentType, header.Size); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer file.Close()

	key := blob.DestinationKey(header.Filename, blob.IsVideoType(contentType))
	url, err := gateway.Blob.Upload(c.UserContext(), key, file, header.Size, contentType, func(transferred, total int64) {
		log.Debug().Int64("transferred", transferred).Int64("total", total).Str("key", key).Msg("Upload in progress.")
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"url":   url,
		"video": blob.IsVideoType(contentType),
	})
}
