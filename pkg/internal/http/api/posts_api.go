package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/http/exts"
	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/services"
	"github.com/luner-app/luner/pkg/internal/store"
)

func createPost(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content" validate:"max=4096"`
		Image   string `json:"image" validate:"omitempty,url"`
		Video   string `json:"video" validate:"omitempty,url"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	post, err := engines.Posts.Create(c.UserContext(), services.PostDraft{
		Content: data.Content,
		Image:   data.Image,
		Video:   data.Video,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(post)
}

func getPost(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	raw, err := engines.Session.Store.Read(c.UserContext(), store.PostPath(c.Params("postId")))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	post, ok := models.PostFromValue(raw)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "post was not found")
	}
	return c.JSON(post)
}

func editPost(c *fiber.Ctx) error {
	var data struct {
		Content string `json:"content" validate:"max=4096"`
		Image   string `json:"image" validate:"omitempty,url"`
		Video   string `json:"video" validate:"omitempty,url"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	post, err := engines.Posts.Edit(c.UserContext(), c.Params("postId"), services.PostDraft{
		Content: data.Content,
		Image:   data.Image,
		Video:   data.Video,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(post)
}

func deletePost(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	if err := engines.Posts.Delete(c.UserContext(), c.Params("postId")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

func togglePostLike(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	liked, err := engines.Engagement.ToggleLike(c.UserContext(), c.Params("postId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{
		"liked": liked,
	})
}

func togglePostSave(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	saved, err := engines.Engagement.ToggleSavedPost(c.UserContext(), c.Params("postId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{
		"saved": saved,
	})
}

func listPostLikers(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	likers, err := engines.Engagement.Likers(c.UserContext(), c.Params("postId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if likers == nil {
		likers = []models.Profile{}
	}
	return c.JSON(likers)
}

func listPostReplies(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	raw, err := engines.Session.Store.Read(c.UserContext(), store.PostPath(c.Params("postId")))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	post, ok := models.PostFromValue(raw)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "post was not found")
	}

	forest := engines.Feed.Forest(post)
	if forest == nil {
		forest = []models.ReplyNode{}
	}
	return c.JSON(forest)
}

func createReply(c *fiber.Ctx) error {
	var data struct {
		Content  string  `json:"content" validate:"required,max=4096"`
		ParentID *string `json:"parentId"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	key, reply, err := engines.Posts.SubmitReply(c.UserContext(), c.Params("postId"), data.Content, data.ParentID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"key":   key,
		"reply": reply,
	})
}

func deleteReply(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	if err := engines.Posts.DeleteReply(c.UserContext(), c.Params("postId"), c.Params("replyKey")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

func toggleReplyLike(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	liked, err := engines.Posts.ToggleReplyLike(c.UserContext(), c.Params("postId"), c.Params("replyKey"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{
		"liked": liked,
	})
}
