package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/http/exts"
	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/services"
)

func getMyProfile(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	return c.JSON(engines.Session.Profile())
}

func editMyProfile(c *fiber.Ctx) error {
	var data struct {
		DisplayName string `json:"displayName" validate:"required,max=64"`
		ProfilePic  string `json:"profilePic" validate:"omitempty,url"`
		Bio         string `json:"bio" validate:"max=512"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	engines := sessionFrom(c)
	profile := engines.Session.Profile()
	profile.DisplayName = data.DisplayName
	if len(data.ProfilePic) > 0 {
		profile.ProfilePic = data.ProfilePic
	}
	profile.Bio = data.Bio

	if err := engines.Session.Store.Merge(c.UserContext(), engines.Session.ProfilePath(), map[string]any{
		"displayName": profile.DisplayName,
		"profilePic":  profile.ProfilePic,
		"bio":         profile.Bio,
	}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	engines.Session.SetProfile(profile)
	engines.Notifier.Transient("¡Perfil guardado!")

	return c.JSON(profile)
}

func getUserProfile(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	profile, err := services.FindProfile(c.UserContext(), engines.Session.Store, c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(profile)
}

func searchUsers(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	matches, err := services.SearchProfiles(c.UserContext(), engines.Session.Store, c.Query("probe"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if matches == nil {
		matches = []models.Profile{}
	}
	return c.JSON(matches)
}

func listFollowers(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	followers, err := engines.Social.Followers(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if followers == nil {
		followers = []models.Profile{}
	}
	return c.JSON(followers)
}

func listFollowing(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	following, err := engines.Social.Following(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if following == nil {
		following = []models.Profile{}
	}
	return c.JSON(following)
}

func followUser(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	if err := engines.Social.Follow(c.UserContext(), c.Params("userId")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

func unfollowUser(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	if err := engines.Social.Unfollow(c.UserContext(), c.Params("userId")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}
