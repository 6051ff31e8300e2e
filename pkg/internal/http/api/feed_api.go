package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/services"
)

func getFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	page, err := engines.Feed.LoadInitial(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"posts":    emptyIfNil(page),
		"hasOlder": engines.Feed.HasOlder(),
	})
}

func getOlderFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	page, err := engines.Feed.LoadOlder(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"posts":    emptyIfNil(page),
		"hasOlder": engines.Feed.HasOlder(),
	})
}

func getExplore(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	posts, err := engines.Feed.Explore(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(emptyIfNil(posts))
}

func getVideoFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	posts, err := engines.Feed.VideoPosts(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(emptyIfNil(posts))
}

func getSavedFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	posts, err := engines.Feed.SavedPosts(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(emptyIfNil(posts))
}

func searchFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	posts, err := engines.Feed.Search(c.UserContext(), services.SearchFilter{
		Term: c.Query("term"),
		Day:  c.Query("day"),
		User: c.Query("user"),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(emptyIfNil(posts))
}

func getFeedStats(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	stats, err := engines.Feed.Stats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(stats)
}

func getUserFeed(c *fiber.Ctx) error {
	engines := sessionFrom(c)
	posts, err := engines.Feed.UserPosts(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(emptyIfNil(posts))
}

func emptyIfNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
