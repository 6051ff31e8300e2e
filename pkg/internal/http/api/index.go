package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/luner-app/luner/pkg/internal/auth"
	"github.com/luner-app/luner/pkg/internal/blob"
	"github.com/luner-app/luner/pkg/internal/services"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Deps carries the capabilities the controllers run against.
type Deps struct {
	Store store.Store
	Auth  auth.Capability
	Blob  blob.Uploader
	Hub   *services.Hub
}

var gateway *Deps

func MapAPIs(app *fiber.App, baseURL string, deps *Deps) {
	gateway = deps

	api := app.Group(baseURL).Name("API")
	{
		account := api.Group("/auth").Name("Auth API")
		{
			account.Post("/sign-up", signUp)
			account.Post("/sign-in", signIn)
			account.Post("/sign-out", authorized, signOut)
			account.Put("/password", authorized, changePassword)
			account.Delete("/account", authorized, deleteAccount)
		}

		users := api.Group("/users", authorized).Name("Users API")
		{
			users.Get("/me", getMyProfile)
			users.Put("/me", editMyProfile)
			users.Get("/me/followers", listFollowers)
			users.Get("/me/following", listFollowing)
			users.Get("/search", searchUsers)
			users.Get("/:userId", getUserProfile)
			users.Post("/:userId/follow", followUser)
			users.Post("/:userId/unfollow", unfollowUser)
		}

		feed := api.Group("/feed", authorized).Name("Feed API")
		{
			feed.Get("/", getFeed)
			feed.Get("/older", getOlderFeed)
			feed.Get("/explore", getExplore)
			feed.Get("/videos", getVideoFeed)
			feed.Get("/saved", getSavedFeed)
			feed.Get("/search", searchFeed)
			feed.Get("/stats", getFeedStats)
			feed.Get("/users/:userId", getUserFeed)
		}

		posts := api.Group("/posts", authorized).Name("Posts API")
		{
			posts.Post("/", createPost)
			posts.Get("/:postId", getPost)
			posts.Put("/:postId", editPost)
			posts.Delete("/:postId", deletePost)
			posts.Post("/:postId/like", togglePostLike)
			posts.Post("/:postId/save", togglePostSave)
			posts.Get("/:postId/likers", listPostLikers)
			posts.Get("/:postId/replies", listPostReplies)
			posts.Post("/:postId/replies", createReply)
			posts.Delete("/:postId/replies/:replyKey", deleteReply)
			posts.Post("/:postId/replies/:replyKey/like", toggleReplyLike)
		}

		conversations := api.Group("/conversations", authorized).Name("Messaging API")
		{
			conversations.Get("/", listConversations)
			conversations.Post("/", openConversation)
			conversations.Get("/:conversationId/messages", listMessages)
			conversations.Post("/:conversationId/messages", sendMessage)
		}

		notifications := api.Group("/notifications", authorized).Name("Notifications API")
		{
			notifications.Get("/", listNotifications)
			notifications.Post("/read-all", readAllNotifications)
			notifications.Post("/:notificationId/click", clickNotification)
		}

		api.Post("/attachments", authorized, uploadAttachment)
	}
}

// authorized resolves the bearer token into the account's engine bundle and
// parks it in locals for the handler.
func authorized(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if len(token) == 0 {
		token = c.Cookies("session")
	}
	if len(token) == 0 {
		return fiber.NewError(fiber.StatusUnauthorized, "missing session token")
	}

	email, err := gateway.Auth.VerifyToken(token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	engines, err := gateway.Hub.For(c.UserContext(), email, c.Get("X-Client-Id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	c.Locals("user", engines)
	return c.Next()
}

func sessionFrom(c *fiber.Ctx) *services.Engines {
	return c.Locals("user").(*services.Engines)
}
