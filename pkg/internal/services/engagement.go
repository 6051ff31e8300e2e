package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

const (
	ActionPost    = "post"
	ActionLike    = "like"
	ActionComment = "comment"
)

// PointsForAction is the reward table for engagement actions.
var PointsForAction = map[string]int{
	ActionPost:    10,
	ActionLike:    1,
	ActionComment: 2,
}

// Engagement flips likes and saved posts and keeps the points ledger for the
// bound session.
type Engagement struct {
	sess     *session.Session
	notifier *Notifier
}

func NewEngagement(sess *session.Session, notifier *Notifier) *Engagement {
	return &Engagement{sess: sess, notifier: notifier}
}

// ToggleLike flips the session user's membership in a post's likes array and
// reports the resulting state. Points are only awarded on the way in, so a
// like removed and re-added still pays out twice, matching the original
// ledger's behavior.
func (e *Engagement) ToggleLike(ctx context.Context, postID string) (bool, error) {
	raw, err := e.sess.Store.Read(ctx, store.PostPath(postID))
	if err != nil {
		return false, fmt.Errorf("unable to load post: %v", err)
	}
	post, ok := models.PostFromValue(raw)
	if !ok {
		return false, fmt.Errorf("post %s was not found", postID)
	}

	clientID := e.sess.ClientID()
	liked := lo.Contains(post.Likes, clientID)
	if liked {
		post.Likes = lo.Without(post.Likes, clientID)
	} else {
		post.Likes = append(post.Likes, clientID)
	}

	if err := e.sess.Store.Merge(ctx, store.PostPath(postID), map[string]any{
		"likes": post.Likes,
	}); err != nil {
		return liked, fmt.Errorf("unable to update likes: %v", err)
	}

	if !liked {
		if err := AwardPoints(ctx, e.sess, e.notifier, ActionLike); err != nil {
			log.Error().Err(err).Msg("An error occurred when awarding like points.")
		}
	}
	if e.notifier != nil {
		e.notifier.Transient("¡Like actualizado!")
	}

	return !liked, nil
}

// ToggleSavedPost flips a post id in the session profile's saved list and
// reports whether the post is now saved.
func (e *Engagement) ToggleSavedPost(ctx context.Context, postID string) (bool, error) {
	raw, err := e.sess.Store.Read(ctx, e.sess.ProfilePath())
	if err != nil {
		return false, fmt.Errorf("unable to load profile: %v", err)
	}
	profile, ok := models.ProfileFromValue(raw)
	if !ok {
		return false, fmt.Errorf("profile record is missing")
	}

	saved := lo.Contains(profile.SavedPosts, postID)
	if saved {
		profile.SavedPosts = lo.Without(profile.SavedPosts, postID)
	} else {
		profile.SavedPosts = append(profile.SavedPosts, postID)
	}

	if err := e.sess.Store.Merge(ctx, e.sess.ProfilePath(), map[string]any{
		"savedPosts": profile.SavedPosts,
	}); err != nil {
		return saved, fmt.Errorf("unable to update saved posts: %v", err)
	}
	e.sess.SetProfile(profile)

	if e.notifier != nil {
		if saved {
			e.notifier.Transient("¡Publicación eliminada de guardados!")
		} else {
			e.notifier.Transient("¡Publicación guardada!")
		}
	}

	return !saved, nil
}

// Likers resolves the profiles behind a post's likes array.
func (e *Engagement) Likers(ctx context.Context, postID string) ([]models.Profile, error) {
	raw, err := e.sess.Store.Read(ctx, store.PostPath(postID))
	if err != nil {
		return nil, fmt.Errorf("unable to load post: %v", err)
	}
	post, ok := models.PostFromValue(raw)
	if !ok {
		return nil, fmt.Errorf("post %s was not found", postID)
	}
	return ProfilesByIDs(ctx, e.sess.Store, post.Likes)
}

// AwardPoints adds the reward for an action to the session profile and grants
// any badge whose threshold the new total crosses. Badges already held are
// never taken back even if the table changes underneath them.
func AwardPoints(ctx context.Context, sess *session.Session, notifier *Notifier, action string) error {
	reward, ok := PointsForAction[action]
	if !ok {
		return fmt.Errorf("unknown action %s", action)
	}

	raw, err := sess.Store.Read(ctx, sess.ProfilePath())
	if err != nil {
		return fmt.Errorf("unable to load profile: %v", err)
	}
	profile, ok := models.ProfileFromValue(raw)
	if !ok {
		return fmt.Errorf("profile record is missing")
	}

	profile.Points += reward
	var earned []string
	for _, badge := range models.BadgeOrder {
		if profile.Points >= models.BadgeThresholds[badge] && !profile.HasBadge(badge) {
			profile.Badges = append(profile.Badges, badge)
			earned = append(earned, badge)
		}
	}

	if err := sess.Store.Merge(ctx, sess.ProfilePath(), map[string]any{
		"points": profile.Points,
		"badges": profile.Badges,
	}); err != nil {
		return fmt.Errorf("unable to persist points: %v", err)
	}
	sess.SetProfile(profile)

	if notifier != nil {
		for _, badge := range earned {
			notifier.Transient(fmt.Sprintf("¡Has ganado la medalla de %s!", badgeLabel(badge)))
		}
	}

	return nil
}

func badgeLabel(badge string) string {
	switch badge {
	case models.BadgeBronze:
		return "bronce"
	case models.BadgeSilver:
		return "plata"
	case models.BadgeGold:
		return "oro"
	default:
		return badge
	}
}
