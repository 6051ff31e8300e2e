package services

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Social maintains the follow graph for the bound session. A follow is two
// separate writes, the target's followers array and the session's following
// array, with no transaction across them; a crash in between leaves the
// asymmetry visible, matching the original write pattern.
type Social struct {
	sess *session.Session
}

func NewSocial(sess *session.Session) *Social {
	return &Social{sess: sess}
}

// Follow adds the session user to targetID's followers and targetID to the
// session's following list. Following yourself or someone already followed is
// a silent no-op.
func (e *Social) Follow(ctx context.Context, targetID string) error {
	if targetID == e.sess.ClientID() {
		return nil
	}
	if lo.Contains(e.sess.Profile().Following, targetID) {
		return nil
	}

	target, err := FindProfile(ctx, e.sess.Store, targetID)
	if err != nil {
		return err
	}

	targetPath := store.UserPath(store.EmailKey(target.Email), target.ClientID)
	if !lo.Contains(target.Followers, e.sess.ClientID()) {
		followers := append(target.Followers, e.sess.ClientID())
		if err := e.sess.Store.Merge(ctx, targetPath, map[string]any{
			"followers": followers,
		}); err != nil {
			return fmt.Errorf("unable to update followers: %v", err)
		}
	}

	profile, err := e.freshProfile(ctx)
	if err != nil {
		return err
	}
	if !lo.Contains(profile.Following, targetID) {
		profile.Following = append(profile.Following, targetID)
		if err := e.sess.Store.Merge(ctx, e.sess.ProfilePath(), map[string]any{
			"following": profile.Following,
		}); err != nil {
			return fmt.Errorf("unable to update following: %v", err)
		}
		e.sess.SetProfile(profile)
	}

	return nil
}

// Unfollow reverses Follow with the same two-write shape. Unfollowing someone
// not followed is a silent no-op.
func (e *Social) Unfollow(ctx context.Context, targetID string) error {
	if targetID == e.sess.ClientID() {
		return nil
	}
	if !lo.Contains(e.sess.Profile().Following, targetID) {
		return nil
	}

	target, err := FindProfile(ctx, e.sess.Store, targetID)
	if err != nil {
		return err
	}

	targetPath := store.UserPath(store.EmailKey(target.Email), target.ClientID)
	if lo.Contains(target.Followers, e.sess.ClientID()) {
		followers := lo.Without(target.Followers, e.sess.ClientID())
		if err := e.sess.Store.Merge(ctx, targetPath, map[string]any{
			"followers": followers,
		}); err != nil {
			return fmt.Errorf("unable to update followers: %v", err)
		}
	}

	profile, err := e.freshProfile(ctx)
	if err != nil {
		return err
	}
	if lo.Contains(profile.Following, targetID) {
		profile.Following = lo.Without(profile.Following, targetID)
		if err := e.sess.Store.Merge(ctx, e.sess.ProfilePath(), map[string]any{
			"following": profile.Following,
		}); err != nil {
			return fmt.Errorf("unable to update following: %v", err)
		}
		e.sess.SetProfile(profile)
	}

	return nil
}

// IsFollowing checks the mirrored profile, no store round trip.
func (e *Social) IsFollowing(targetID string) bool {
	return lo.Contains(e.sess.Profile().Following, targetID)
}

// Followers resolves the session's followers into full profiles.
func (e *Social) Followers(ctx context.Context) ([]models.Profile, error) {
	return ProfilesByIDs(ctx, e.sess.Store, e.sess.Profile().Followers)
}

// Following resolves the profiles the session user follows.
func (e *Social) Following(ctx context.Context) ([]models.Profile, error) {
	return ProfilesByIDs(ctx, e.sess.Store, e.sess.Profile().Following)
}

func (e *Social) freshProfile(ctx context.Context) (models.Profile, error) {
	raw, err := e.sess.Store.Read(ctx, e.sess.ProfilePath())
	if err != nil {
		return models.Profile{}, fmt.Errorf("unable to load profile: %v", err)
	}
	profile, ok := models.ProfileFromValue(raw)
	if !ok {
		return models.Profile{}, fmt.Errorf("profile record is missing")
	}
	return profile, nil
}
