package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	gocacheStore "github.com/eko/gocache/lib/v4/store"
	"github.com/samber/lo"

	localCache "github.com/luner-app/luner/pkg/internal/cache"
	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

// The users namespace carries no secondary index, so profiles are located by
// scanning the whole tree. Hits are cached briefly to keep repeated lookups
// (notification bursts, follower listings) cheap.

const profileCacheTag = "profile-directory"

// FindProfile locates a profile anywhere in the users tree by client id.
func FindProfile(ctx context.Context, s store.Store, clientID string) (models.Profile, error) {
	if localCache.S != nil {
		marshal := marshaler.New(cache.New[any](localCache.S))
		if cached, err := marshal.Get(ctx, profileCacheKey(clientID), new(models.Profile)); err == nil {
			return *cached.(*models.Profile), nil
		}
	}

	profile, found, err := scanProfiles(ctx, s, func(p models.Profile) bool {
		return p.ClientID == clientID
	})
	if err != nil {
		return models.Profile{}, err
	}
	if !found {
		return models.Profile{}, fmt.Errorf("profile %s was not found", clientID)
	}

	if localCache.S != nil {
		marshal := marshaler.New(cache.New[any](localCache.S))
		_ = marshal.Set(ctx, profileCacheKey(clientID), profile,
			gocacheStore.WithExpiration(5*time.Minute),
			gocacheStore.WithTags([]string{profileCacheTag}),
		)
	}

	return profile, nil
}

// ProfilesByIDs resolves a set of client ids in a single scan, silently
// skipping ids that no longer resolve to a record.
func ProfilesByIDs(ctx context.Context, s store.Store, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var matches []models.Profile
	if _, _, err := scanProfiles(ctx, s, func(p models.Profile) bool {
		if lo.Contains(ids, p.ClientID) {
			matches = append(matches, p)
		}
		return false
	}); err != nil {
		return nil, err
	}
	return matches, nil
}

// SearchProfiles matches display names case-insensitively.
func SearchProfiles(ctx context.Context, s store.Store, probe string) ([]models.Profile, error) {
	if len(probe) == 0 {
		return nil, nil
	}

	var matches []models.Profile
	if _, _, err := scanProfiles(ctx, s, func(p models.Profile) bool {
		if strings.Contains(strings.ToLower(p.DisplayName), strings.ToLower(probe)) {
			matches = append(matches, p)
		}
		return false
	}); err != nil {
		return nil, err
	}
	return matches, nil
}

// InvalidateProfileCache drops every cached directory entry. The maintenance
// cron runs it so renames and avatar swaps never stay stale for long.
func InvalidateProfileCache(ctx context.Context) {
	if localCache.S == nil {
		return
	}
	marshal := marshaler.New(cache.New[any](localCache.S))
	_ = marshal.Invalidate(ctx, gocacheStore.WithInvalidateTags([]string{profileCacheTag}))
}

func profileCacheKey(clientID string) string {
	return fmt.Sprintf("profile#%s", clientID)
}

func scanProfiles(ctx context.Context, s store.Store, match func(models.Profile) bool) (models.Profile, bool, error) {
	raw, err := s.Read(ctx, "users")
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("unable to scan users: %v", err)
	}
	users, ok := raw.(map[string]any)
	if !ok {
		return models.Profile{}, false, nil
	}

	for emailKey, node := range users {
		clients, ok := node.(map[string]any)
		if !ok {
			continue
		}
		for clientID, record := range clients {
			profile, ok := models.ProfileFromValue(record)
			if !ok {
				continue
			}
			profile.ClientID = clientID
			profile.Email = store.EmailFromKey(emailKey)
			if match(profile) {
				return profile, true, nil
			}
		}
	}

	return models.Profile{}, false, nil
}
