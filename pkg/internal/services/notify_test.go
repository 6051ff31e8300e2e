package services

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

func visibleMessages(n *Notifier) []string {
	return lo.Map(n.Visible(), func(item models.Notification, _ int) string { return item.Message })
}

func TestDeletionConfirmationsAreSuppressed(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	notifier := NewNotifier(sess, time.Minute)

	assert.Nil(t, notifier.Notify("¡Publicación eliminada!", false, "", ""))
	assert.Nil(t, notifier.Notify("Comentario eliminado", false, "", ""))
	assert.Nil(t, notifier.Notify("Mengano eliminó su publicación", true, "mengano", ""))

	assert.Empty(t, notifier.Visible())
	assert.Zero(t, notifier.BadgeCount())
}

func TestNotifyClassifiesNavigationTargets(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	notifier := NewNotifier(sess, time.Minute)

	follow := notifier.Notify("Roberto te empezó a seguir", true, "bob", "")
	require.NotNil(t, follow)
	assert.Equal(t, models.NotificationTargetProfile, follow.Target)

	like := notifier.Notify("Roberto le dio like a tu publicación", true, "bob", "")
	require.NotNil(t, like)
	assert.Equal(t, models.NotificationTargetFeed, like.Target)

	notice := notifier.Notify("¡Comentario publicado!", false, "", "")
	require.NotNil(t, notice)
	assert.Equal(t, models.NotificationTargetNone, notice.Target)
	assert.NotNil(t, notice.ExpiresAt)
}

func TestClickDismissesAndReportsTarget(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	notifier := NewNotifier(sess, time.Minute)

	item := notifier.Notify("Roberto te empezó a seguir", true, "bob", "")
	require.NotNil(t, item)

	target, actorID, ok := notifier.Click(item.ID)
	require.True(t, ok)
	assert.Equal(t, models.NotificationTargetProfile, target)
	assert.Equal(t, "bob", actorID)
	assert.Empty(t, notifier.Visible())

	_, _, ok = notifier.Click(item.ID)
	assert.False(t, ok)
}

func TestSweepExpiredDismissesTransientOnly(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	notifier := NewNotifier(sess, time.Millisecond)

	notifier.Notify("¡Like actualizado!", false, "", "")
	realtime := notifier.Notify("Roberto te empezó a seguir", true, "bob", "")
	require.NotNil(t, realtime)

	require.Equal(t, 2, notifier.BadgeCount())

	time.Sleep(5 * time.Millisecond)
	notifier.SweepExpired()

	messages := visibleMessages(notifier)
	require.Len(t, messages, 1)
	assert.Equal(t, "Roberto te empezó a seguir", messages[0])
	assert.Equal(t, 1, notifier.BadgeCount())
}

func TestReadAllClearsBadgeOnly(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	notifier := NewNotifier(sess, time.Minute)

	notifier.Notify("Roberto te empezó a seguir", true, "bob", "")
	require.Equal(t, 1, notifier.BadgeCount())

	notifier.ReadAll()
	assert.Zero(t, notifier.BadgeCount())
	assert.Len(t, notifier.Visible(), 1)
}

func TestFollowerDeltaProducesRealtimeNotification(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	renameProfile(t, bob, "Roberto")

	notifier := NewNotifier(alice, time.Minute)
	require.NoError(t, notifier.Start())
	defer notifier.Stop()

	require.NoError(t, NewSocial(bob).Follow(context.Background(), "alice"))

	require.Eventually(t, func() bool {
		return lo.Contains(visibleMessages(notifier), "Roberto te empezó a seguir")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLikeDeltaNotifiesOwnerAndAdvancesSnapshot(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	renameProfile(t, bob, "Roberto")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	notifier := NewNotifier(alice, time.Minute)
	require.NoError(t, notifier.Start())
	defer notifier.Stop()

	_, err := NewEngagement(bob, nil).ToggleLike(ctx, "p1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return lo.Contains(visibleMessages(notifier), "Roberto le dio like a tu publicación")
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		raw, err := m.Read(ctx, store.PostPath("p1"))
		if err != nil {
			return false
		}
		post, ok := models.PostFromValue(raw)
		return ok && lo.Contains(post.PrevLikes, "bob")
	}, 2*time.Second, 10*time.Millisecond)

	// The advanced snapshot keeps the same delta from firing twice.
	before := len(visibleMessages(notifier))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, len(visibleMessages(notifier)))
}

func TestReplyDeltaNotifiesOwner(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	renameProfile(t, bob, "Roberto")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	notifier := NewNotifier(alice, time.Minute)
	require.NoError(t, notifier.Start())
	defer notifier.Stop()

	_, _, err := NewPosts(bob, nil).SubmitReply(ctx, "p1", "buen punto", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return lo.Contains(visibleMessages(notifier), "Roberto comentó en tu publicación")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOwnActionsNeverNotify(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	notifier := NewNotifier(alice, time.Minute)
	require.NoError(t, notifier.Start())
	defer notifier.Stop()

	_, err := NewEngagement(alice, nil).ToggleLike(ctx, "p1")
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, visibleMessages(notifier))
}
