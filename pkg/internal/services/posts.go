package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Posts is the authoring engine: it creates, edits and removes posts and
// replies on behalf of the bound session and keeps the author's post count in
// step.
type Posts struct {
	sess     *session.Session
	notifier *Notifier
}

func NewPosts(sess *session.Session, notifier *Notifier) *Posts {
	return &Posts{sess: sess, notifier: notifier}
}

// PostDraft carries the author-provided parts of a new or edited post. Media
// fields hold already-uploaded URLs, the blob capability runs before the
// draft reaches this engine.
type PostDraft struct {
	Content string `json:"content"`
	Image   string `json:"image"`
	Video   string `json:"video"`
}

func (d PostDraft) validate() error {
	if len(strings.TrimSpace(d.Content)) == 0 && len(d.Image) == 0 && len(d.Video) == 0 {
		return fmt.Errorf("cannot publish an empty post")
	}
	if len(d.Image) > 0 && len(d.Video) > 0 {
		return fmt.Errorf("select either an image or a video, not both")
	}
	return nil
}

// Create publishes a post authored by the session user. Author identity is
// snapshotted into the record the way the original writes do, so later
// profile edits never rewrite old posts.
func (e *Posts) Create(ctx context.Context, draft PostDraft) (models.Post, error) {
	if err := draft.validate(); err != nil {
		return models.Post{}, err
	}

	profile := e.sess.Profile()
	content := strings.TrimSpace(draft.Content)
	post := models.Post{
		ID:          uuid.NewString(),
		Content:     content,
		User:        profile.DisplayName,
		ProfilePic:  profile.ProfilePic,
		ClientID:    e.sess.ClientID(),
		Email:       e.sess.Email(),
		Timestamp:   time.Now().UnixMilli(),
		Language:    DetectLanguage(content),
		Image:       draft.Image,
		Video:       draft.Video,
		Likes:       []string{},
		Replies:     map[string]models.Reply{},
		PrevLikes:   []string{},
		PrevReplies: map[string]models.Reply{},
	}
	post.Normalize()

	if err := e.sess.Store.Write(ctx, store.PostPath(post.ID), post.ToValue()); err != nil {
		return models.Post{}, fmt.Errorf("unable to publish post: %v", err)
	}

	if err := e.sess.Store.Merge(ctx, e.sess.ProfilePath(), map[string]any{
		"postCount": profile.PostCount + 1,
	}); err != nil {
		log.Error().Err(err).Msg("An error occurred when bumping post count.")
	} else {
		profile.PostCount++
		e.sess.SetProfile(profile)
	}

	if err := AwardPoints(ctx, e.sess, e.notifier, ActionPost); err != nil {
		log.Error().Err(err).Msg("An error occurred when awarding post points.")
	}
	if e.notifier != nil {
		e.notifier.Transient("¡Publicación creada!")
	}

	return post, nil
}

// Edit rewrites the mutable fields of an own post after a fresh ownership
// check against the store.
func (e *Posts) Edit(ctx context.Context, postID string, draft PostDraft) (models.Post, error) {
	if err := draft.validate(); err != nil {
		return models.Post{}, err
	}

	post, err := e.ownPost(ctx, postID)
	if err != nil {
		return models.Post{}, err
	}

	content := strings.TrimSpace(draft.Content)
	post.Content = content
	post.Image = draft.Image
	post.Video = draft.Video
	post.Language = DetectLanguage(content)
	post.Normalize()

	if err := e.sess.Store.Merge(ctx, store.PostPath(postID), map[string]any{
		"content":  post.Content,
		"image":    post.Image,
		"video":    post.Video,
		"language": post.Language,
	}); err != nil {
		return models.Post{}, fmt.Errorf("unable to update post: %v", err)
	}

	if e.notifier != nil {
		e.notifier.Transient("¡Publicación actualizada!")
	}

	return post, nil
}

// Delete removes an own post together with its embedded replies and decrements
// the author's post count, never below zero.
func (e *Posts) Delete(ctx context.Context, postID string) error {
	if _, err := e.ownPost(ctx, postID); err != nil {
		return err
	}

	if err := e.sess.Store.Delete(ctx, store.PostPath(postID)); err != nil {
		return fmt.Errorf("unable to delete post: %v", err)
	}

	profile := e.sess.Profile()
	if profile.PostCount > 0 {
		profile.PostCount--
		if err := e.sess.Store.Merge(ctx, e.sess.ProfilePath(), map[string]any{
			"postCount": profile.PostCount,
		}); err != nil {
			log.Error().Err(err).Msg("An error occurred when lowering post count.")
		} else {
			e.sess.SetProfile(profile)
		}
	}

	if e.notifier != nil {
		e.notifier.Transient("¡Publicación eliminada!")
	}

	return nil
}

// SubmitReply appends a reply under a post. A nil parent makes a top-level
// comment, otherwise the reply answers another one in the same post.
func (e *Posts) SubmitReply(ctx context.Context, postID, content string, parentID *string) (string, models.Reply, error) {
	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return "", models.Reply{}, fmt.Errorf("cannot publish an empty reply")
	}

	raw, err := e.sess.Store.Read(ctx, store.PostPath(postID))
	if err != nil {
		return "", models.Reply{}, fmt.Errorf("unable to load post: %v", err)
	}
	if _, ok := models.PostFromValue(raw); !ok {
		return "", models.Reply{}, fmt.Errorf("post %s was not found", postID)
	}

	profile := e.sess.Profile()
	reply := models.Reply{
		ID:         uuid.NewString(),
		Content:    content,
		User:       profile.DisplayName,
		ProfilePic: profile.ProfilePic,
		ClientID:   e.sess.ClientID(),
		Email:      e.sess.Email(),
		Timestamp:  time.Now().UnixMilli(),
		Likes:      []string{},
		ParentID:   parentID,
	}

	key, err := e.sess.Store.Append(ctx, store.RepliesPath(postID), reply.ToValue())
	if err != nil {
		return "", models.Reply{}, fmt.Errorf("unable to publish reply: %v", err)
	}

	if err := AwardPoints(ctx, e.sess, e.notifier, ActionComment); err != nil {
		log.Error().Err(err).Msg("An error occurred when awarding comment points.")
	}
	if e.notifier != nil {
		e.notifier.Transient("¡Comentario publicado!")
	}

	return key, reply, nil
}

// DeleteReply removes an own reply by its push key. Descendant replies keep
// their parentId and become unreachable from the forest root, the way the
// original leaves them.
func (e *Posts) DeleteReply(ctx context.Context, postID, replyKey string) error {
	raw, err := e.sess.Store.Read(ctx, store.ReplyPath(postID, replyKey))
	if err != nil {
		return fmt.Errorf("unable to load reply: %v", err)
	}
	reply, ok := models.ReplyFromValue(raw)
	if !ok {
		return fmt.Errorf("reply %s was not found", replyKey)
	}
	if reply.ClientID != e.sess.ClientID() {
		return fmt.Errorf("only the author can delete a reply")
	}

	if err := e.sess.Store.Delete(ctx, store.ReplyPath(postID, replyKey)); err != nil {
		return fmt.Errorf("unable to delete reply: %v", err)
	}

	return nil
}

// ToggleReplyLike flips the session user's like on a single reply.
func (e *Posts) ToggleReplyLike(ctx context.Context, postID, replyKey string) (bool, error) {
	raw, err := e.sess.Store.Read(ctx, store.ReplyPath(postID, replyKey))
	if err != nil {
		return false, fmt.Errorf("unable to load reply: %v", err)
	}
	reply, ok := models.ReplyFromValue(raw)
	if !ok {
		return false, fmt.Errorf("reply %s was not found", replyKey)
	}

	clientID := e.sess.ClientID()
	liked := false
	likes := make([]string, 0, len(reply.Likes))
	for _, id := range reply.Likes {
		if id == clientID {
			liked = true
			continue
		}
		likes = append(likes, id)
	}
	if !liked {
		likes = append(likes, clientID)
	}

	if err := e.sess.Store.Merge(ctx, store.ReplyPath(postID, replyKey), map[string]any{
		"likes": likes,
	}); err != nil {
		return liked, fmt.Errorf("unable to update reply likes: %v", err)
	}

	return !liked, nil
}

func (e *Posts) ownPost(ctx context.Context, postID string) (models.Post, error) {
	raw, err := e.sess.Store.Read(ctx, store.PostPath(postID))
	if err != nil {
		return models.Post{}, fmt.Errorf("unable to load post: %v", err)
	}
	post, ok := models.PostFromValue(raw)
	if !ok {
		return models.Post{}, fmt.Errorf("post %s was not found", postID)
	}
	if post.ClientID != e.sess.ClientID() {
		return models.Post{}, fmt.Errorf("only the author can modify a post")
	}
	return post, nil
}
