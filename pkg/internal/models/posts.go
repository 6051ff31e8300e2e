package models

import (
	jsoniter "github.com/json-iterator/go"
)

// PlaceholderContent replaces a missing post body, the original records were
// written by clients that could omit the field entirely.
const PlaceholderContent = "Contenido no disponible"

type Post struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	User       string `json:"user"`
	ProfilePic string `json:"profilePic"`
	ClientID   string `json:"clientId"`
	Email      string `json:"email"`
	Timestamp  int64  `json:"timestamp"`
	Language   string `json:"language,omitempty"`

	// At most one of Image and Video may be set.
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`

	Likes   []string         `json:"likes"`
	Replies map[string]Reply `json:"replies,omitempty"`

	// Snapshots of the previous state, consumed only by notification diffing.
	PrevLikes   []string         `json:"prevLikes,omitempty"`
	PrevReplies map[string]Reply `json:"prevReplies,omitempty"`
}

type Reply struct {
	ID         string `json:"id,omitempty"`
	Content    string `json:"content"`
	User       string `json:"user"`
	ProfilePic string `json:"profilePic"`
	ClientID   string `json:"clientId"`
	Email      string `json:"email"`
	Timestamp  int64  `json:"timestamp"`

	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`

	Likes []string `json:"likes"`

	// Nil means a top-level comment; otherwise the id of the reply this one
	// answers, forming a forest within the post.
	ParentID *string `json:"parentId"`
}

// PostFromValue normalizes a raw store snapshot into a typed post.
// Records without an id are rejected, everything else gets defaults applied
// once here so consumers never re-check shapes.
func PostFromValue(value any) (Post, bool) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return Post{}, false
	}

	var post Post
	raw, _ := jsoniter.Marshal(mapping)
	if err := jsoniter.Unmarshal(raw, &post); err != nil {
		return Post{}, false
	}
	if len(post.ID) == 0 {
		return Post{}, false
	}

	post.Normalize()
	return post, true
}

func (p *Post) Normalize() {
	if len(p.Content) == 0 {
		p.Content = PlaceholderContent
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Replies == nil {
		p.Replies = map[string]Reply{}
	}
	for key, reply := range p.Replies {
		reply.Normalize()
		p.Replies[key] = reply
	}
}

func (r *Reply) Normalize() {
	if len(r.Content) == 0 {
		r.Content = PlaceholderContent
	}
	if r.Likes == nil {
		r.Likes = []string{}
	}
}

func ReplyFromValue(value any) (Reply, bool) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return Reply{}, false
	}

	var reply Reply
	raw, _ := jsoniter.Marshal(mapping)
	if err := jsoniter.Unmarshal(raw, &reply); err != nil {
		return Reply{}, false
	}

	reply.Normalize()
	return reply, true
}

func (p Post) ToValue() map[string]any {
	var mapping map[string]any
	raw, _ := jsoniter.Marshal(p)
	_ = jsoniter.Unmarshal(raw, &mapping)
	return mapping
}

func (r Reply) ToValue() map[string]any {
	var mapping map[string]any
	raw, _ := jsoniter.Marshal(r)
	_ = jsoniter.Unmarshal(raw, &mapping)
	return mapping
}

// ReplyNode is a materialized node of the reply forest.
type ReplyNode struct {
	Key      string      `json:"key"`
	Reply    Reply       `json:"reply"`
	Children []ReplyNode `json:"children"`
}
