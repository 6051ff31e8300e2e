package models

import "time"

type NotificationState = int8

const (
	NotificationCreated = NotificationState(iota)
	NotificationVisible
	NotificationDismissed
	NotificationTerminal
)

type NotificationTarget = int8

const (
	// NotificationTargetNone means dismissal without navigation.
	NotificationTargetNone = NotificationTarget(iota)
	// NotificationTargetProfile navigates to the acting user's profile.
	NotificationTargetProfile
	// NotificationTargetFeed navigates back to the post feed.
	NotificationTargetFeed
)

type Notification struct {
	ID         string             `json:"id"`
	Message    string             `json:"message"`
	Realtime   bool               `json:"realtime"`
	ActorID    string             `json:"actorId,omitempty"`
	ProfilePic string             `json:"profilePic,omitempty"`
	State      NotificationState  `json:"state"`
	Target     NotificationTarget `json:"target"`
	CreatedAt  time.Time          `json:"createdAt"`

	// ExpiresAt is set for transient notices only, realtime ones persist
	// until clicked.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
