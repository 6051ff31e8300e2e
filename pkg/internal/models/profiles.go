package models

import (
	jsoniter "github.com/json-iterator/go"
)

const (
	BadgeBronze = "bronze"
	BadgeSilver = "silver"
	BadgeGold   = "gold"
)

// BadgeThresholds maps each badge to the point total that unlocks it.
// Badges are monotonic, once earned they are never revoked.
var BadgeThresholds = map[string]int{
	BadgeBronze: 100,
	BadgeSilver: 500,
	BadgeGold:   1000,
}

// BadgeOrder lists badges from cheapest to most expensive so award checks
// run deterministically.
var BadgeOrder = []string{BadgeBronze, BadgeSilver, BadgeGold}

const (
	DefaultDisplayName = "Anónimo"
	DefaultProfilePic  = "https://via.placeholder.com/40"
)

type Profile struct {
	ClientID    string   `json:"clientId"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	ProfilePic  string   `json:"profilePic"`
	Bio         string   `json:"bio"`
	Followers   []string `json:"followers"`
	Following   []string `json:"following"`
	PostCount   int      `json:"postCount"`
	Points      int      `json:"points"`
	Badges      []string `json:"badges"`
	SavedPosts  []string `json:"savedPosts"`

	Conversations map[string]Conversation `json:"conversations,omitempty"`
}

// NewProfile builds the record seeded for a freshly generated client id.
func NewProfile(clientID, email string) Profile {
	return Profile{
		ClientID:    clientID,
		Email:       email,
		DisplayName: DefaultDisplayName,
		ProfilePic:  DefaultProfilePic,
		Followers:   []string{},
		Following:   []string{},
		Badges:      []string{},
		SavedPosts:  []string{},
	}
}

// ProfileFromValue normalizes a raw store snapshot into a typed record.
// Absent arrays default to empty, the remote store drops empty lists entirely.
func ProfileFromValue(value any) (Profile, bool) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return Profile{}, false
	}

	var profile Profile
	raw, _ := jsoniter.Marshal(mapping)
	if err := jsoniter.Unmarshal(raw, &profile); err != nil {
		return Profile{}, false
	}

	if profile.Followers == nil {
		profile.Followers = []string{}
	}
	if profile.Following == nil {
		profile.Following = []string{}
	}
	if profile.Badges == nil {
		profile.Badges = []string{}
	}
	if profile.SavedPosts == nil {
		profile.SavedPosts = []string{}
	}
	if len(profile.DisplayName) == 0 {
		profile.DisplayName = DefaultDisplayName
	}
	if len(profile.ProfilePic) == 0 {
		profile.ProfilePic = DefaultProfilePic
	}

	return profile, true
}

func (p Profile) ToValue() map[string]any {
	var mapping map[string]any
	raw, _ := jsoniter.Marshal(p)
	_ = jsoniter.Unmarshal(raw, &mapping)
	return mapping
}

func (p Profile) HasBadge(badge string) bool {
	for _, entry := range p.Badges {
		if entry == badge {
			return true
		}
	}
	return false
}
