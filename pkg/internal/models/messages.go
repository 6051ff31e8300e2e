package models

import (
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

type Conversation struct {
	ID      string   `json:"id,omitempty"`
	Members []string `json:"members"`
}

// ConversationID derives the deterministic two-party thread id, symmetric
// regardless of argument order.
func ConversationID(a, b string) string {
	members := []string{a, b}
	sort.Strings(members)
	return strings.Join(members, "_")
}

type Message struct {
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
}

func MessageFromValue(value any) (Message, bool) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return Message{}, false
	}

	var message Message
	raw, _ := jsoniter.Marshal(mapping)
	if err := jsoniter.Unmarshal(raw, &message); err != nil {
		return Message{}, false
	}

	return message, true
}

func (m Message) ToValue() map[string]any {
	var mapping map[string]any
	raw, _ := jsoniter.Marshal(m)
	_ = jsoniter.Unmarshal(raw, &mapping)
	return mapping
}

func (c Conversation) ToValue() map[string]any {
	var mapping map[string]any
	raw, _ := jsoniter.Marshal(c)
	_ = jsoniter.Unmarshal(raw, &mapping)
	return mapping
}

// OtherMember returns the member that is not self, empty when absent.
func (c Conversation) OtherMember(self string) string {
	for _, member := range c.Members {
		if member != self {
			return member
		}
	}
	return ""
}
