package store

import "strings"

func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

func SplitPath(path string) []string {
	if len(path) == 0 {
		return nil
	}
	return strings.Split(path, "/")
}

// EmailKey turns an email address into a store-safe key segment, the remote
// namespace forbids dots in keys.
func EmailKey(email string) string {
	return strings.ReplaceAll(email, ".", "_")
}

// EmailFromKey reverses EmailKey. Underscores that were genuinely part of the
// address are lost, the original system accepts the same ambiguity.
func EmailFromKey(key string) string {
	return strings.ReplaceAll(key, "_", ".")
}

// pathRelated reports whether one path is a prefix of the other, meaning a
// change at changed is observable from a subscription rooted at root.
func pathRelated(root, changed string) bool {
	if root == changed {
		return true
	}
	return strings.HasPrefix(changed, root+"/") || strings.HasPrefix(root, changed+"/")
}

// childKeyOf returns the first segment of changed below root, empty when the
// change is at or above the root itself.
func childKeyOf(root, changed string) string {
	if !strings.HasPrefix(changed, root+"/") {
		return ""
	}
	rest := changed[len(root)+1:]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func UserPath(emailKey, clientID string) string {
	return JoinPath("users", emailKey, clientID)
}

func PostPath(postID string) string {
	return JoinPath("posts", postID)
}

func RepliesPath(postID string) string {
	return JoinPath("posts", postID, "replies")
}

func ReplyPath(postID, replyID string) string {
	return JoinPath("posts", postID, "replies", replyID)
}

func ConversationPath(emailKey, clientID, conversationID string) string {
	return JoinPath("users", emailKey, clientID, "conversations", conversationID)
}

func MessagesPath(conversationID string) string {
	return JoinPath("messages", conversationID)
}

func CredentialsPath(emailKey string) string {
	return JoinPath("credentials", emailKey)
}
