package domain

import "private_chat_service/pkg"

// UserProfile chat side of a user, the identity itself lives in the auth provider
type UserProfile struct {
	ID           string   `json:"_id"`
	FullName     string   `json:"fullName"`
	ProfilePic   string   `json:"profilePic,omitempty"`
	BlockedUsers []string `json:"blockedUsers"`
	PushTokens   []string `json:"-"`
}

// HasBlocked u blocked other
func (u *UserProfile) HasBlocked(other string) bool {
	if u == nil {
		return false
	}
	return pkg.Contains(u.BlockedUsers, other)
}

// PushNotification one push for one device token
type PushNotification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}
