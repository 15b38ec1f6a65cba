package session

import "time"

// Keys persisted in a Store. Every key is cleared together on logout or expiry.
const (
	KeyToken      = "token"
	KeyProfilePic = "profilePic"
	KeyLoginTime  = "loginTime"
	KeyName       = "name"
	KeyUserID     = "userId"
)

// AllKeys lists every key a session writes.
var AllKeys = []string{KeyToken, KeyProfilePic, KeyLoginTime, KeyName, KeyUserID}

// Identity is who the session belongs to.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName"`
}

// Session is the authenticated user's client-held credentials.
type Session struct {
	Token         string    `json:"-"`
	Identity      Identity  `json:"identity"`
	ProfilePic    string    `json:"profilePic,omitempty"`
	EstablishedAt time.Time `json:"establishedAt"`
}

// ExpiresAt reports when the session leaves the retention window.
func (s Session) ExpiresAt(retention time.Duration) time.Time {
	return s.EstablishedAt.Add(retention)
}

// Expired reports whether the session is older than retention at now.
func (s Session) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(s.EstablishedAt) > retention
}
