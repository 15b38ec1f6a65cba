package social

// User mirrors the API's public user document.
type User struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// DisplayName prefers the display name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Profile is a user page as seen by the current user.
type Profile struct {
	User      User   `json:"user"`
	IsFriend  bool   `json:"isFriend"`
	IsPending bool   `json:"isPending"`
	Posts     []Post `json:"posts"`
}

// Settings bundles what the settings screen loads in one go.
type Settings struct {
	User    User   `json:"user"`
	Friends []User `json:"friends"`
}
