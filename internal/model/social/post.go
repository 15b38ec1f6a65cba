package social

import (
	"encoding/json"
	"time"
)

// Post mirrors a feed entry.
type Post struct {
	ID        string            `json:"_id"`
	Text      string            `json:"text"`
	Image     string            `json:"image,omitempty"`
	Likes     []string          `json:"likes"`
	Comments  []json.RawMessage `json:"comments"`
	User      User              `json:"user"`
	CreatedAt time.Time         `json:"createdAt"`
	DeletedAt *time.Time        `json:"deletedAt,omitempty"`
}

// Pagination is the server's paging envelope.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total,omitempty"`
	HasMore bool `json:"hasMore"`
}

// PostPage is one page of posts.
type PostPage struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// NewPost is the input for creating a post.
type NewPost struct {
	Text      string
	ImageName string
	Image     []byte
}
