package social

import "time"

// Friend request statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest mirrors the API's friend request document.
type FriendRequest struct {
	ID        string    `json:"_id"`
	From      User      `json:"from"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// RequestBuckets splits requests by status for display.
type RequestBuckets struct {
	Pending  []FriendRequest `json:"pending"`
	Rejected []FriendRequest `json:"rejected"`
}
