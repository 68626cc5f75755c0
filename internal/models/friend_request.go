package models

import "time"

// FriendRequestStatus is the lifecycle state of a stored friend request.
// Rejected requests are deleted, so there is no rejected status.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
)

// FriendRequest is a directed proposal from one user to another.
type FriendRequest struct {
	ID         int                 `db:"id" json:"id"`
	FromUserID int                 `db:"from_user_id" json:"from_user"`
	ToUserID   int                 `db:"to_user_id" json:"to_user"`
	Status     FriendRequestStatus `db:"status" json:"status"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// IsPending reports whether the request still awaits a response.
func (r FriendRequest) IsPending() bool {
	return r.Status == FriendRequestPending
}

// Page bounds a listing. A zero Limit means no bound.
type Page struct {
	Limit  int
	Offset int
}
