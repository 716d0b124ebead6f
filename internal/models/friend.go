package models

import "time"

// Friend request lifecycle states. A request is never deleted, it only
// reaches a terminal status.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest connects two user profiles.
type FriendRequest struct {
	ID        string    `db:"id" json:"id"`
	From      string    `db:"from_uid" json:"from"`
	To        string    `db:"to_uid" json:"to"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
