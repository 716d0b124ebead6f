package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Notification types derived by the fan-out from primary-entity writes.
const (
	NotifyMessage        = "message"
	NotifyFriendRequest  = "friend_request"
	NotifyFriendAccepted = "friend_accepted"
	NotifyNewPost        = "new_post"
)

// NotifyData holds free-form references to the triggering entity.
type NotifyData map[string]string

func (d *NotifyData) Scan(src interface{}) error {
	*d = NotifyData{}
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported notification data type %T", src)
	}
}

func (d NotifyData) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Notification is shown in the recipient's bell feed.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"userId"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Data      NotifyData `db:"data" json:"data"`
	Read      bool       `db:"read" json:"read"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}
