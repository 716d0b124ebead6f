package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeletedMessageText replaces the content of a recalled message. Deletion
// keeps the row, scrubs the text and tombstones the image URL.
const DeletedMessageText = "This message was deleted"

// ImageOnlyPlaceholder is stored as the chat lastMessage when a message
// carries only an image.
const ImageOnlyPlaceholder = "Image"

// ReplyRef points at the message being replied to. The zero value means
// the message is not a reply; it maps to SQL NULL.
type ReplyRef struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	SenderID string `json:"senderId,omitempty"`
}

// IsZero reports whether the reference is absent.
func (r ReplyRef) IsZero() bool {
	return r.ID == ""
}

func (r *ReplyRef) Scan(src interface{}) error {
	*r = ReplyRef{}
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported reply_to type %T", src)
	}
}

func (r ReplyRef) Value() (driver.Value, error) {
	if r.IsZero() {
		return nil, nil
	}
	return json.Marshal(r)
}

// ReactionMap maps a reacting uid to a single emoji.
type ReactionMap map[string]string

func (m *ReactionMap) Scan(src interface{}) error {
	*m = ReactionMap{}
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported reactions type %T", src)
	}
}

func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// ToggleReaction applies the reaction toggle law and returns a new map:
// re-sending the same emoji clears the user's reaction, a different emoji
// replaces it. The input map is not mutated.
func ToggleReaction(reactions ReactionMap, uid, emoji string) ReactionMap {
	next := ReactionMap{}
	for k, v := range reactions {
		next[k] = v
	}
	if next[uid] == emoji {
		delete(next, uid)
	} else {
		next[uid] = emoji
	}
	return next
}

// Message belongs to exactly one chat.
type Message struct {
	ID        string      `db:"id" json:"id"`
	ChatID    string      `db:"chat_id" json:"chatId"`
	SenderID  string      `db:"sender_id" json:"senderId"`
	Text      string      `db:"text" json:"text"`
	ImageURL  *string     `db:"image_url" json:"imageURL,omitempty"`
	ReplyTo   ReplyRef    `db:"reply_to" json:"replyTo"`
	Reactions ReactionMap `db:"reactions" json:"reactions"`
	Deleted   bool        `db:"deleted" json:"deleted"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}
