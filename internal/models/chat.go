package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// ChatID derives the canonical chat id for an unordered pair of users:
// both uids sorted lexically and joined with an underscore. External
// consumers rely on this exact formula, treat it as a wire contract.
func ChatID(uidA, uidB string) string {
	if uidB < uidA {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}

// Chat is a two-participant conversation. It is never removed by a
// one-sided delete; deletedBy only hides it from that participant.
type Chat struct {
	ID           string         `db:"id" json:"id"`
	Participants pq.StringArray `db:"participants" json:"participants"`
	LastMessage  string         `db:"last_message" json:"lastMessage"`
	DeletedBy    pq.StringArray `db:"deleted_by" json:"deletedBy"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// ChatSummary is a chat annotated with the participant that is not the
// viewer, for chat-list rendering.
type ChatSummary struct {
	Chat
	OtherUID string `json:"otherUid"`
}

// OtherParticipant returns the participant that is not uid.
func (c Chat) OtherParticipant(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether uid belongs to the chat.
func (c Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// HiddenFor reports whether uid soft-deleted the chat.
func (c Chat) HiddenFor(uid string) bool {
	for _, d := range c.DeletedBy {
		if d == uid {
			return true
		}
	}
	return false
}

// SortChatsByUpdated orders summaries most recently updated first. Used as
// the client-side fallback when the ordered query is unavailable.
func SortChatsByUpdated(chats []ChatSummary) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
}
