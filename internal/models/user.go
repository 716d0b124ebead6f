package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// UserProfile is the denormalized profile document kept for every account.
// The friends set is mutated through atomic array union on accept.
type UserProfile struct {
	UID         string         `db:"uid" json:"uid"`
	Email       string         `db:"email" json:"email"`
	DisplayName string         `db:"display_name" json:"displayName"`
	PhotoURL    string         `db:"photo_url" json:"photoURL"`
	Friends     pq.StringArray `db:"friends" json:"friends"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// DefaultProfile synthesizes the profile written on first sign-in when no
// profile document exists yet.
func DefaultProfile(uid, email string) UserProfile {
	return UserProfile{
		UID:         uid,
		Email:       email,
		DisplayName: EmailLocalPart(email),
		PhotoURL:    "",
		Friends:     pq.StringArray{},
	}
}

// EmailLocalPart returns the part of an address before the '@'.
func EmailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// IsFriendsWith reports membership of uid in the friends set.
func (u UserProfile) IsFriendsWith(uid string) bool {
	for _, f := range u.Friends {
		if f == uid {
			return true
		}
	}
	return false
}
