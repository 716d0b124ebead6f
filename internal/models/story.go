package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// Story media kinds.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// StoryTTL is the fixed lifetime of a story, set once at creation.
const StoryTTL = 24 * time.Hour

// Story is an ephemeral media post. Visibility requires expiresAt > now;
// expiry is enforced by filtering, rows are only removed by the owner or
// the periodic sweep.
type Story struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"userId"`
	MediaURL  string         `db:"media_url" json:"mediaURL"`
	MediaType string         `db:"media_type" json:"mediaType"`
	Caption   string         `db:"caption" json:"caption"`
	Views     pq.StringArray `db:"views" json:"views"`
	ViewCount int            `db:"view_count" json:"viewCount"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time      `db:"expires_at" json:"expiresAt"`
}

// Expired reports whether the story is past its TTL at the given instant.
// A story expiring exactly at now is expired.
func (s Story) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ViewedBy reports membership of uid in the views set.
func (s Story) ViewedBy(uid string) bool {
	for _, v := range s.Views {
		if v == uid {
			return true
		}
	}
	return false
}

// FilterActiveStories drops expired stories, preserving order.
func FilterActiveStories(stories []Story, now time.Time) []Story {
	active := make([]Story, 0, len(stories))
	for _, s := range stories {
		if !s.Expired(now) {
			active = append(active, s)
		}
	}
	return active
}

// StoryGroup is one author's active stories, oldest first.
type StoryGroup struct {
	UserID  string  `json:"userId"`
	Stories []Story `json:"stories"`
}

// GroupStories groups stories by author. Stories inside a group are sorted
// oldest first; groups are ordered by their newest story, most recent
// author first.
func GroupStories(stories []Story) []StoryGroup {
	byUser := map[string][]Story{}
	for _, s := range stories {
		byUser[s.UserID] = append(byUser[s.UserID], s)
	}

	groups := make([]StoryGroup, 0, len(byUser))
	for uid, list := range byUser {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
		groups = append(groups, StoryGroup{UserID: uid, Stories: list})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		iLast := groups[i].Stories[len(groups[i].Stories)-1].CreatedAt
		jLast := groups[j].Stories[len(groups[j].Stories)-1].CreatedAt
		return iLast.After(jLast)
	})
	return groups
}
