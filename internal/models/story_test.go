package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryExpiryBoundary(t *testing.T) {
	now := time.Now()
	story := Story{ID: "s1", ExpiresAt: now}

	// expiring exactly at now counts as expired
	assert.True(t, story.Expired(now))
	assert.False(t, story.Expired(now.Add(-time.Second)))
	assert.True(t, story.Expired(now.Add(time.Second)))
}

func TestFilterActiveStories(t *testing.T) {
	now := time.Now()
	stories := []Story{
		{ID: "live", ExpiresAt: now.Add(time.Hour)},
		{ID: "dead", ExpiresAt: now.Add(-time.Hour)},
		{ID: "edge", ExpiresAt: now},
	}

	active := FilterActiveStories(stories, now)

	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].ID)
}

func TestGroupStoriesOrdering(t *testing.T) {
	now := time.Now()
	stories := []Story{
		{ID: "b2", UserID: "bob", CreatedAt: now.Add(-time.Minute)},
		{ID: "a1", UserID: "alice", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b1", UserID: "bob", CreatedAt: now.Add(-time.Hour)},
		{ID: "a2", UserID: "alice", CreatedAt: now.Add(-time.Hour)},
	}

	groups := GroupStories(stories)

	require.Len(t, groups, 2)
	// bob's newest story is more recent, his group comes first
	assert.Equal(t, "bob", groups[0].UserID)
	assert.Equal(t, []string{"b1", "b2"}, storyIDs(groups[0].Stories))
	assert.Equal(t, "alice", groups[1].UserID)
	assert.Equal(t, []string{"a1", "a2"}, storyIDs(groups[1].Stories))
}

func TestStoryViewedBy(t *testing.T) {
	story := Story{Views: []string{"alice"}}

	assert.True(t, story.ViewedBy("alice"))
	assert.False(t, story.ViewedBy("bob"))
}

func storyIDs(stories []Story) []string {
	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	return ids
}
