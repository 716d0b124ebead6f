package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

// StoryHandler manages ephemeral story endpoints.
type StoryHandler struct {
	stories repositories.StoryRepository
	users   repositories.UserRepository
	store   storage.Store
	bus     *live.Bus
}

// NewStoryHandler constructs a StoryHandler.
func NewStoryHandler(stories repositories.StoryRepository, users repositories.UserRepository, store storage.Store, bus *live.Bus) *StoryHandler {
	return &StoryHandler{stories: stories, users: users, store: store, bus: bus}
}

// CreateStory stores a story with its media. Validation happens before any
// write; a failed upload rolls the row back.
func (h *StoryHandler) CreateStory(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	file, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing media"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	mediaType, err := storage.ValidateStoryMedia(contentType, file.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}

	story, err := h.stories.CreateStory(c.Request.Context(), uid, mediaType, c.PostForm("caption"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create story"})
		return
	}

	url, err := h.store.Save(c.Request.Context(), "stories/"+uid+"/"+story.ID, contentType, data)
	if err != nil {
		if rollbackErr := h.stories.DeleteRow(c.Request.Context(), story.ID); rollbackErr != nil {
			log.Printf("story rollback %s: %v", story.ID, rollbackErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store media"})
		return
	}
	if err := h.stories.SetMediaURL(c.Request.Context(), story.ID, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not finalize story"})
		return
	}
	story.MediaURL = url

	h.bus.Publish("stories")
	c.JSON(http.StatusCreated, story)
}

// MarkViewed records the caller as a viewer. Repeat views are no-ops.
func (h *StoryHandler) MarkViewed(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	storyID := c.Param("story_id")

	if err := h.stories.MarkViewed(c.Request.Context(), storyID, uid); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrStoryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not mark viewed"})
		return
	}

	h.bus.Publish("stories")
	c.Status(http.StatusNoContent)
}

// DeleteStory removes the caller's own story and its media.
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	storyID := c.Param("story_id")

	if err := h.stories.DeleteStory(c.Request.Context(), storyID, uid); err != nil {
		switch {
		case errors.Is(err, repositories.ErrStoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
		case errors.Is(err, repositories.ErrNotStoryOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not the story owner"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete story"})
		}
		return
	}

	if err := h.store.Remove(c.Request.Context(), "stories/"+uid+"/"+storyID); err != nil {
		log.Printf("remove story media %s: %v", storyID, err)
	}

	h.bus.Publish("stories")
	c.Status(http.StatusNoContent)
}

// OwnStories returns the caller's active stories, oldest first.
func (h *StoryHandler) OwnStories(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	stories, err := h.stories.ListOwn(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// FriendsStories returns the friends' active stories grouped by author.
func (h *StoryHandler) FriendsStories(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	profile, err := h.users.GetByUID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	stories, err := h.stories.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stories"})
		return
	}

	byFriend := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if profile.IsFriendsWith(s.UserID) {
			byFriend = append(byFriend, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{"groups": models.GroupStories(byFriend)})
}
