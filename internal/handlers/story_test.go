package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/mocks"
	"social-service/internal/models"
	"social-service/internal/repositories"
)

func setupStoryRouter(handler *StoryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Next()
	})
	r.GET("/stories/mine", handler.OwnStories)
	r.GET("/stories/friends", handler.FriendsStories)
	r.POST("/stories", handler.CreateStory)
	r.DELETE("/stories/:story_id", handler.DeleteStory)
	r.POST("/stories/:story_id/view", handler.MarkViewed)
	return r
}

func TestCreateStorySuccess(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	store := new(mocks.StoreMock)
	bus := live.NewBus()
	handler := NewStoryHandler(storyRepo, nil, store, bus)
	router := setupStoryRouter(handler)

	updates := 0
	sub := bus.Subscribe("stories", func() { updates++ })
	defer sub.Dispose()

	storyRepo.On("CreateStory", mock.Anything, "alice", models.MediaImage, "hi").
		Return(models.Story{ID: "s1", UserID: "alice", MediaType: models.MediaImage}, nil).Once()
	store.On("Save", mock.Anything, "stories/alice/s1", "image/png", mock.Anything).
		Return("http://localhost:8083/media/stories/alice/s1", nil).Once()
	storyRepo.On("SetMediaURL", mock.Anything, "s1", "http://localhost:8083/media/stories/alice/s1").
		Return(nil).Once()

	body, contentType := multipartUpload(t, "media", "pic.png", "image/png", map[string]string{"caption": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, updates)
	storyRepo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestCreateStoryRejectsUnknownMedia(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(storyRepo, nil, new(mocks.StoreMock), live.NewBus())
	router := setupStoryRouter(handler)

	body, contentType := multipartUpload(t, "media", "notes.txt", "text/plain", nil)
	req := httptest.NewRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	storyRepo.AssertNotCalled(t, "CreateStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateStoryUploadFailureRollsBack(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	store := new(mocks.StoreMock)
	handler := NewStoryHandler(storyRepo, nil, store, live.NewBus())
	router := setupStoryRouter(handler)

	storyRepo.On("CreateStory", mock.Anything, "alice", models.MediaVideo, "").
		Return(models.Story{ID: "s2", UserID: "alice", MediaType: models.MediaVideo}, nil).Once()
	store.On("Save", mock.Anything, "stories/alice/s2", "video/mp4", mock.Anything).
		Return("", assert.AnError).Once()
	storyRepo.On("DeleteRow", mock.Anything, "s2").Return(nil).Once()

	body, contentType := multipartUpload(t, "media", "clip.mp4", "video/mp4", nil)
	req := httptest.NewRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	storyRepo.AssertExpectations(t)
}

func TestMarkViewedSuccess(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(storyRepo, nil, nil, live.NewBus())
	router := setupStoryRouter(handler)

	storyRepo.On("MarkViewed", mock.Anything, "s1", "alice").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stories/s1/view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	storyRepo.AssertExpectations(t)
}

func TestMarkViewedNotFound(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(storyRepo, nil, nil, live.NewBus())
	router := setupStoryRouter(handler)

	storyRepo.On("MarkViewed", mock.Anything, "missing", "alice").
		Return(repositories.ErrStoryNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/stories/missing/view", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteStoryNotOwner(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(storyRepo, nil, new(mocks.StoreMock), live.NewBus())
	router := setupStoryRouter(handler)

	storyRepo.On("DeleteStory", mock.Anything, "s1", "alice").
		Return(repositories.ErrNotStoryOwner).Once()

	req := httptest.NewRequest(http.MethodDelete, "/stories/s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	storyRepo.AssertExpectations(t)
}

func TestFriendsStoriesGroupsOnlyFriends(t *testing.T) {
	storyRepo := new(mocks.StoryRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewStoryHandler(storyRepo, userRepo, nil, live.NewBus())
	router := setupStoryRouter(handler)

	now := time.Now()
	userRepo.On("GetByUID", mock.Anything, "alice").
		Return(models.UserProfile{UID: "alice", Friends: []string{"bob"}}, nil).Once()
	storyRepo.On("ListActive", mock.Anything).Return([]models.Story{
		{ID: "s1", UserID: "bob", CreatedAt: now},
		{ID: "s2", UserID: "carol", CreatedAt: now},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/stories/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Groups []models.StoryGroup `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "bob", resp.Groups[0].UserID)
}
