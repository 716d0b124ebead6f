package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

func setupNotificationRouter(handler *NotificationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Next()
	})
	r.GET("/notifications", handler.List)
	r.POST("/notifications/read-all", handler.MarkAllRead)
	r.POST("/notifications/:notification_id/read", handler.MarkRead)
	return r
}

func TestListNotifications(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(repo, live.NewBus())
	router := setupNotificationRouter(handler)

	repo.On("List", mock.Anything, "alice").
		Return([]models.Notification{{ID: "n1", Type: models.NotifyMessage}}, nil).Once()
	repo.On("UnreadCount", mock.Anything, "alice").Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unreadCount"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Notifications, 1)
	assert.Equal(t, 3, resp.UnreadCount)
	repo.AssertExpectations(t)
}

func TestMarkRead(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	bus := live.NewBus()
	handler := NewNotificationHandler(repo, bus)
	router := setupNotificationRouter(handler)

	updates := 0
	sub := bus.Subscribe("notifications:alice", func() { updates++ })
	defer sub.Dispose()

	repo.On("MarkRead", mock.Anything, "alice", "n1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/n1/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, updates)
	repo.AssertExpectations(t)
}

func TestMarkReadNotFound(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	handler := NewNotificationHandler(repo, live.NewBus())
	router := setupNotificationRouter(handler)

	repo.On("MarkRead", mock.Anything, "alice", "missing").
		Return(repositories.ErrNotificationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/missing/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkReadOtherRecipient(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	bus := live.NewBus()
	handler := NewNotificationHandler(repo, bus)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "mallory")
		c.Next()
	})
	router.POST("/notifications/:notification_id/read", handler.MarkRead)

	published := 0
	sub := bus.Subscribe("notifications:alice", func() { published++ })
	defer sub.Dispose()

	// n1 belongs to alice; the recipient-scoped update matches no rows
	repo.On("MarkRead", mock.Anything, "mallory", "n1").
		Return(repositories.ErrNotificationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/n1/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, published)
	repo.AssertExpectations(t)
}

func TestMarkAllRead(t *testing.T) {
	repo := new(mocks.NotificationRepositoryMock)
	bus := live.NewBus()
	handler := NewNotificationHandler(repo, bus)
	router := setupNotificationRouter(handler)

	updates := 0
	sub := bus.Subscribe("notifications:alice", func() { updates++ })
	defer sub.Dispose()

	repo.On("MarkAllRead", mock.Anything, "alice").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, updates)
	repo.AssertExpectations(t)
}
