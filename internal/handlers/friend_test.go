package handlers

import (
	"bytes"
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

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Next()
	})
	r.GET("/users/search", handler.SearchUsers)
	r.GET("/friends/requests", handler.ListRequests)
	r.POST("/friends/requests", handler.SendRequest)
	r.POST("/friends/requests/:request_id/accept", handler.AcceptRequest)
	r.POST("/friends/requests/:request_id/reject", handler.RejectRequest)
	return r
}

func TestSearchShortQueryReturnsEmpty(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(userRepo, nil, nil, live.NewBus())
	router := setupFriendRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=ab", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.UserProfile `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Users)
	userRepo.AssertNotCalled(t, "SearchByEmailPrefix", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchByPrefix(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(userRepo, nil, nil, live.NewBus())
	router := setupFriendRouter(handler)

	userRepo.On("SearchByEmailPrefix", mock.Anything, "bob", 10).
		Return([]models.UserProfile{{UID: "bob", Email: "bob@example.com"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestSendRequestSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	friendRepo := new(mocks.FriendRepositoryMock)
	notify := new(mocks.NotifierMock)
	bus := live.NewBus()
	handler := NewFriendHandler(userRepo, friendRepo, notify, bus)
	router := setupFriendRouter(handler)

	updates := 0
	sub := bus.Subscribe("requests:bob", func() { updates++ })
	defer sub.Dispose()

	request := models.FriendRequest{ID: "r1", From: "alice", To: "bob", Status: models.RequestPending}
	userRepo.On("GetByUID", mock.Anything, "bob").Return(models.UserProfile{UID: "bob"}, nil).Once()
	friendRepo.On("SendRequest", mock.Anything, "alice", "bob").Return(request, nil).Once()
	notify.On("FriendRequested", mock.Anything, request).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"to":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, updates)
	friendRepo.AssertExpectations(t)
	notify.AssertExpectations(t)
}

func TestSendRequestDuplicate(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	friendRepo := new(mocks.FriendRepositoryMock)
	notify := new(mocks.NotifierMock)
	handler := NewFriendHandler(userRepo, friendRepo, notify, live.NewBus())
	router := setupFriendRouter(handler)

	userRepo.On("GetByUID", mock.Anything, "bob").Return(models.UserProfile{UID: "bob"}, nil).Once()
	friendRepo.On("SendRequest", mock.Anything, "alice", "bob").
		Return(models.FriendRequest{}, repositories.ErrDuplicateRequest).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"to":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	notify.AssertNotCalled(t, "FriendRequested", mock.Anything, mock.Anything)
}

func TestSendRequestToSelf(t *testing.T) {
	handler := NewFriendHandler(new(mocks.UserRepositoryMock), new(mocks.FriendRepositoryMock), nil, live.NewBus())
	router := setupFriendRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"to":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRequestUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFriendHandler(userRepo, new(mocks.FriendRepositoryMock), nil, live.NewBus())
	router := setupFriendRouter(handler)

	userRepo.On("GetByUID", mock.Anything, "ghost").
		Return(models.UserProfile{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewBufferString(`{"to":"ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptRequestSuccess(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	notify := new(mocks.NotifierMock)
	bus := live.NewBus()
	handler := NewFriendHandler(new(mocks.UserRepositoryMock), friendRepo, notify, bus)
	router := setupFriendRouter(handler)

	bobChats := 0
	sub := bus.Subscribe("chats:bob", func() { bobChats++ })
	defer sub.Dispose()

	request := models.FriendRequest{ID: "r1", From: "bob", To: "alice", Status: models.RequestPending}
	friendRepo.On("GetRequest", mock.Anything, "r1").Return(request, nil).Once()
	friendRepo.On("AcceptRequest", mock.Anything, "r1", "bob", "alice").Return(nil).Once()
	notify.On("FriendAccepted", mock.Anything, request).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, bobChats)
	friendRepo.AssertExpectations(t)
	notify.AssertExpectations(t)
}

func TestAcceptRequestWrongRecipient(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(new(mocks.UserRepositoryMock), friendRepo, nil, live.NewBus())
	router := setupFriendRouter(handler)

	// request addressed to carol, not the caller
	friendRepo.On("GetRequest", mock.Anything, "r2").
		Return(models.FriendRequest{ID: "r2", From: "bob", To: "carol"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r2/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	friendRepo.AssertNotCalled(t, "AcceptRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectRequestSuccess(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(new(mocks.UserRepositoryMock), friendRepo, nil, live.NewBus())
	router := setupFriendRouter(handler)

	friendRepo.On("GetRequest", mock.Anything, "r3").
		Return(models.FriendRequest{ID: "r3", From: "bob", To: "alice"}, nil).Once()
	friendRepo.On("RejectRequest", mock.Anything, "r3").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r3/reject", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestListRequests(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(new(mocks.UserRepositoryMock), friendRepo, nil, live.NewBus())
	router := setupFriendRouter(handler)

	friendRepo.On("ListIncomingPending", mock.Anything, "alice").
		Return([]models.FriendRequest{{ID: "r1", From: "bob", To: "alice"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends/requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friendRepo.AssertExpectations(t)
}
