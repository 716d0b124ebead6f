package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
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

func setupPostRouter(handler *PostHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "alice")
		c.Next()
	})
	r.GET("/feed", handler.Feed)
	r.GET("/posts/mine", handler.OwnPosts)
	r.POST("/posts", handler.CreatePost)
	r.DELETE("/posts/:post_id", handler.DeletePost)
	r.POST("/posts/:post_id/like", handler.ToggleLike)
	r.POST("/posts/:post_id/comments", handler.AddComment)
	return r
}

// multipartUpload builds a multipart body with one file part carrying an
// explicit content type, plus optional extra fields.
func multipartUpload(t *testing.T, field, filename, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("media-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreatePostSuccess(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	store := new(mocks.StoreMock)
	notify := new(mocks.NotifierMock)
	bus := live.NewBus()
	handler := NewPostHandler(postRepo, nil, store, notify, bus)
	router := setupPostRouter(handler)

	feedUpdates := 0
	sub := bus.Subscribe("feed", func() { feedUpdates++ })
	defer sub.Dispose()

	postRepo.On("CreatePost", mock.Anything, "alice", "sunset").
		Return(models.Post{ID: "p1", UserID: "alice", Caption: "sunset"}, nil).Once()
	store.On("Save", mock.Anything, "posts/alice/p1", "image/png", mock.Anything).
		Return("http://localhost:8083/media/posts/alice/p1", nil).Once()
	postRepo.On("SetImageURL", mock.Anything, "p1", "http://localhost:8083/media/posts/alice/p1").
		Return(nil).Once()
	notify.On("PostStored", mock.Anything, mock.Anything).Once()

	body, contentType := multipartUpload(t, "image", "pic.png", "image/png", map[string]string{"caption": "sunset"})
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, feedUpdates)
	var post models.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&post))
	assert.Equal(t, "http://localhost:8083/media/posts/alice/p1", post.ImageURL)
	postRepo.AssertExpectations(t)
	store.AssertExpectations(t)
	notify.AssertExpectations(t)
}

func TestCreatePostUploadFailureRollsBack(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	store := new(mocks.StoreMock)
	notify := new(mocks.NotifierMock)
	handler := NewPostHandler(postRepo, nil, store, notify, live.NewBus())
	router := setupPostRouter(handler)

	postRepo.On("CreatePost", mock.Anything, "alice", "").
		Return(models.Post{ID: "p1", UserID: "alice"}, nil).Once()
	store.On("Save", mock.Anything, "posts/alice/p1", "image/png", mock.Anything).
		Return("", assert.AnError).Once()
	postRepo.On("DeleteRow", mock.Anything, "p1").Return(nil).Once()

	body, contentType := multipartUpload(t, "image", "pic.png", "image/png", nil)
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	postRepo.AssertExpectations(t)
	notify.AssertNotCalled(t, "PostStored", mock.Anything, mock.Anything)
}

func TestCreatePostRejectsNonImage(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	handler := NewPostHandler(postRepo, nil, new(mocks.StoreMock), nil, live.NewBus())
	router := setupPostRouter(handler)

	body, contentType := multipartUpload(t, "image", "notes.txt", "text/plain", nil)
	req := httptest.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	postRepo.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleLikeNotFound(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	handler := NewPostHandler(postRepo, nil, nil, nil, live.NewBus())
	router := setupPostRouter(handler)

	postRepo.On("ToggleLike", mock.Anything, "missing", "alice").
		Return(models.Post{}, repositories.ErrPostNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/missing/like", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePostNotOwner(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	handler := NewPostHandler(postRepo, nil, new(mocks.StoreMock), nil, live.NewBus())
	router := setupPostRouter(handler)

	postRepo.On("DeletePost", mock.Anything, "p1", "alice").
		Return(repositories.ErrNotPostOwner).Once()

	req := httptest.NewRequest(http.MethodDelete, "/posts/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	postRepo.AssertExpectations(t)
}

func TestAddCommentSuccess(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	handler := NewPostHandler(postRepo, nil, nil, nil, live.NewBus())
	router := setupPostRouter(handler)

	postRepo.On("AppendComment", mock.Anything, "p1", "alice", "nice").
		Return(models.Comment{ID: "c1", UserID: "alice", Text: "nice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/posts/p1/comments", bytes.NewBufferString(`{"text":"nice"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	postRepo.AssertExpectations(t)
}

func TestFeedFiltersToSelfAndFriends(t *testing.T) {
	postRepo := new(mocks.PostRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewPostHandler(postRepo, userRepo, nil, nil, live.NewBus())
	router := setupPostRouter(handler)

	userRepo.On("GetByUID", mock.Anything, "alice").
		Return(models.UserProfile{UID: "alice", Friends: []string{"bob"}}, nil).Once()
	postRepo.On("ListRecent", mock.Anything).Return([]models.Post{
		{ID: "p1", UserID: "bob"},
		{ID: "p2", UserID: "carol"},
		{ID: "p3", UserID: "alice"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Posts, 2)
	assert.Equal(t, "p1", resp.Posts[0].ID)
	assert.Equal(t, "p3", resp.Posts[1].ID)
}
