package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/notifier"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

// PostHandler manages feed post endpoints.
type PostHandler struct {
	posts  repositories.PostRepository
	users  repositories.UserRepository
	store  storage.Store
	notify notifier.Notifier
	bus    *live.Bus
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(posts repositories.PostRepository, users repositories.UserRepository, store storage.Store, notify notifier.Notifier, bus *live.Bus) *PostHandler {
	return &PostHandler{posts: posts, users: users, store: store, notify: notify, bus: bus}
}

// CreatePost stores a post with a required image. The row is created first,
// then the upload; a failed upload rolls the row back so no imageless post
// ever reaches the feed.
func (h *PostHandler) CreatePost(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if err := storage.ValidateImage(contentType, file.Size, storage.MaxImageBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), uid, c.PostForm("caption"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}

	url, err := h.store.Save(c.Request.Context(), "posts/"+uid+"/"+post.ID, contentType, data)
	if err != nil {
		if rollbackErr := h.posts.DeleteRow(c.Request.Context(), post.ID); rollbackErr != nil {
			log.Printf("post rollback %s: %v", post.ID, rollbackErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store image"})
		return
	}
	if err := h.posts.SetImageURL(c.Request.Context(), post.ID, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not finalize post"})
		return
	}
	post.ImageURL = url

	h.notify.PostStored(c.Request.Context(), post)
	h.bus.Publish("feed", "posts:"+uid)
	c.JSON(http.StatusCreated, post)
}

// ToggleLike adds or removes the caller's like.
func (h *PostHandler) ToggleLike(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	postID := c.Param("post_id")

	post, err := h.posts.ToggleLike(c.Request.Context(), postID, uid)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrPostNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not toggle like"})
		return
	}

	h.bus.Publish("feed", "posts:"+post.UserID)
	c.JSON(http.StatusOK, post)
}

// AddComment appends a comment to a post.
func (h *PostHandler) AddComment(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	postID := c.Param("post_id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.posts.AppendComment(c.Request.Context(), postID, uid, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrPostNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not add comment"})
		return
	}

	h.bus.Publish("feed")
	c.JSON(http.StatusCreated, comment)
}

// DeletePost removes the caller's own post and its stored image.
func (h *PostHandler) DeletePost(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	postID := c.Param("post_id")

	if err := h.posts.DeletePost(c.Request.Context(), postID, uid); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		case errors.Is(err, repositories.ErrNotPostOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not the post owner"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete post"})
		}
		return
	}

	if err := h.store.Remove(c.Request.Context(), "posts/"+uid+"/"+postID); err != nil {
		log.Printf("remove post image %s: %v", postID, err)
	}

	h.bus.Publish("feed", "posts:"+uid)
	c.Status(http.StatusNoContent)
}

// Feed returns recent posts by the caller and the caller's friends.
func (h *PostHandler) Feed(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	profile, err := h.users.GetByUID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	posts, err := h.posts.ListRecent(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feed"})
		return
	}

	allowed := append([]string{uid}, profile.Friends...)
	c.JSON(http.StatusOK, gin.H{"posts": models.FilterPostsByAuthors(posts, allowed)})
}

// OwnPosts returns the caller's own posts, newest first.
func (h *PostHandler) OwnPosts(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	posts, err := h.posts.ListByAuthor(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
