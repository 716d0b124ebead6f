package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/notifier"
	"social-service/internal/repositories"
)

// FriendHandler manages user search and the friend request lifecycle.
type FriendHandler struct {
	users   repositories.UserRepository
	friends repositories.FriendRepository
	notify  notifier.Notifier
	bus     *live.Bus
}

// NewFriendHandler constructs a FriendHandler.
func NewFriendHandler(users repositories.UserRepository, friends repositories.FriendRepository, notify notifier.Notifier, bus *live.Bus) *FriendHandler {
	return &FriendHandler{users: users, friends: friends, notify: notify, bus: bus}
}

// SearchUsers finds users by email prefix. Queries shorter than three
// characters return an empty list rather than an error.
func (h *FriendHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 3 {
		c.JSON(http.StatusOK, gin.H{"users": []models.UserProfile{}})
		return
	}

	users, err := h.users.SearchByEmailPrefix(c.Request.Context(), query, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SendRequest creates a pending friend request.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	var req struct {
		To string `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.To == uid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot friend yourself"})
		return
	}

	if _, err := h.users.GetByUID(c.Request.Context(), req.To); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	request, err := h.friends.SendRequest(c.Request.Context(), uid, req.To)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateRequest) {
			c.JSON(http.StatusConflict, gin.H{"error": "request already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send request"})
		return
	}

	h.notify.FriendRequested(c.Request.Context(), request)
	h.bus.Publish("requests:" + req.To)
	c.JSON(http.StatusCreated, request)
}

// AcceptRequest accepts a pending request addressed to the caller: both
// friends lists gain the other uid and the pair's chat comes to exist.
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	requestID := c.Param("request_id")

	request, err := h.friends.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return
	}
	if request.To != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the request recipient"})
		return
	}

	if err := h.friends.AcceptRequest(c.Request.Context(), requestID, request.From, request.To); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not accept request"})
		return
	}

	h.notify.FriendAccepted(c.Request.Context(), request)
	h.bus.Publish("requests:"+uid, "chats:"+request.From, "chats:"+request.To)
	c.Status(http.StatusNoContent)
}

// RejectRequest marks a pending request addressed to the caller as rejected.
func (h *FriendHandler) RejectRequest(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	requestID := c.Param("request_id")

	request, err := h.friends.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return
	}
	if request.To != uid {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the request recipient"})
		return
	}

	if err := h.friends.RejectRequest(c.Request.Context(), requestID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reject request"})
		return
	}

	h.bus.Publish("requests:" + uid)
	c.Status(http.StatusNoContent)
}

// ListRequests returns the caller's incoming pending requests.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	requests, err := h.friends.ListIncomingPending(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
