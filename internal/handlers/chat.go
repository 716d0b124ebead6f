package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"social-service/internal/live"
	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/notifier"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

// ChatHandler manages one-to-one chat endpoints.
type ChatHandler struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	store    storage.Store
	notify   notifier.Notifier
	bus      *live.Bus
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats repositories.ChatRepository, messages repositories.MessageRepository, store storage.Store, notify notifier.Notifier, bus *live.Bus) *ChatHandler {
	return &ChatHandler{
		chats:    chats,
		messages: messages,
		store:    store,
		notify:   notify,
		bus:      bus,
	}
}

// ListChats returns the chats visible to the caller, most recently updated
// first, excluding chats the caller soft-deleted.
func (h *ChatHandler) ListChats(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	chats, err := h.chats.ListChats(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ListMessages returns the latest page of a chat's history.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	chatID := c.Param("chat_id")

	if _, ok := h.loadChatForParticipant(c, chatID, uid); !ok {
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores a chat message. Text, image or both; an optional
// replyTo reference is stored verbatim. Sending un-hides the chat for both
// participants.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	chatID := c.Param("chat_id")

	chat, ok := h.loadChatForParticipant(c, chatID, uid)
	if !ok {
		return
	}

	text, replyTo, imageURL, ok := h.parseMessage(c, chatID)
	if !ok {
		return
	}
	if text == "" && imageURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), chatID, uid, text, imageURL, replyTo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.notify.MessageStored(c.Request.Context(), chat, msg)
	h.publishChat(chat)
	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage recalls a message for everyone. Sender only; the row stays
// with scrubbed text and no image.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	chatID := c.Param("chat_id")
	messageID := c.Param("message_id")

	chat, ok := h.loadChatForParticipant(c, chatID, uid)
	if !ok {
		return
	}

	if err := h.messages.SoftDeleteMessage(c.Request.Context(), chatID, messageID, uid); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrNotMessageSender):
			c.JSON(http.StatusForbidden, gin.H{"error": "only sender can delete"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		}
		return
	}

	h.publishChat(chat)
	c.Status(http.StatusNoContent)
}

// ToggleReaction applies the caller's reaction to a message: same emoji
// clears it, a different one replaces it.
func (h *ChatHandler) ToggleReaction(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	chatID := c.Param("chat_id")
	messageID := c.Param("message_id")

	if _, ok := h.loadChatForParticipant(c, chatID, uid); !ok {
		return
	}

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.ToggleReaction(c.Request.Context(), chatID, messageID, uid, req.Emoji)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not toggle reaction"})
		return
	}

	h.bus.Publish("messages:" + chatID)
	c.JSON(http.StatusOK, msg)
}

// DeleteChat hides the chat for the caller only. History and the other
// participant's view survive.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)
	chatID := c.Param("chat_id")

	if _, ok := h.loadChatForParticipant(c, chatID, uid); !ok {
		return
	}

	if err := h.chats.SoftDeleteChat(c.Request.Context(), chatID, uid); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete chat"})
		return
	}

	h.bus.Publish("chats:" + uid)
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) loadChatForParticipant(c *gin.Context, chatID, uid string) (models.Chat, bool) {
	chat, err := h.chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return models.Chat{}, false
	}
	if !chat.HasParticipant(uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return models.Chat{}, false
	}
	return chat, true
}

// parseMessage reads the message payload: JSON for text-only messages, or
// multipart form with an optional image file. Reports ok=false after
// responding on error.
func (h *ChatHandler) parseMessage(c *gin.Context, chatID string) (string, models.ReplyRef, *string, bool) {
	var replyTo models.ReplyRef

	contentType := c.ContentType()
	if contentType != "multipart/form-data" {
		var req struct {
			Text    string          `json:"text"`
			ReplyTo models.ReplyRef `json:"replyTo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", replyTo, nil, false
		}
		return req.Text, req.ReplyTo, nil, true
	}

	text := c.PostForm("text")
	if raw := c.PostForm("replyTo"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &replyTo); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid replyTo"})
			return "", replyTo, nil, false
		}
	}

	file, err := c.FormFile("image")
	if err != nil {
		return text, replyTo, nil, true
	}

	fileType := file.Header.Get("Content-Type")
	if err := storage.ValidateImage(fileType, file.Size, storage.MaxImageBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", replyTo, nil, false
	}
	data, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return "", replyTo, nil, false
	}

	url, err := h.store.Save(c.Request.Context(), "chats/"+chatID+"/"+uuid.NewString()+path.Ext(file.Filename), fileType, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store image"})
		return "", replyTo, nil, false
	}
	return text, replyTo, &url, true
}

func (h *ChatHandler) publishChat(chat models.Chat) {
	topics := []string{"messages:" + chat.ID}
	for _, p := range chat.Participants {
		topics = append(topics, "chats:"+p)
	}
	h.bus.Publish(topics...)
}
