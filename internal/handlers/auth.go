package handlers

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"social-service/internal/auth"
	"social-service/internal/middleware"
	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/storage"
	"social-service/internal/telemetry"
)

// AuthHandler manages account and profile endpoints.
type AuthHandler struct {
	users  repositories.UserRepository
	tokens *auth.TokenManager
	store  storage.Store
	audit  *telemetry.AuditEmitter
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenManager, store storage.Store, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, store: store, audit: audit}
}

// Register creates an account with a default profile and returns a session
// token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	profile := models.DefaultProfile(uuid.NewString(), req.Email)
	if err := h.users.CreateAccount(c.Request.Context(), profile, hash); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	token, err := h.tokens.Issue(profile.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", "User registered")
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": profile})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, hash, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		h.emitAudit(c, "ERROR", "login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.tokens.Issue(profile.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", "User logged in")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": profile})
}

// Me returns the caller's profile, creating a default one if the profile
// row is missing. Profile creation failure never blocks the response.
func (h *AuthHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	profile, err := h.users.GetByUID(c.Request.Context(), uid)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
			return
		}
		profile = models.DefaultProfile(uid, "")
		if createErr := h.users.CreateProfile(c.Request.Context(), profile); createErr != nil {
			log.Printf("ensure profile %s: %v", uid, createErr)
		}
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateProfile patches displayName and/or photoURL.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	var req struct {
		DisplayName *string `json:"displayName"`
		PhotoURL    *string `json:"photoURL"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DisplayName == nil && req.PhotoURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), uid, req.DisplayName, req.PhotoURL)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UploadAvatar stores a new avatar image and points the profile at it.
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString(middleware.UserIDKey)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	contentType := file.Header.Get("Content-Type")
	if err := storage.ValidateImage(contentType, file.Size, storage.MaxAvatarBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}

	url, err := h.store.Save(c.Request.Context(), "avatars/"+uid+path.Ext(file.Filename), contentType, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store avatar"})
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), uid, nil, &url)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
