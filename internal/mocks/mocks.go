package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateAccount(ctx context.Context, profile models.UserProfile, passwordHash string) error {
	args := m.Called(ctx, profile, passwordHash)
	return args.Error(0)
}

func (m *UserRepositoryMock) CreateProfile(ctx context.Context, profile models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByUID(ctx context.Context, uid string) (models.UserProfile, error) {
	args := m.Called(ctx, uid)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.UserProfile, string, error) {
	args := m.Called(ctx, email)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.String(1), args.Error(2)
}

func (m *UserRepositoryMock) SearchByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.UserProfile, error) {
	args := m.Called(ctx, prefix, limit)
	var users []models.UserProfile
	if val := args.Get(0); val != nil {
		users = val.([]models.UserProfile)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, uid string, displayName, photoURL *string) (models.UserProfile, error) {
	args := m.Called(ctx, uid, displayName, photoURL)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) SendRequest(ctx context.Context, from, to string) (models.FriendRequest, error) {
	args := m.Called(ctx, from, to)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRepositoryMock) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendRepositoryMock) AcceptRequest(ctx context.Context, requestID, from, to string) error {
	args := m.Called(ctx, requestID, from, to)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RejectRequest(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) ListIncomingPending(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	args := m.Called(ctx, uid)
	var reqs []models.FriendRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequest)
	}
	return reqs, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) EnsureChat(ctx context.Context, chatID string, participants []string) error {
	args := m.Called(ctx, chatID, participants)
	return args.Error(0)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, uid string) (bool, error) {
	args := m.Called(ctx, chatID, uid)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, uid string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, uid)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) SoftDeleteChat(ctx context.Context, chatID, uid string) error {
	args := m.Called(ctx, chatID, uid)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, chatID, senderID, text string, imageURL *string, replyTo models.ReplyRef) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, text, imageURL, replyTo)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, chatID, messageID, requesterID string) error {
	args := m.Called(ctx, chatID, messageID, requesterID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) ToggleReaction(ctx context.Context, chatID, messageID, uid, emoji string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID, uid, emoji)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type PostRepositoryMock struct {
	mock.Mock
}

func (m *PostRepositoryMock) CreatePost(ctx context.Context, userID, caption string) (models.Post, error) {
	args := m.Called(ctx, userID, caption)
	var post models.Post
	if val := args.Get(0); val != nil {
		post = val.(models.Post)
	}
	return post, args.Error(1)
}

func (m *PostRepositoryMock) GetPost(ctx context.Context, postID string) (models.Post, error) {
	args := m.Called(ctx, postID)
	var post models.Post
	if val := args.Get(0); val != nil {
		post = val.(models.Post)
	}
	return post, args.Error(1)
}

func (m *PostRepositoryMock) SetImageURL(ctx context.Context, postID, imageURL string) error {
	args := m.Called(ctx, postID, imageURL)
	return args.Error(0)
}

func (m *PostRepositoryMock) DeleteRow(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *PostRepositoryMock) DeletePost(ctx context.Context, postID, uid string) error {
	args := m.Called(ctx, postID, uid)
	return args.Error(0)
}

func (m *PostRepositoryMock) ToggleLike(ctx context.Context, postID, uid string) (models.Post, error) {
	args := m.Called(ctx, postID, uid)
	var post models.Post
	if val := args.Get(0); val != nil {
		post = val.(models.Post)
	}
	return post, args.Error(1)
}

func (m *PostRepositoryMock) AppendComment(ctx context.Context, postID, uid, text string) (models.Comment, error) {
	args := m.Called(ctx, postID, uid, text)
	var comment models.Comment
	if val := args.Get(0); val != nil {
		comment = val.(models.Comment)
	}
	return comment, args.Error(1)
}

func (m *PostRepositoryMock) ListRecent(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

func (m *PostRepositoryMock) ListByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	args := m.Called(ctx, userID)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

type StoryRepositoryMock struct {
	mock.Mock
}

func (m *StoryRepositoryMock) CreateStory(ctx context.Context, userID, mediaType, caption string) (models.Story, error) {
	args := m.Called(ctx, userID, mediaType, caption)
	var story models.Story
	if val := args.Get(0); val != nil {
		story = val.(models.Story)
	}
	return story, args.Error(1)
}

func (m *StoryRepositoryMock) SetMediaURL(ctx context.Context, storyID, mediaURL string) error {
	args := m.Called(ctx, storyID, mediaURL)
	return args.Error(0)
}

func (m *StoryRepositoryMock) DeleteRow(ctx context.Context, storyID string) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}

func (m *StoryRepositoryMock) DeleteStory(ctx context.Context, storyID, uid string) error {
	args := m.Called(ctx, storyID, uid)
	return args.Error(0)
}

func (m *StoryRepositoryMock) ListOwn(ctx context.Context, userID string) ([]models.Story, error) {
	args := m.Called(ctx, userID)
	var stories []models.Story
	if val := args.Get(0); val != nil {
		stories = val.([]models.Story)
	}
	return stories, args.Error(1)
}

func (m *StoryRepositoryMock) ListActive(ctx context.Context) ([]models.Story, error) {
	args := m.Called(ctx)
	var stories []models.Story
	if val := args.Get(0); val != nil {
		stories = val.([]models.Story)
	}
	return stories, args.Error(1)
}

func (m *StoryRepositoryMock) MarkViewed(ctx context.Context, storyID, viewerID string) error {
	args := m.Called(ctx, storyID, viewerID)
	return args.Error(0)
}

func (m *StoryRepositoryMock) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, userID, notifType, title, body string, data models.NotifyData) (models.Notification, error) {
	args := m.Called(ctx, userID, notifType, title, body, data)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) List(ctx context.Context, userID string) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageStored(ctx context.Context, chat models.Chat, msg models.Message) {
	m.Called(ctx, chat, msg)
}

func (m *NotifierMock) PostStored(ctx context.Context, post models.Post) {
	m.Called(ctx, post)
}

func (m *NotifierMock) FriendRequested(ctx context.Context, req models.FriendRequest) {
	m.Called(ctx, req)
}

func (m *NotifierMock) FriendAccepted(ctx context.Context, req models.FriendRequest) {
	m.Called(ctx, req)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Save(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, objectPath, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *StoreMock) Remove(ctx context.Context, objectPath string) error {
	args := m.Called(ctx, objectPath)
	return args.Error(0)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.FriendRepository = (*FriendRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.PostRepository = (*PostRepositoryMock)(nil)
var _ repositories.StoryRepository = (*StoryRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ storage.Store = (*StoreMock)(nil)
