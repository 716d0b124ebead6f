package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"social-service/internal/auth"
	"social-service/internal/live"
	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is a frame written to a subscription client. The initial frame after
// the handshake has type "snapshot"; every later re-delivery has type
// "update" and names the topic that triggered it.
type event struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Data  any    `json:"data"`
}

// notificationSnapshot pairs the recent notifications with the live unread
// count so a single subscription serves both.
type notificationSnapshot struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

// LiveHandler bridges bus topics onto websocket connections. Each endpoint
// authenticates, writes an initial snapshot and then re-queries on every
// publish to its topics until the peer disconnects.
type LiveHandler struct {
	hub    *Hub
	bus    *live.Bus
	tokens *auth.TokenManager

	users         repositories.UserRepository
	friends       repositories.FriendRepository
	chats         repositories.ChatRepository
	messages      repositories.MessageRepository
	posts         repositories.PostRepository
	stories       repositories.StoryRepository
	notifications repositories.NotificationRepository
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(
	hub *Hub,
	bus *live.Bus,
	tokens *auth.TokenManager,
	users repositories.UserRepository,
	friends repositories.FriendRepository,
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	posts repositories.PostRepository,
	stories repositories.StoryRepository,
	notifications repositories.NotificationRepository,
) *LiveHandler {
	return &LiveHandler{
		hub:           hub,
		bus:           bus,
		tokens:        tokens,
		users:         users,
		friends:       friends,
		chats:         chats,
		messages:      messages,
		posts:         posts,
		stories:       stories,
		notifications: notifications,
	}
}

// Chats streams the caller's chat list.
func (h *LiveHandler) Chats(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "chats", uid, []string{"chats:" + uid}, func(ctx context.Context) (any, error) {
		return h.chats.ListChats(ctx, uid)
	})
}

// Messages streams one chat's message history. Participants only.
func (h *LiveHandler) Messages(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	chatID := c.Param("chat_id")

	member, err := h.chats.IsParticipant(c.Request.Context(), chatID, uid)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}
	h.serve(c, "messages", uid, []string{"messages:" + chatID}, func(ctx context.Context) (any, error) {
		return h.messages.ListMessages(ctx, chatID)
	})
}

// FriendRequests streams the caller's incoming pending requests.
func (h *LiveHandler) FriendRequests(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "requests", uid, []string{"requests:" + uid}, func(ctx context.Context) (any, error) {
		return h.friends.ListIncomingPending(ctx, uid)
	})
}

// Feed streams recent posts by the caller and the caller's friends.
func (h *LiveHandler) Feed(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "feed", uid, []string{"feed"}, func(ctx context.Context) (any, error) {
		return h.feedSnapshot(ctx, uid)
	})
}

// OwnPosts streams the caller's own posts.
func (h *LiveHandler) OwnPosts(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "posts", uid, []string{"posts:" + uid}, func(ctx context.Context) (any, error) {
		return h.posts.ListByAuthor(ctx, uid)
	})
}

// OwnStories streams the caller's active stories.
func (h *LiveHandler) OwnStories(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "stories", uid, []string{"stories"}, func(ctx context.Context) (any, error) {
		return h.stories.ListOwn(ctx, uid)
	})
}

// FriendsStories streams the friends' active stories grouped by author.
func (h *LiveHandler) FriendsStories(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "stories", uid, []string{"stories"}, func(ctx context.Context) (any, error) {
		return h.friendsStoriesSnapshot(ctx, uid)
	})
}

// Notifications streams the caller's recent notifications and unread count.
func (h *LiveHandler) Notifications(c *gin.Context) {
	uid, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.serve(c, "notifications", uid, []string{"notifications:" + uid}, func(ctx context.Context) (any, error) {
		return h.notificationSnapshot(ctx, uid)
	})
}

func (h *LiveHandler) feedSnapshot(ctx context.Context, uid string) (any, error) {
	profile, err := h.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	posts, err := h.posts.ListRecent(ctx)
	if err != nil {
		return nil, err
	}
	allowed := append([]string{uid}, profile.Friends...)
	return models.FilterPostsByAuthors(posts, allowed), nil
}

func (h *LiveHandler) friendsStoriesSnapshot(ctx context.Context, uid string) (any, error) {
	profile, err := h.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	stories, err := h.stories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	byFriend := make([]models.Story, 0, len(stories))
	for _, s := range stories {
		if profile.IsFriendsWith(s.UserID) {
			byFriend = append(byFriend, s)
		}
	}
	return models.GroupStories(byFriend), nil
}

func (h *LiveHandler) notificationSnapshot(ctx context.Context, uid string) (any, error) {
	list, err := h.notifications.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	unread, err := h.notifications.UnreadCount(ctx, uid)
	if err != nil {
		return nil, err
	}
	return notificationSnapshot{Notifications: list, UnreadCount: unread}, nil
}

// serve upgrades the connection, writes the initial snapshot and re-delivers
// one on every publish to the given topics. Snapshot errors deliver an empty
// frame and keep the subscription alive.
func (h *LiveHandler) serve(c *gin.Context, kind, uid string, topics []string, snapshot func(ctx context.Context) (any, error)) {
	ctx, span := otel.Tracer("social-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	traceID := span.SpanContext().TraceID().String()
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      uid,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)
	h.hub.Add(kind, client)

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	h.publishWSEvent(kind, "ws_connect", info, "")

	deliver := func(eventType, topic string) {
		data, err := snapshot(context.Background())
		if err != nil {
			log.Printf("ws %s snapshot failed uid=%s: %v", kind, uid, err)
			data = nil
		}
		if err := client.WriteJSON(event{Type: eventType, Topic: topic, Data: data}); err != nil {
			log.Printf("websocket write error: %v", err)
			client.Close()
		}
	}
	deliver("snapshot", "")

	subs := make([]*live.Subscription, 0, len(topics))
	for _, topic := range topics {
		topic := topic
		subs = append(subs, h.bus.Subscribe(topic, func() {
			deliver("update", topic)
		}))
	}

	go func() {
		readErr := client.ReadLoop()

		for _, sub := range subs {
			sub.Dispose()
		}
		h.hub.Remove(kind, client)
		client.Close()

		closeReason := ""
		if readErr != nil {
			closeReason = readErr.Error()
			if !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(kind, "ws_error")
				h.publishWSEvent(kind, "ws_error", info, closeReason)
			}
		}
		observability.DecWSActive(kind)
		observability.IncWSEvent(kind, "ws_disconnect")
		h.publishWSEvent(kind, "ws_disconnect", info, closeReason)
	}()
}

// authenticate resolves the caller from the Authorization header, or from
// a token query parameter for browser websocket clients.
func (h *LiveHandler) authenticate(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}

	uid, err := h.validateToken(header)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return uid, true
}

func (h *LiveHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return h.tokens.Validate(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}

func (h *LiveHandler) publishWSEvent(kind, name string, info ConnInfo, reason string) {
	durationMS := int64(0)
	if name != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"event":       name,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload:   payload,
	}, headers)
}
