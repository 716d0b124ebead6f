package notifier

import (
	"context"
	"log"
	"sync"

	"social-service/internal/live"
	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/repositories"
)

// Notifier derives notification documents from primary-entity writes.
type Notifier interface {
	MessageStored(ctx context.Context, chat models.Chat, msg models.Message)
	PostStored(ctx context.Context, post models.Post)
	FriendRequested(ctx context.Context, req models.FriendRequest)
	FriendAccepted(ctx context.Context, req models.FriendRequest)
}

// Fanout is the production Notifier. Fan-out is best effort: a failed
// notification write never fails the primary operation, it is only logged.
type Fanout struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	bus           *live.Bus

	mu           sync.Mutex
	seenMessages map[string]struct{}
	seenPosts    map[string]struct{}
}

// seenLimit bounds the dedupe sets. Once a set is full it resets, so only
// recent ids are deduped and the sets never grow for the life of the process.
const seenLimit = 4096

// NewFanout constructs a Fanout.
func NewFanout(notifications repositories.NotificationRepository, users repositories.UserRepository, bus *live.Bus) *Fanout {
	return &Fanout{
		notifications: notifications,
		users:         users,
		bus:           bus,
		seenMessages:  make(map[string]struct{}),
		seenPosts:     make(map[string]struct{}),
	}
}

// MessageStored notifies the other chat participant about a new message,
// exactly once per distinct message id and never for self-authored ones.
func (f *Fanout) MessageStored(ctx context.Context, chat models.Chat, msg models.Message) {
	if !f.markSeen(f.seenMessages, msg.ID) {
		return
	}
	recipient := chat.OtherParticipant(msg.SenderID)
	if recipient == "" || recipient == msg.SenderID {
		return
	}

	body := msg.Text
	if body == "" {
		body = "Sent an image"
	}
	f.store(ctx, recipient, models.NotifyMessage, f.displayName(ctx, msg.SenderID), body, models.NotifyData{
		"chatId":   chat.ID,
		"senderId": msg.SenderID,
	})
}

// PostStored notifies the author's friends about a new post, exactly once
// per distinct post id.
func (f *Fanout) PostStored(ctx context.Context, post models.Post) {
	if !f.markSeen(f.seenPosts, post.ID) {
		return
	}
	author, err := f.users.GetByUID(ctx, post.UserID)
	if err != nil {
		log.Printf("post fan-out: load author %s: %v", post.UserID, err)
		return
	}

	body := post.Caption
	if body == "" {
		body = "Shared a new post"
	}
	title := profileTitle(author)
	for _, friend := range author.Friends {
		if friend == post.UserID {
			continue
		}
		f.store(ctx, friend, models.NotifyNewPost, title, body, models.NotifyData{
			"postId": post.ID,
			"userId": post.UserID,
		})
	}
}

// FriendRequested notifies the recipient of a new pending request.
func (f *Fanout) FriendRequested(ctx context.Context, req models.FriendRequest) {
	f.store(ctx, req.To, models.NotifyFriendRequest, f.displayName(ctx, req.From),
		"Sent you a friend request", models.NotifyData{
			"requestId": req.ID,
			"userId":    req.From,
		})
}

// FriendAccepted notifies the original sender that the request was accepted.
func (f *Fanout) FriendAccepted(ctx context.Context, req models.FriendRequest) {
	f.store(ctx, req.From, models.NotifyFriendAccepted, f.displayName(ctx, req.To),
		"Accepted your friend request", models.NotifyData{
			"requestId": req.ID,
			"userId":    req.To,
		})
}

func (f *Fanout) store(ctx context.Context, recipient, notifType, title, body string, data models.NotifyData) {
	n, err := f.notifications.Create(ctx, recipient, notifType, title, body, data)
	if err != nil {
		log.Printf("notification fan-out failed type=%s recipient=%s: %v", notifType, recipient, err)
		return
	}

	observability.IncFanout(notifType)
	_ = observability.PublishEvent(ctx, "notifications."+notifType, observability.EventEnvelope{
		EventType: "notifications",
		EventName: notifType,
		Payload:   n,
	}, nil)
	f.bus.Publish("notifications:" + recipient)
}

// markSeen records an id and reports whether it was new.
func (f *Fanout) markSeen(set map[string]struct{}, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := set[id]; ok {
		return false
	}
	if len(set) >= seenLimit {
		for k := range set {
			delete(set, k)
		}
	}
	set[id] = struct{}{}
	return true
}

func (f *Fanout) displayName(ctx context.Context, uid string) string {
	profile, err := f.users.GetByUID(ctx, uid)
	if err != nil {
		log.Printf("fan-out: load profile %s: %v", uid, err)
		return uid
	}
	return profileTitle(profile)
}

func profileTitle(profile models.UserProfile) string {
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	return profile.Email
}
