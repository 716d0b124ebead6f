package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")
var ErrNotMessageSender = errors.New("only the sender can delete a message")

// MessageHistoryLimit bounds how many messages a single snapshot carries.
const MessageHistoryLimit = 200

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Append(ctx context.Context, chatID, senderID, text string, imageURL *string, replyTo models.ReplyRef) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, chatID, messageID, requesterID string) error
	ToggleReaction(ctx context.Context, chatID, messageID, uid, emoji string) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, text, image_url, reply_to, reactions, deleted, created_at`

// Append stores a message and bumps the parent chat's lastMessage and
// updatedAt. Sending also clears deletedBy so the chat reappears for a
// participant who had hidden it.
func (r *MessageRepo) Append(ctx context.Context, chatID, senderID, text string, imageURL *string, replyTo models.ReplyRef) (models.Message, error) {
	preview := text
	if preview == "" && imageURL != nil {
		preview = models.ImageOnlyPlaceholder
	}

	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `INSERT INTO messages (id, chat_id, sender_id, text, image_url, reply_to, reactions, deleted)
        VALUES ($1, $2, $3, $4, $5, $6, '{}', FALSE) RETURNING `+messageColumns,
		uuid.NewString(), chatID, senderID, text, imageURL, replyTo)
	if err != nil {
		return models.Message{}, err
	}

	_, err = r.db.ExecContext(ctx, `UPDATE chats
        SET last_message=$2, updated_at=NOW(), deleted_by='{}' WHERE id=$1`, chatID, preview)
	return msg, err
}

// ListMessages returns the latest messages of a chat, oldest first. An empty
// chat yields an empty list.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM (
            SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at DESC LIMIT $2
        ) latest ORDER BY created_at ASC`, chatID, MessageHistoryLimit)
	return msgs, err
}

// GetMessage retrieves a single message scoped to its chat.
func (r *MessageRepo) GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1 AND chat_id=$2`,
		messageID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage recalls a message: the row stays, the text is replaced
// with a fixed placeholder and the image URL is tombstoned. Only the sender
// may delete. The parent chat's updatedAt is bumped.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, chatID, messageID, requesterID string) error {
	msg, err := r.GetMessage(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return ErrNotMessageSender
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE messages
        SET deleted=TRUE, text=$2, image_url=NULL WHERE id=$1`,
		messageID, models.DeletedMessageText); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE chats SET updated_at=NOW() WHERE id=$1`, chatID)
	return err
}

// ToggleReaction applies the toggle law under a row lock so concurrent
// reactions cannot lose each other's writes.
func (r *MessageRepo) ToggleReaction(ctx context.Context, chatID, messageID, uid, emoji string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages
        WHERE id=$1 AND chat_id=$2 FOR UPDATE`, messageID, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	msg.Reactions = models.ToggleReaction(msg.Reactions, uid, emoji)
	if _, err := tx.ExecContext(ctx, `UPDATE messages SET reactions=$2 WHERE id=$1`,
		messageID, msg.Reactions); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}
