package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	EnsureChat(ctx context.Context, chatID string, participants []string) error
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, uid string) (bool, error)
	ListChats(ctx context.Context, uid string) ([]models.ChatSummary, error)
	SoftDeleteChat(ctx context.Context, chatID, uid string) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, participants, last_message, deleted_by, updated_at, created_at`

// EnsureChat creates the canonical chat document for a pair if absent.
func (r *ChatRepo) EnsureChat(ctx context.Context, chatID string, participants []string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chats (id, participants)
        VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, chatID, pqArray(participants...))
	return err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, uid string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1 AND $2 = ANY(participants))`, chatID, uid)
	return exists, err
}

// ListChats returns chats visible to uid, most recently updated first, each
// annotated with the other participant. The ordered query is tried first; if
// it is rejected the list is fetched unordered and sorted here, so the
// subscription never fails outright.
func (r *ChatRepo) ListChats(ctx context.Context, uid string) ([]models.ChatSummary, error) {
	chats, err := r.listChats(ctx, uid, true)
	if err != nil {
		log.Printf("ordered chat query failed, retrying unordered: %v", err)
		chats, err = r.listChats(ctx, uid, false)
		if err != nil {
			return nil, err
		}
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, models.ChatSummary{Chat: chat, OtherUID: chat.OtherParticipant(uid)})
	}
	models.SortChatsByUpdated(summaries)
	return summaries, nil
}

func (r *ChatRepo) listChats(ctx context.Context, uid string, ordered bool) ([]models.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats
        WHERE $1 = ANY(participants) AND NOT ($1 = ANY(deleted_by))`
	if ordered {
		query += ` ORDER BY updated_at DESC`
	}
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, query, uid)
	return chats, err
}

// SoftDeleteChat idempotently adds uid to the chat's deletedBy set. The
// document itself is never removed by a one-sided delete.
func (r *ChatRepo) SoftDeleteChat(ctx context.Context, chatID, uid string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET deleted_by = array_append(deleted_by, $2)
        WHERE id=$1 AND NOT ($2 = ANY(deleted_by))`, chatID, uid)
	if err != nil {
		return err
	}
	if count, err := res.RowsAffected(); err != nil || count > 0 {
		return err
	}

	// Zero rows: either already hidden (fine) or the chat is missing.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1)`, chatID); err != nil {
		return err
	}
	if !exists {
		return ErrChatNotFound
	}
	return nil
}
