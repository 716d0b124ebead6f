package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrRequestNotFound = errors.New("friend request not found")
var ErrDuplicateRequest = errors.New("friend request already exists")

// FriendRepository abstracts the friend graph.
type FriendRepository interface {
	SendRequest(ctx context.Context, from, to string) (models.FriendRequest, error)
	GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID, from, to string) error
	RejectRequest(ctx context.Context, requestID string) error
	ListIncomingPending(ctx context.Context, uid string) ([]models.FriendRequest, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

const requestColumns = `id, from_uid, to_uid, status, created_at`

// SendRequest creates a pending request unless one already exists in either
// direction. Rejected requests do not block a new attempt. A partial unique
// index on the sorted pair backs this up, so two concurrent sends cannot
// both slip past the existence check.
func (r *FriendRepo) SendRequest(ctx context.Context, from, to string) (models.FriendRequest, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM friend_requests
        WHERE ((from_uid=$1 AND to_uid=$2) OR (from_uid=$2 AND to_uid=$1))
        AND status <> $3)`, from, to, models.RequestRejected)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if exists {
		return models.FriendRequest{}, ErrDuplicateRequest
	}

	var req models.FriendRequest
	err = r.db.GetContext(ctx, &req, `INSERT INTO friend_requests (id, from_uid, to_uid, status)
        VALUES ($1, $2, $3, $4) RETURNING `+requestColumns,
		uuid.NewString(), from, to, models.RequestPending)
	if isUniqueViolation(err) {
		return models.FriendRequest{}, ErrDuplicateRequest
	}
	return req, err
}

// GetRequest fetches a single request.
func (r *FriendRepo) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM friend_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	return req, err
}

// AcceptRequest commits the whole acceptance in one transaction: the request
// reaches its terminal status, each uid joins the other's friends set, and
// the canonical chat document for the pair exists afterwards.
func (r *FriendRepo) AcceptRequest(ctx context.Context, requestID, from, to string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE friend_requests SET status=$2 WHERE id=$1 AND status=$3`,
		requestID, models.RequestAccepted, models.RequestPending)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}

	// Idempotent union, no duplicates even under concurrent accepts.
	for _, pair := range [][2]string{{from, to}, {to, from}} {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET friends = array_append(friends, $2)
            WHERE uid=$1 AND NOT ($2 = ANY(friends))`, pair[0], pair[1]); err != nil {
			return err
		}
	}

	chatID := models.ChatID(from, to)
	if _, err := tx.ExecContext(ctx, `INSERT INTO chats (id, participants)
        VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		chatID, pqArray(from, to)); err != nil {
		return err
	}

	return tx.Commit()
}

// RejectRequest sets the terminal rejected status; the graph is untouched.
func (r *FriendRepo) RejectRequest(ctx context.Context, requestID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE friend_requests SET status=$2 WHERE id=$1`,
		requestID, models.RequestRejected)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListIncomingPending returns pending requests addressed to uid, oldest first.
func (r *FriendRepo) ListIncomingPending(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.SelectContext(ctx, &requests, `SELECT `+requestColumns+` FROM friend_requests
        WHERE to_uid=$1 AND status=$2 ORDER BY created_at ASC`, uid, models.RequestPending)
	return requests, err
}
