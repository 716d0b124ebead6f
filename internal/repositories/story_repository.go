package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrStoryNotFound = errors.New("story not found")
var ErrNotStoryOwner = errors.New("only the owner can delete a story")

// ActiveStoriesLimit bounds how many non-expired stories a friends feed
// snapshot considers.
const ActiveStoriesLimit = 100

// StoryRepository abstracts story persistence.
type StoryRepository interface {
	CreateStory(ctx context.Context, userID, mediaType, caption string) (models.Story, error)
	SetMediaURL(ctx context.Context, storyID, mediaURL string) error
	DeleteRow(ctx context.Context, storyID string) error
	DeleteStory(ctx context.Context, storyID, uid string) error
	ListOwn(ctx context.Context, userID string) ([]models.Story, error)
	ListActive(ctx context.Context) ([]models.Story, error)
	MarkViewed(ctx context.Context, storyID, viewerID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

// StoryRepo is a sqlx implementation of StoryRepository.
type StoryRepo struct {
	db *sqlx.DB
}

// NewStoryRepo constructs a StoryRepo.
func NewStoryRepo(db *sqlx.DB) *StoryRepo {
	return &StoryRepo{db: db}
}

const storyColumns = `id, user_id, media_url, media_type, caption, views, view_count, created_at, expires_at`

// CreateStory stores the story row with its fixed expiry; the media is
// uploaded and patched in afterwards.
func (r *StoryRepo) CreateStory(ctx context.Context, userID, mediaType, caption string) (models.Story, error) {
	now := time.Now().UTC()
	var story models.Story
	err := r.db.GetContext(ctx, &story, `INSERT INTO stories (id, user_id, media_type, caption, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+storyColumns,
		uuid.NewString(), userID, mediaType, caption, now, now.Add(models.StoryTTL))
	return story, err
}

// SetMediaURL patches the uploaded media location into the story row.
func (r *StoryRepo) SetMediaURL(ctx context.Context, storyID, mediaURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE stories SET media_url=$2 WHERE id=$1`, storyID, mediaURL)
	return err
}

// DeleteRow removes a story unconditionally; the rollback path for a failed
// media upload.
func (r *StoryRepo) DeleteRow(ctx context.Context, storyID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id=$1`, storyID)
	return err
}

// DeleteStory removes a story early after verifying ownership.
func (r *StoryRepo) DeleteStory(ctx context.Context, storyID, uid string) error {
	var story models.Story
	err := r.db.GetContext(ctx, &story, `SELECT `+storyColumns+` FROM stories WHERE id=$1`, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStoryNotFound
	}
	if err != nil {
		return err
	}
	if story.UserID != uid {
		return ErrNotStoryOwner
	}
	return r.DeleteRow(ctx, storyID)
}

// ListOwn returns the author's non-expired stories, oldest first.
func (r *StoryRepo) ListOwn(ctx context.Context, userID string) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.SelectContext(ctx, &stories, `SELECT `+storyColumns+` FROM stories
        WHERE user_id=$1 AND expires_at > NOW() ORDER BY created_at ASC`, userID)
	return stories, err
}

// ListActive returns the most recent non-expired stories of all authors;
// the caller filters to the viewer's friends.
func (r *StoryRepo) ListActive(ctx context.Context) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.SelectContext(ctx, &stories, `SELECT `+storyColumns+` FROM stories
        WHERE expires_at > NOW() ORDER BY created_at DESC LIMIT $1`, ActiveStoriesLimit)
	return stories, err
}

// MarkViewed records the first view per viewer: the views union and the
// counter increment happen in one statement, so repeat calls are no-ops.
func (r *StoryRepo) MarkViewed(ctx context.Context, storyID, viewerID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stories
        SET views = array_append(views, $2), view_count = view_count + 1
        WHERE id=$1 AND NOT ($2 = ANY(views))`, storyID, viewerID)
	if err != nil {
		return err
	}
	if count, err := res.RowsAffected(); err != nil || count > 0 {
		return err
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM stories WHERE id=$1)`, storyID); err != nil {
		return err
	}
	if !exists {
		return ErrStoryNotFound
	}
	return nil
}

// SweepExpired hard-deletes stories past expiry. Query-side filtering is the
// primary enforcement; this is cleanup only.
func (r *StoryRepo) SweepExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
