package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrPostNotFound = errors.New("post not found")
var ErrNotPostOwner = errors.New("only the owner can delete a post")

// FeedLimit bounds how many recent posts a feed snapshot considers.
const FeedLimit = 50

// PostRepository abstracts post persistence.
type PostRepository interface {
	CreatePost(ctx context.Context, userID, caption string) (models.Post, error)
	GetPost(ctx context.Context, postID string) (models.Post, error)
	SetImageURL(ctx context.Context, postID, imageURL string) error
	DeleteRow(ctx context.Context, postID string) error
	DeletePost(ctx context.Context, postID, uid string) error
	ToggleLike(ctx context.Context, postID, uid string) (models.Post, error)
	AppendComment(ctx context.Context, postID, uid, text string) (models.Comment, error)
	ListRecent(ctx context.Context) ([]models.Post, error)
	ListByAuthor(ctx context.Context, userID string) ([]models.Post, error)
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db *sqlx.DB
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB) *PostRepo {
	return &PostRepo{db: db}
}

const postColumns = `id, user_id, caption, image_url, likes, comments, created_at`

// CreatePost stores the post row with an empty image URL; the image is
// uploaded and patched in afterwards so a failed upload can roll the row back.
func (r *PostRepo) CreatePost(ctx context.Context, userID, caption string) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `INSERT INTO posts (id, user_id, caption)
        VALUES ($1, $2, $3) RETURNING `+postColumns, uuid.NewString(), userID, caption)
	return post, err
}

// GetPost fetches a post by id.
func (r *PostRepo) GetPost(ctx context.Context, postID string) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	return post, err
}

// SetImageURL patches the uploaded image location into the post row.
func (r *PostRepo) SetImageURL(ctx context.Context, postID, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET image_url=$2 WHERE id=$1`, postID, imageURL)
	return err
}

// DeleteRow removes a post unconditionally. Used to roll back a post whose
// image upload failed.
func (r *PostRepo) DeleteRow(ctx context.Context, postID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, postID)
	return err
}

// DeletePost hard-deletes a post after verifying ownership.
func (r *PostRepo) DeletePost(ctx context.Context, postID, uid string) error {
	post, err := r.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != uid {
		return ErrNotPostOwner
	}
	return r.DeleteRow(ctx, postID)
}

// ToggleLike atomically flips uid's membership in the likes set.
func (r *PostRepo) ToggleLike(ctx context.Context, postID, uid string) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `UPDATE posts
        SET likes = CASE WHEN $2 = ANY(likes) THEN array_remove(likes, $2) ELSE array_append(likes, $2) END
        WHERE id=$1 RETURNING `+postColumns, postID, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	return post, err
}

// AppendComment appends a comment with a unique id to the post's list.
func (r *PostRepo) AppendComment(ctx context.Context, postID, uid, text string) (models.Comment, error) {
	comment := models.Comment{
		ID:        uuid.NewString(),
		UserID:    uid,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	entry, err := models.CommentList{comment}.Value()
	if err != nil {
		return models.Comment{}, err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE posts SET comments = comments || $2::jsonb WHERE id=$1`,
		postID, entry)
	if err != nil {
		return models.Comment{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Comment{}, err
	}
	if count == 0 {
		return models.Comment{}, ErrPostNotFound
	}
	return comment, nil
}

// ListRecent returns the newest posts regardless of author; feed visibility
// is filtered per viewer by the caller. Falls back to an unordered fetch
// sorted here if the ordered query is rejected.
func (r *PostRepo) ListRecent(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT $1`, FeedLimit)
	if err != nil {
		log.Printf("ordered feed query failed, retrying unordered: %v", err)
		if err = r.db.SelectContext(ctx, &posts,
			`SELECT `+postColumns+` FROM posts LIMIT $1`, FeedLimit); err != nil {
			return nil, err
		}
		models.SortPostsByCreated(posts)
	}
	return posts, nil
}

// ListByAuthor returns one author's posts, newest first.
func (r *PostRepo) ListByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts,
		`SELECT `+postColumns+` FROM posts WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	return posts, err
}
