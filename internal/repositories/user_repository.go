package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")
var ErrEmailTaken = errors.New("email already registered")

// UserRepository abstracts profile persistence.
type UserRepository interface {
	CreateAccount(ctx context.Context, profile models.UserProfile, passwordHash string) error
	CreateProfile(ctx context.Context, profile models.UserProfile) error
	GetByUID(ctx context.Context, uid string) (models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (models.UserProfile, string, error)
	SearchByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, displayName, photoURL *string) (models.UserProfile, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const profileColumns = `uid, email, display_name, photo_url, friends, created_at`

type userAccount struct {
	models.UserProfile
	PasswordHash string `db:"password_hash"`
}

// CreateAccount stores the credentials together with the profile document.
func (r *UserRepo) CreateAccount(ctx context.Context, profile models.UserProfile, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (uid, email, password_hash, display_name, photo_url, friends)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.UID, profile.Email, passwordHash, profile.DisplayName, profile.PhotoURL, profile.Friends)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// CreateProfile persists a profile document without credentials. Used when a
// signed-in principal has no profile row yet.
func (r *UserRepo) CreateProfile(ctx context.Context, profile models.UserProfile) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (uid, email, display_name, photo_url, friends)
        VALUES ($1, $2, $3, $4, $5) ON CONFLICT (uid) DO NOTHING`,
		profile.UID, profile.Email, profile.DisplayName, profile.PhotoURL, profile.Friends)
	return err
}

// GetByUID fetches a profile document.
func (r *UserRepo) GetByUID(ctx context.Context, uid string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM users WHERE uid=$1`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrUserNotFound
	}
	return profile, err
}

// GetByEmail fetches a profile and its password hash for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.UserProfile, string, error) {
	var account userAccount
	err := r.db.GetContext(ctx, &account, `SELECT `+profileColumns+`, password_hash FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, "", ErrUserNotFound
	}
	return account.UserProfile, account.PasswordHash, err
}

// SearchByEmailPrefix returns profiles whose email starts with prefix,
// lexically ordered. Short prefixes are rejected by the caller.
func (r *UserRepo) SearchByEmailPrefix(ctx context.Context, prefix string, limit int) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.SelectContext(ctx, &profiles,
		`SELECT `+profileColumns+` FROM users WHERE email LIKE $1 || '%' ORDER BY email LIMIT $2`,
		escapeLike(prefix), limit)
	return profiles, err
}

// UpdateProfile patches displayName and/or photoURL and returns the fresh
// projection so callers see the change without waiting for a live update.
func (r *UserRepo) UpdateProfile(ctx context.Context, uid string, displayName, photoURL *string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.GetContext(ctx, &profile, `UPDATE users
        SET display_name = COALESCE($2, display_name),
            photo_url = COALESCE($3, photo_url)
        WHERE uid=$1
        RETURNING `+profileColumns, uid, displayName, photoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrUserNotFound
	}
	return profile, err
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
