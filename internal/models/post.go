package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

// Comment is an entry in a post's ordered comment list.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentList is stored as a JSONB array on the post row.
type CommentList []Comment

func (l *CommentList) Scan(src interface{}) error {
	*l = CommentList{}
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported comments type %T", src)
	}
}

func (l CommentList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Post is visible to its author and the author's friends.
type Post struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"userId"`
	Caption   string         `db:"caption" json:"caption"`
	ImageURL  string         `db:"image_url" json:"imageURL"`
	Likes     pq.StringArray `db:"likes" json:"likes"`
	Comments  CommentList    `db:"comments" json:"comments"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// LikedBy reports membership of uid in the likes set.
func (p Post) LikedBy(uid string) bool {
	for _, l := range p.Likes {
		if l == uid {
			return true
		}
	}
	return false
}

// FilterPostsByAuthors keeps posts authored by any of the allowed uids,
// preserving order. The feed query is author-agnostic; visibility to
// self plus friends is enforced here.
func FilterPostsByAuthors(posts []Post, allowed []string) []Post {
	set := make(map[string]struct{}, len(allowed))
	for _, uid := range allowed {
		set[uid] = struct{}{}
	}
	filtered := make([]Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := set[p.UserID]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortPostsByCreated orders posts newest first; the fallback sort when the
// ordered feed query is unavailable.
func SortPostsByCreated(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
