package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
)

// Post is a row of `board_posts`. Free and code boards share the table and
// are told apart by board_type.
type Post struct {
	ID           int64          `db:"id" json:"id"`
	Type         boardtype.Type `db:"board_type" json:"boardType"`
	AuthorID     int64          `db:"author_id" json:"authorId"`
	Title        string         `db:"title" json:"title"`
	Content      string         `db:"content" json:"content"`
	Language     string         `db:"language" json:"language,omitempty"` // code boards only
	LikeCount    int            `db:"like_count" json:"likeCount"`
	CommentCount int            `db:"comment_count" json:"commentCount"`
	ViewCount    int            `db:"view_count" json:"viewCount"`
	IsDeleted    bool           `db:"is_deleted" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}
