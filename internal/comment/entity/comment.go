package entity

import (
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
)

var (
	ErrDeleted        = errors.New("comment is deleted")
	ErrDepthExceeded  = errors.New("replies to replies are not allowed")
	ErrParentMismatch = errors.New("parent comment belongs to another board")
	ErrParentDeleted  = errors.New("parent comment is deleted")
)

// Comment is a row of `comments`. A nil ParentID marks a top-level comment.
type Comment struct {
	ID        int64          `db:"id" json:"id"`
	BoardType boardtype.Type `db:"board_type" json:"boardType"`
	BoardID   int64          `db:"board_id" json:"boardId"`
	ParentID  *int64         `db:"parent_id" json:"parentId"`
	AuthorID  int64          `db:"author_id" json:"authorId"`
	Content   string         `db:"content" json:"content"`
	LikeCount int            `db:"like_count" json:"likeCount"`
	IsDeleted bool           `db:"is_deleted" json:"isDeleted"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

func (c Comment) IsReply() bool { return c.ParentID != nil }

// CanReplyTo checks that parent may take a reply on the given board. Only
// top-level comments take replies, so a thread is at most two levels deep.
func CanReplyTo(parent Comment, t boardtype.Type, boardID int64) error {
	if parent.BoardType != t || parent.BoardID != boardID {
		return ErrParentMismatch
	}
	if parent.IsReply() {
		return ErrDepthExceeded
	}
	if parent.IsDeleted {
		return ErrParentDeleted
	}
	return nil
}

// Edit returns a copy with new content.
func (c Comment) Edit(content string, now time.Time) (Comment, error) {
	if c.IsDeleted {
		return c, ErrDeleted
	}
	c.Content = content
	c.UpdatedAt = now
	return c, nil
}

// SoftDelete returns the deleted copy. Replies are left alone.
func (c Comment) SoftDelete(now time.Time) (Comment, error) {
	if c.IsDeleted {
		return c, ErrDeleted
	}
	c.IsDeleted = true
	c.UpdatedAt = now
	return c, nil
}

// Public is the value shown in a thread: a deleted comment keeps its place
// but not its content.
func (c Comment) Public() Comment {
	if c.IsDeleted {
		c.Content = ""
	}
	return c
}
