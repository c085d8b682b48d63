package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
)

// Kind says what happened to the recipient's content.
type Kind string

const (
	KindComment Kind = "COMMENT" // someone commented on your board
	KindReply   Kind = "REPLY"   // someone replied to your comment
	KindLike    Kind = "LIKE"
)

type Notification struct {
	ID          int64          `db:"id" json:"id"`
	RecipientID int64          `db:"recipient_id" json:"recipientId"`
	ActorID     int64          `db:"actor_id" json:"actorId"`
	Kind        Kind           `db:"kind" json:"kind"`
	BoardType   boardtype.Type `db:"board_type" json:"boardType"`
	BoardID     int64          `db:"board_id" json:"boardId"`
	CommentID   *int64         `db:"comment_id" json:"commentId,omitempty"`
	Message     string         `db:"message" json:"message"`
	ReadAt      *time.Time     `db:"read_at" json:"readAt"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

func (n Notification) IsRead() bool { return n.ReadAt != nil }

// MarkRead returns a read copy. The first read time is kept.
func (n Notification) MarkRead(now time.Time) Notification {
	if n.ReadAt != nil {
		return n
	}
	n.ReadAt = &now
	return n
}
