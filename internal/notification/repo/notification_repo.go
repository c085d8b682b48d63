package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification/entity"
)

type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, recipient_id, actor_id, kind, board_type, board_id, comment_id, message, read_at, created_at`

func (r *NotificationRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS notifications (
  id BIGINT PRIMARY KEY,
  recipient_id BIGINT NOT NULL,
  actor_id BIGINT NOT NULL,
  kind TEXT NOT NULL,
  board_type TEXT NOT NULL,
  board_id BIGINT NOT NULL,
  comment_id BIGINT,
  message TEXT NOT NULL DEFAULT '',
  read_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, id DESC);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts n with its pre-assigned id.
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	const q = `INSERT INTO notifications (id, recipient_id, actor_id, kind, board_type, board_id, comment_id, message, created_at)
		VALUES (:id, :recipient_id, :actor_id, :kind, :board_type, :board_id, :comment_id, :message, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, n)
	return err
}

func (r *NotificationRepo) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	var n entity.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient pages newest first; cursor 0 starts from the top.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID, cursor int64, limit int) ([]entity.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_id = $1 AND ($2::bigint = 0 OR id < $2::bigint)
		ORDER BY id DESC LIMIT $3`
	out := []entity.Notification{}
	if err := r.db.SelectContext(ctx, &out, q, recipientID, cursor, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead only sets read_at once.
func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = $2 WHERE id = $1 AND read_at IS NULL`, id, readAt)
	return err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`, recipientID)
	return n, err
}
