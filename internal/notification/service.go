package notification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

const CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is implemented by repo.NotificationRepo.
type Store interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	ListByRecipient(ctx context.Context, recipientID, cursor int64, limit int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
	CountUnread(ctx context.Context, recipientID int64) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, n entity.Notification) error
}

type NotificationService struct {
	store  Store
	pub    Publisher
	ids    utilities.IDGenerator
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewNotificationService builds the service. pub may be nil when Redis is not configured.
func NewNotificationService(store Store, pub Publisher, ids utilities.IDGenerator, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{store: store, pub: pub, ids: ids, logger: logger, now: time.Now}
}

// Input describes a notification to send.
type Input struct {
	RecipientID int64
	ActorID     int64
	Kind        entity.Kind
	BoardType   boardtype.Type
	BoardID     int64
	CommentID   *int64
	Message     string
}

// Send stores a notification and publishes it. Nothing is sent to yourself.
// A publish failure is only logged: the row is already stored.
func (s *NotificationService) Send(ctx context.Context, in Input) error {
	if in.RecipientID == 0 || in.RecipientID == in.ActorID {
		return nil
	}
	n := entity.Notification{
		ID:          s.ids.NextID(),
		RecipientID: in.RecipientID,
		ActorID:     in.ActorID,
		Kind:        in.Kind,
		BoardType:   in.BoardType,
		BoardID:     in.BoardID,
		CommentID:   in.CommentID,
		Message:     in.Message,
		CreatedAt:   s.now(),
	}
	if err := s.store.Create(ctx, &n); err != nil {
		return err
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, n); err != nil {
			s.logger.Warnw("publish notification failed", "notification_id", n.ID, "recipient_id", n.RecipientID, "err", err)
		}
	}
	return nil
}

// Page is a cursor page of notifications.
type Page struct {
	Items      []entity.Notification `json:"items"`
	HasMore    bool                  `json:"hasMore"`
	NextCursor *int64                `json:"nextCursor"`
	Unread     int                   `json:"unread"`
}

func (s *NotificationService) List(ctx context.Context, recipientID, cursor int64, size int) (Page, error) {
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	items, err := s.store.ListByRecipient(ctx, recipientID, cursor, size+1)
	if err != nil {
		return Page{}, err
	}
	p := Page{Items: items}
	if len(items) > size {
		p.Items = items[:size]
		p.HasMore = true
		last := p.Items[size-1].ID
		p.NextCursor = &last
	}
	unread, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return Page{}, err
	}
	p.Unread = unread
	return p, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id int64) (entity.Notification, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Notification{}, apperror.NotFound(CodeNotificationNotFound, "notification not found")
		}
		return entity.Notification{}, err
	}
	if n.RecipientID != recipientID {
		return entity.Notification{}, apperror.NotFound(CodeNotificationNotFound, "notification not found")
	}
	if n.IsRead() {
		return *n, nil
	}
	read := n.MarkRead(s.now())
	if err := s.store.MarkRead(ctx, read.ID, *read.ReadAt); err != nil {
		return entity.Notification{}, err
	}
	return read, nil
}
