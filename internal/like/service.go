package like

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification/entity"
)

// Store is implemented by repo.LikeRepo.
type Store interface {
	Insert(ctx context.Context, accountID int64, targetType string, targetID int64) (bool, error)
	Delete(ctx context.Context, accountID int64, targetType string, targetID int64) (bool, error)
}

// TargetStore is what each likeable kind provides.
type TargetStore interface {
	Owner(ctx context.Context, id int64) (Owner, error)
	AdjustLikeCount(ctx context.Context, id int64, delta int) error
}

type Notifier interface {
	Send(ctx context.Context, in notification.Input) error
}

type LikeService struct {
	store    Store
	targets  map[Target]TargetStore
	notifier Notifier
	logger   *zap.SugaredLogger
}

// NewLikeService needs a TargetStore for every Target.
func NewLikeService(store Store, targets map[Target]TargetStore, notifier Notifier, logger *zap.SugaredLogger) (*LikeService, error) {
	for _, t := range Targets {
		if targets[t] == nil {
			return nil, fmt.Errorf("no like target store for %q", t)
		}
	}
	return &LikeService{store: store, targets: targets, notifier: notifier, logger: logger}, nil
}

// Toggle likes the target, or removes the like when it exists. It returns
// the resulting state. Each step is a single statement so concurrent toggles
// cannot double count.
func (s *LikeService) Toggle(ctx context.Context, accountID int64, target Target, id int64) (bool, error) {
	ts, ok := s.targets[target]
	if !ok {
		return false, fmt.Errorf("unknown like target %q", target)
	}
	owner, err := ts.Owner(ctx, id)
	if err != nil {
		return false, err
	}

	inserted, err := s.store.Insert(ctx, accountID, string(target), id)
	if err != nil {
		return false, err
	}
	if inserted {
		s.adjust(ctx, ts, target, id, 1)
		s.notify(ctx, accountID, owner)
		return true, nil
	}

	removed, err := s.store.Delete(ctx, accountID, string(target), id)
	if err != nil {
		return false, err
	}
	if removed {
		s.adjust(ctx, ts, target, id, -1)
	}
	return false, nil
}

func (s *LikeService) adjust(ctx context.Context, ts TargetStore, target Target, id int64, delta int) {
	if err := ts.AdjustLikeCount(ctx, id, delta); err != nil {
		s.logger.Warnw("adjust like count failed", "target", target, "target_id", id, "delta", delta, "err", err)
	}
}

func (s *LikeService) notify(ctx context.Context, actorID int64, o Owner) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Input{
		RecipientID: o.AuthorID,
		ActorID:     actorID,
		Kind:        entity.KindLike,
		BoardType:   o.BoardType,
		BoardID:     o.BoardID,
		CommentID:   o.CommentID,
	})
	if err != nil {
		s.logger.Warnw("send like notification failed", "recipient_id", o.AuthorID, "err", err)
	}
}
