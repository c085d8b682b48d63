package comment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	boardentity "github.com/ovaphlow/pitchfork/service-community-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/like"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification"
	notificationentity "github.com/ovaphlow/pitchfork/service-community-go/internal/notification/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

const (
	CodeCommentNotFound  = "COMMENT_NOT_FOUND"
	CodeNotCommentAuthor = "NOT_COMMENT_AUTHOR"
	CodeCommentDeleted   = "COMMENT_ALREADY_DELETED"
	CodeDepthExceeded    = "COMMENT_DEPTH_EXCEEDED"
	CodeParentMismatch   = "PARENT_COMMENT_MISMATCH"
	CodeParentDeleted    = "PARENT_COMMENT_DELETED"
)

const notificationSnippetLen = 80

// Store is implemented by repo.CommentRepo.
type Store interface {
	PageStore
	Create(ctx context.Context, c *entity.Comment) error
	GetByID(ctx context.Context, id int64) (*entity.Comment, error)
	UpdateContent(ctx context.Context, c entity.Comment) (bool, error)
	SoftDelete(ctx context.Context, c entity.Comment) (bool, error)
	AdjustLikeCount(ctx context.Context, id int64, delta int) error
}

// Boards is the part of board.BoardService comments depend on.
type Boards interface {
	Lookup(ctx context.Context, t boardtype.Type, id int64) (*boardentity.Post, error)
	AdjustCommentCount(ctx context.Context, t boardtype.Type, id int64, delta int) error
}

type Notifier interface {
	Send(ctx context.Context, in notification.Input) error
}

type CommentService struct {
	store    Store
	boards   Boards
	notifier Notifier
	ids      utilities.IDGenerator
	threads  *Assembler
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewCommentService(store Store, boards Boards, notifier Notifier, ids utilities.IDGenerator, logger *zap.SugaredLogger) *CommentService {
	return &CommentService{
		store:    store,
		boards:   boards,
		notifier: notifier,
		ids:      ids,
		threads:  NewAssembler(store),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInput is the body of a new comment or reply.
type CreateInput struct {
	BoardType string `json:"boardType" validate:"required"`
	BoardID   int64  `json:"boardId" validate:"required"`
	ParentID  *int64 `json:"parentId"`
	Content   string `json:"content" validate:"required,max=2000"`
}

func (s *CommentService) Create(ctx context.Context, authorID int64, in CreateInput) (*entity.Comment, error) {
	t, err := boardtype.Parse(in.BoardType)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	post, err := s.boards.Lookup(ctx, t, in.BoardID)
	if err != nil {
		return nil, err
	}

	var parent *entity.Comment
	if in.ParentID != nil {
		parent, err = s.get(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if err := entity.CanReplyTo(*parent, t, in.BoardID); err != nil {
			return nil, commentError(err)
		}
	}

	now := s.now()
	c := &entity.Comment{
		ID:        s.ids.NextID(),
		BoardType: t,
		BoardID:   in.BoardID,
		ParentID:  in.ParentID,
		AuthorID:  authorID,
		Content:   strings.TrimSpace(in.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.boards.AdjustCommentCount(ctx, t, in.BoardID, 1); err != nil {
		s.logger.Warnw("increment comment count failed", "board_type", t, "board_id", in.BoardID, "err", err)
	}
	s.notify(ctx, c, post, parent)
	return c, nil
}

// notify tells the parent's author about a reply, or the board author about
// a top-level comment.
func (s *CommentService) notify(ctx context.Context, c *entity.Comment, post *boardentity.Post, parent *entity.Comment) {
	if s.notifier == nil {
		return
	}
	in := notification.Input{
		ActorID:   c.AuthorID,
		BoardType: c.BoardType,
		BoardID:   c.BoardID,
		CommentID: &c.ID,
		Message:   snippet(c.Content),
	}
	if parent != nil {
		in.RecipientID = parent.AuthorID
		in.Kind = notificationentity.KindReply
	} else {
		in.RecipientID = post.AuthorID
		in.Kind = notificationentity.KindComment
	}
	if err := s.notifier.Send(ctx, in); err != nil {
		s.logger.Warnw("send comment notification failed", "comment_id", c.ID, "recipient_id", in.RecipientID, "err", err)
	}
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= notificationSnippetLen {
		return s
	}
	return string(r[:notificationSnippetLen]) + "..."
}

type UpdateInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (s *CommentService) Update(ctx context.Context, authorID, id int64, in UpdateInput) (*entity.Comment, error) {
	c, err := s.owned(ctx, authorID, id)
	if err != nil {
		return nil, err
	}
	edited, err := c.Edit(strings.TrimSpace(in.Content), s.now())
	if err != nil {
		return nil, commentError(err)
	}
	ok, err := s.store.UpdateContent(ctx, edited)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, commentError(entity.ErrDeleted)
	}
	return &edited, nil
}

func (s *CommentService) Delete(ctx context.Context, authorID, id int64) error {
	c, err := s.owned(ctx, authorID, id)
	if err != nil {
		return err
	}
	deleted, err := c.SoftDelete(s.now())
	if err != nil {
		return commentError(err)
	}
	ok, err := s.store.SoftDelete(ctx, deleted)
	if err != nil {
		return err
	}
	if !ok {
		return commentError(entity.ErrDeleted)
	}
	if err := s.boards.AdjustCommentCount(ctx, c.BoardType, c.BoardID, -1); err != nil {
		s.logger.Warnw("decrement comment count failed", "board_type", c.BoardType, "board_id", c.BoardID, "err", err)
	}
	s.logger.Infow("comment deleted", "comment_id", id)
	return nil
}

// Thread returns one page of a board's comment thread.
func (s *CommentService) Thread(ctx context.Context, boardType string, boardID, cursor int64, size int) (Thread, error) {
	t, err := boardtype.Parse(boardType)
	if err != nil {
		return Thread{}, apperror.Validation(err.Error())
	}
	return s.threads.Thread(ctx, t, boardID, cursor, size)
}

// Owner locates a live comment for the like toggle.
func (s *CommentService) Owner(ctx context.Context, id int64) (like.Owner, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return like.Owner{}, err
	}
	if c.IsDeleted {
		return like.Owner{}, commentError(entity.ErrDeleted)
	}
	return like.Owner{AuthorID: c.AuthorID, BoardType: c.BoardType, BoardID: c.BoardID, CommentID: &c.ID}, nil
}

func (s *CommentService) AdjustLikeCount(ctx context.Context, id int64, delta int) error {
	return s.store.AdjustLikeCount(ctx, id, delta)
}

func (s *CommentService) get(ctx context.Context, id int64) (*entity.Comment, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(CodeCommentNotFound, "comment not found")
		}
		return nil, err
	}
	return c, nil
}

func (s *CommentService) owned(ctx context.Context, authorID, id int64) (*entity.Comment, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != authorID {
		return nil, apperror.BusinessRule(CodeNotCommentAuthor, "only the author can change this comment")
	}
	return c, nil
}

func commentError(err error) error {
	switch {
	case errors.Is(err, entity.ErrDepthExceeded):
		return apperror.BusinessRule(CodeDepthExceeded, "replies to replies are not allowed")
	case errors.Is(err, entity.ErrParentMismatch):
		return apperror.BusinessRule(CodeParentMismatch, "parent comment belongs to another board")
	case errors.Is(err, entity.ErrParentDeleted):
		return apperror.BusinessRule(CodeParentDeleted, "parent comment is deleted")
	case errors.Is(err, entity.ErrDeleted):
		return apperror.BusinessRule(CodeCommentDeleted, "comment is already deleted")
	default:
		return err
	}
}
