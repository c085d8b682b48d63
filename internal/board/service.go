package board

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/board/entity"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/like"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
)

const (
	CodeBoardNotFound = "BOARD_NOT_FOUND"
	CodeNotAuthor     = "NOT_BOARD_AUTHOR"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Store is implemented by repo.PostRepo.
type Store interface {
	List(ctx context.Context, t boardtype.Type, limit, offset int) ([]entity.Post, error)
	Count(ctx context.Context, t boardtype.Type) (int, error)
	GetByID(ctx context.Context, t boardtype.Type, id int64) (*entity.Post, error)
	IncrementView(ctx context.Context, t boardtype.Type, id int64) error
	Create(ctx context.Context, p *entity.Post) (int64, error)
	Update(ctx context.Context, p *entity.Post) (bool, error)
	SoftDelete(ctx context.Context, t boardtype.Type, id, authorID int64) (bool, error)
	AdjustLikeCount(ctx context.Context, t boardtype.Type, id int64, delta int) error
	AdjustCommentCount(ctx context.Context, t boardtype.Type, id int64, delta int) error
}

type BoardService struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewBoardService(store Store, logger *zap.SugaredLogger) *BoardService {
	return &BoardService{store: store, logger: logger}
}

// Page is one offset page of posts.
type Page struct {
	Items []entity.Post `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// NormalizePage clamps 1-based page and size to sane bounds.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func (s *BoardService) List(ctx context.Context, t boardtype.Type, page, size int) (Page, error) {
	page, size = NormalizePage(page, size)
	items, err := s.store.List(ctx, t, size, (page-1)*size)
	if err != nil {
		return Page{}, err
	}
	total, err := s.store.Count(ctx, t)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// Lookup returns a live post without touching its view count.
func (s *BoardService) Lookup(ctx context.Context, t boardtype.Type, id int64) (*entity.Post, error) {
	p, err := s.store.GetByID(ctx, t, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(CodeBoardNotFound, "board not found")
		}
		return nil, err
	}
	return p, nil
}

// Get returns the post detail and counts the view.
func (s *BoardService) Get(ctx context.Context, t boardtype.Type, id int64) (*entity.Post, error) {
	p, err := s.Lookup(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.IncrementView(ctx, t, id); err != nil {
		s.logger.Warnw("increment view count failed", "board_type", t, "board_id", id, "err", err)
	} else {
		p.ViewCount++
	}
	return p, nil
}

type CreateInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Language string `json:"language" validate:"max=30"`
}

func (s *BoardService) Create(ctx context.Context, t boardtype.Type, authorID int64, in CreateInput) (*entity.Post, error) {
	p := &entity.Post{
		Type:     t,
		AuthorID: authorID,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
	}
	if t == boardtype.Code {
		p.Language = strings.TrimSpace(in.Language)
	}
	if _, err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Infow("board created", "board_type", t, "board_id", p.ID, "author_id", authorID)
	return p, nil
}

type UpdateInput struct {
	ID       int64  `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Language string `json:"language" validate:"max=30"`
}

func (s *BoardService) Update(ctx context.Context, t boardtype.Type, authorID int64, in UpdateInput) (*entity.Post, error) {
	p, err := s.owned(ctx, t, in.ID, authorID)
	if err != nil {
		return nil, err
	}
	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	if t == boardtype.Code {
		p.Language = strings.TrimSpace(in.Language)
	}
	ok, err := s.store.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound(CodeBoardNotFound, "board not found")
	}
	return p, nil
}

func (s *BoardService) Delete(ctx context.Context, t boardtype.Type, authorID, id int64) error {
	if _, err := s.owned(ctx, t, id, authorID); err != nil {
		return err
	}
	ok, err := s.store.SoftDelete(ctx, t, id, authorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound(CodeBoardNotFound, "board not found")
	}
	s.logger.Infow("board deleted", "board_type", t, "board_id", id)
	return nil
}

func (s *BoardService) owned(ctx context.Context, t boardtype.Type, id, authorID int64) (*entity.Post, error) {
	p, err := s.Lookup(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != authorID {
		return nil, apperror.BusinessRule(CodeNotAuthor, "only the author can change this board")
	}
	return p, nil
}

// AdjustCommentCount keeps the denormalized comment counter in step.
func (s *BoardService) AdjustCommentCount(ctx context.Context, t boardtype.Type, id int64, delta int) error {
	return s.store.AdjustCommentCount(ctx, t, id, delta)
}

// LikeTarget adapts one board type to the like toggle.
type LikeTarget struct {
	svc *BoardService
	t   boardtype.Type
}

func (s *BoardService) LikeTarget(t boardtype.Type) LikeTarget {
	return LikeTarget{svc: s, t: t}
}

// Owner returns the author of a live post.
func (l LikeTarget) Owner(ctx context.Context, id int64) (like.Owner, error) {
	p, err := l.svc.Lookup(ctx, l.t, id)
	if err != nil {
		return like.Owner{}, err
	}
	return like.Owner{AuthorID: p.AuthorID, BoardType: p.Type, BoardID: p.ID}, nil
}

func (l LikeTarget) AdjustLikeCount(ctx context.Context, id int64, delta int) error {
	return l.svc.store.AdjustLikeCount(ctx, l.t, id, delta)
}
