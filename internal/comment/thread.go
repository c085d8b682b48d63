package comment

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
)

const (
	DefaultThreadSize = 20
	MaxThreadSize     = 100
)

// PageStore is the read side of repo.CommentRepo.
type PageStore interface {
	FetchTopLevel(ctx context.Context, t boardtype.Type, boardID, cursor int64, limit int) ([]entity.Comment, error)
	FindReplies(ctx context.Context, parentIDs []int64) ([]entity.Comment, error)
}

// Assembler builds comment threads: one page of top-level comments plus
// their direct replies.
type Assembler struct {
	store PageStore
}

func NewAssembler(store PageStore) *Assembler {
	return &Assembler{store: store}
}

// FetchPage returns top-level comments newest first with id < cursor (no
// bound when cursor is 0). One extra row is read to learn whether more
// pages exist.
func (a *Assembler) FetchPage(ctx context.Context, t boardtype.Type, boardID, cursor int64, size int) ([]entity.Comment, bool, error) {
	if size <= 0 {
		size = DefaultThreadSize
	}
	if size > MaxThreadSize {
		size = MaxThreadSize
	}
	rows, err := a.store.FetchTopLevel(ctx, t, boardID, cursor, size+1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) > size {
		return rows[:size], true, nil
	}
	return rows, false, nil
}

// AttachReplies groups the direct replies of parents by parent id, oldest
// first within each group.
func (a *Assembler) AttachReplies(ctx context.Context, parents []entity.Comment) (map[int64][]entity.Comment, error) {
	grouped := make(map[int64][]entity.Comment)
	if len(parents) == 0 {
		return grouped, nil
	}
	ids := make([]int64, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}
	replies, err := a.store.FindReplies(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range replies {
		if r.ParentID == nil {
			continue
		}
		grouped[*r.ParentID] = append(grouped[*r.ParentID], r)
	}
	return grouped, nil
}

// ThreadComment is a top-level comment with its replies.
type ThreadComment struct {
	entity.Comment
	Replies []entity.Comment `json:"replies"`
}

type Thread struct {
	Comments   []ThreadComment `json:"comments"`
	HasMore    bool            `json:"hasMore"`
	NextCursor *int64          `json:"nextCursor"`
}

// Thread assembles a page. Deleted comments keep their place with empty content.
func (a *Assembler) Thread(ctx context.Context, t boardtype.Type, boardID, cursor int64, size int) (Thread, error) {
	top, hasMore, err := a.FetchPage(ctx, t, boardID, cursor, size)
	if err != nil {
		return Thread{}, err
	}
	replies, err := a.AttachReplies(ctx, top)
	if err != nil {
		return Thread{}, err
	}
	th := Thread{Comments: make([]ThreadComment, 0, len(top)), HasMore: hasMore}
	for _, c := range top {
		tc := ThreadComment{Comment: c.Public(), Replies: make([]entity.Comment, 0, len(replies[c.ID]))}
		for _, r := range replies[c.ID] {
			tc.Replies = append(tc.Replies, r.Public())
		}
		th.Comments = append(th.Comments, tc)
	}
	if hasMore {
		last := top[len(top)-1].ID
		th.NextCursor = &last
	}
	return th, nil
}
