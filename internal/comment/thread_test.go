package comment

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment/entity"
)

// memPages answers the two read queries of repo.CommentRepo from a slice.
type memPages struct {
	rows         []entity.Comment
	replyQueries int
}

func (m *memPages) FetchTopLevel(ctx context.Context, t boardtype.Type, boardID, cursor int64, limit int) ([]entity.Comment, error) {
	out := []entity.Comment{}
	for _, c := range m.rows {
		if c.BoardType == t && c.BoardID == boardID && c.ParentID == nil && (cursor == 0 || c.ID < cursor) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPages) FindReplies(ctx context.Context, parentIDs []int64) ([]entity.Comment, error) {
	m.replyQueries++
	want := map[int64]bool{}
	for _, id := range parentIDs {
		want[id] = true
	}
	out := []entity.Comment{}
	for _, c := range m.rows {
		if c.ParentID != nil && want[*c.ParentID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func topLevel(ids ...int64) []entity.Comment {
	out := make([]entity.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.Comment{ID: id, BoardType: boardtype.Free, BoardID: 1, Content: "c"})
	}
	return out
}

func ids(cs []entity.Comment) []int64 {
	out := []int64{}
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestFetchPageCursor(t *testing.T) {
	ctx := context.Background()
	a := NewAssembler(&memPages{rows: topLevel(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)})

	page, more, err := a.FetchPage(ctx, boardtype.Free, 1, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2}, ids(page))
	assert.True(t, more)

	page, more, err = a.FetchPage(ctx, boardtype.Free, 1, 1, 3)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, more)

	page, more, err = a.FetchPage(ctx, boardtype.Free, 1, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 9, 8}, ids(page))
	assert.True(t, more)

	page, more, err = a.FetchPage(ctx, boardtype.Free, 1, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(page))
	assert.False(t, more, "exactly size rows left")
}

func TestFetchPageEmptyBoardAndUnknownCursor(t *testing.T) {
	ctx := context.Background()
	a := NewAssembler(&memPages{rows: topLevel(1, 2, 3)})

	page, more, err := a.FetchPage(ctx, boardtype.Code, 1, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, more)

	// 1000 is not a comment id; the cursor is only a bound
	page, _, err = a.FetchPage(ctx, boardtype.Free, 1, 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids(page))
}

func TestAttachReplies(t *testing.T) {
	ctx := context.Background()
	parent := func(id int64) *int64 { return &id }
	rows := append(topLevel(1, 2),
		entity.Comment{ID: 5, BoardType: boardtype.Free, BoardID: 1, ParentID: parent(1)},
		entity.Comment{ID: 3, BoardType: boardtype.Free, BoardID: 1, ParentID: parent(1)},
		entity.Comment{ID: 4, BoardType: boardtype.Free, BoardID: 1, ParentID: parent(2)},
	)
	store := &memPages{rows: rows}
	a := NewAssembler(store)

	grouped, err := a.AttachReplies(ctx, topLevel(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, ids(grouped[1]))
	assert.Equal(t, []int64{4}, ids(grouped[2]))
	assert.Equal(t, 1, store.replyQueries, "one batch query")

	grouped, err = a.AttachReplies(ctx, topLevel(7))
	require.NoError(t, err)
	assert.NotNil(t, grouped)
	assert.Empty(t, grouped)

	grouped, err = a.AttachReplies(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, grouped)
}

func TestThreadHidesDeletedContent(t *testing.T) {
	ctx := context.Background()
	one := int64(1)
	rows := topLevel(1, 2, 3)
	rows[0].IsDeleted = true
	rows = append(rows, entity.Comment{ID: 4, BoardType: boardtype.Free, BoardID: 1, ParentID: &one, Content: "reply", IsDeleted: true})
	a := NewAssembler(&memPages{rows: rows})

	th, err := a.Thread(ctx, boardtype.Free, 1, 0, 2)
	require.NoError(t, err)
	require.Len(t, th.Comments, 2)
	assert.True(t, th.HasMore)
	require.NotNil(t, th.NextCursor)
	assert.Equal(t, int64(2), *th.NextCursor)

	th, err = a.Thread(ctx, boardtype.Free, 1, *th.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, th.Comments, 1)
	assert.False(t, th.HasMore)
	assert.Nil(t, th.NextCursor)

	c := th.Comments[0]
	assert.Equal(t, int64(1), c.ID)
	assert.True(t, c.IsDeleted)
	assert.Empty(t, c.Content)
	require.Len(t, c.Replies, 1)
	assert.Empty(t, c.Replies[0].Content)
}
