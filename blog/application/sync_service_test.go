package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*SyncService, *memStore, Layout) {
	t.Helper()
	store := newMemStore()
	layout := NewLayout("")
	return NewSyncService(store, layout, zerolog.Nop()), store, layout
}

func decodePost(t *testing.T, payload string) *domain.Post {
	t.Helper()
	var post domain.Post
	require.NoError(t, json.Unmarshal([]byte(payload), &post))
	return &post
}

func TestSyncService_UpsertPostWritesPostBeforeIndex(t *testing.T) {
	svc, store, layout := newTestService(t)
	post := decodePost(t, `{"id":1,"slug":"hello","title":"Hello","status":"publish","publication_date":100,"custom":"kept"}`)

	require.NoError(t, svc.UpsertPost(context.Background(), post))

	assert.Equal(t, []string{layout.PostPath("hello"), layout.PostsIndexPath()}, store.writes)

	var stored map[string]any
	store.getJSON(t, layout.PostPath("hello"), &stored)
	assert.Equal(t, "kept", stored["custom"])

	var index []map[string]any
	store.getJSON(t, layout.PostsIndexPath(), &index)
	require.Len(t, index, 1)
	assert.Equal(t, float64(1), index[0]["id"])
	assert.Equal(t, "hello", index[0]["slug"])
	assert.NotContains(t, index[0], "custom")
}

func TestSyncService_UpsertPostKeepsIndexOrdered(t *testing.T) {
	svc, store, layout := newTestService(t)
	store.putJSON(t, layout.PostsIndexPath(), PostsIndex{entry("2", 200), entry("1", 100)})

	require.NoError(t, svc.UpsertPost(context.Background(), publishedPost("3", 150)))

	posts, err := svc.Posts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1"}, ids(posts))
}

func TestSyncService_UpsertPostIsIdempotent(t *testing.T) {
	svc, store, layout := newTestService(t)
	post := publishedPost("1", 100)

	require.NoError(t, svc.UpsertPost(context.Background(), post))
	first, err := store.Read(context.Background(), layout.PostsIndexPath())
	require.NoError(t, err)

	require.NoError(t, svc.UpsertPost(context.Background(), post))
	second, err := store.Read(context.Background(), layout.PostsIndexPath())
	require.NoError(t, err)

	assert.Equal(t, string(first.Content), string(second.Content))
}

func TestSyncService_UpsertDraftLeavesIndexAlone(t *testing.T) {
	svc, store, layout := newTestService(t)
	draft := publishedPost("1", 100)
	draft.Status = domain.StatusDraft

	require.NoError(t, svc.UpsertPost(context.Background(), draft))

	assert.True(t, store.has(layout.PostPath("post-1")))
	assert.False(t, store.has(layout.PostsIndexPath()))
}

func TestSyncService_UpsertDraftDemotesPublishedPost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPost(ctx, publishedPost("1", 100)))
	require.NoError(t, svc.UpsertPost(ctx, publishedPost("2", 200)))

	draft := publishedPost("1", 100)
	draft.Status = domain.StatusDraft
	require.NoError(t, svc.UpsertPost(ctx, draft))

	posts, err := svc.Posts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(posts))
}

func TestSyncService_UpsertPostRemovesOldSlug(t *testing.T) {
	svc, store, layout := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPost(ctx, publishedPost("1", 100)))

	renamed := publishedPost("1", 100)
	renamed.Slug = "new-slug"
	require.NoError(t, svc.UpsertPost(ctx, renamed))

	assert.False(t, store.has(layout.PostPath("post-1")))
	assert.True(t, store.has(layout.PostPath("new-slug")))

	posts, err := svc.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "new-slug", posts[0].Slug)
}

func TestSyncService_UpsertPostRejectsBadSlug(t *testing.T) {
	svc, store, _ := newTestService(t)
	post := publishedPost("1", 100)
	post.Slug = "../escape"

	err := svc.UpsertPost(context.Background(), post)

	assert.ErrorIs(t, err, ErrInvalidSlug)
	assert.Empty(t, store.writes)
}

func TestSyncService_UpsertPostIndexConflict(t *testing.T) {
	svc, store, layout := newTestService(t)
	store.failOn["write:"+layout.PostsIndexPath()] = &domain.ConflictError{Path: layout.PostsIndexPath()}

	err := svc.UpsertPost(context.Background(), publishedPost("1", 100))

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, store.has(layout.PostPath("post-1")), "post object is written before the index")
}

func TestSyncService_DeletePost(t *testing.T) {
	tests := []struct {
		name string
		slug string
	}{
		{name: "slug from payload", slug: "post-1"},
		{name: "slug from index", slug: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, layout := newTestService(t)
			ctx := context.Background()
			require.NoError(t, svc.UpsertPost(ctx, publishedPost("1", 100)))
			require.NoError(t, svc.UpsertPost(ctx, publishedPost("2", 200)))

			require.NoError(t, svc.DeletePost(ctx, domain.NewID("1"), tt.slug))

			assert.False(t, store.has(layout.PostPath("post-1")))
			posts, err := svc.Posts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"2"}, ids(posts))
		})
	}
}

func TestSyncService_DeleteUnknownPostIsNoop(t *testing.T) {
	svc, store, layout := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPost(ctx, publishedPost("1", 100)))
	store.writes = nil

	require.NoError(t, svc.DeletePost(ctx, domain.NewID("404"), ""))
	require.NoError(t, svc.DeletePost(ctx, domain.NewID("404"), "never-existed"))

	assert.Empty(t, store.writes)
	assert.Empty(t, store.deletes)
	assert.True(t, store.has(layout.PostPath("post-1")))
}

func TestSyncService_DeleteUnindexedDraft(t *testing.T) {
	svc, store, layout := newTestService(t)
	ctx := context.Background()
	draft := publishedPost("1", 100)
	draft.Status = domain.StatusDraft
	require.NoError(t, svc.UpsertPost(ctx, draft))

	require.NoError(t, svc.DeletePost(ctx, domain.NewID("1"), "post-1"))

	assert.False(t, store.has(layout.PostPath("post-1")))
	assert.False(t, store.has(layout.PostsIndexPath()))
}

func TestSyncService_UpsertCategory(t *testing.T) {
	svc, store, layout := newTestService(t)
	ctx := context.Background()
	news := &domain.CategoryRef{ID: domain.NewID("news"), Name: "News"}
	post := publishedPost("1", 100)
	post.Category = news
	require.NoError(t, svc.UpsertPost(ctx, post))

	require.NoError(t, svc.UpsertCategory(ctx, &domain.Category{ID: news.ID, Name: "News"}, false))
	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)

	store.writes = nil
	require.NoError(t, svc.UpsertCategory(ctx, &domain.Category{ID: news.ID, Name: "Notícias"}, true))

	assert.Equal(t, []string{layout.CategoriesIndexPath(), layout.PostsIndexPath()}, store.writes)
	posts, err := svc.Posts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Notícias", posts[0].Category.Name)

	categories, err = svc.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Notícias", categories[0].Name)
}

func TestSyncService_UpsertCategoryWithoutMatchingPosts(t *testing.T) {
	svc, store, layout := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPost(ctx, publishedPost("1", 100)))
	store.writes = nil

	require.NoError(t, svc.UpsertCategory(ctx, &domain.Category{ID: domain.NewID("tech"), Name: "Tech"}, true))

	assert.Equal(t, []string{layout.CategoriesIndexPath()}, store.writes)
}

func TestSyncService_UpsertCategoryPreservesExtraFields(t *testing.T) {
	svc, store, layout := newTestService(t)
	var category domain.Category
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"Tech","color":"blue"}`), &category))

	require.NoError(t, svc.UpsertCategory(context.Background(), &category, false))

	var stored []map[string]any
	store.getJSON(t, layout.CategoriesIndexPath(), &stored)
	require.Len(t, stored, 1)
	assert.Equal(t, "blue", stored[0]["color"])
	assert.Equal(t, float64(7), stored[0]["id"])
}

func TestSyncService_DeleteCategory(t *testing.T) {
	oldCat := &domain.CategoryRef{ID: domain.NewID("old"), Name: "Old"}
	replacement := &domain.CategoryRef{ID: domain.NewID("new"), Name: "New"}

	tests := []struct {
		name        string
		replacement *domain.CategoryRef
		want        domain.CategoryRef
	}{
		{name: "with replacement", replacement: replacement, want: *replacement},
		{name: "without replacement", replacement: nil, want: domain.UncategorizedCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			ctx := context.Background()
			require.NoError(t, svc.UpsertCategory(ctx, &domain.Category{ID: oldCat.ID, Name: oldCat.Name}, false))
			require.NoError(t, svc.UpsertCategory(ctx, &domain.Category{ID: domain.NewID("other"), Name: "Other"}, false))
			post := publishedPost("1", 100)
			post.Category = oldCat
			require.NoError(t, svc.UpsertPost(ctx, post))

			require.NoError(t, svc.DeleteCategory(ctx, oldCat.ID, tt.replacement))

			categories, err := svc.Categories(ctx)
			require.NoError(t, err)
			require.Len(t, categories, 1)
			assert.Equal(t, "other", categories[0].ID.String())

			posts, err := svc.Posts(ctx)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, tt.want, *posts[0].Category)
		})
	}
}

func TestSyncService_DeleteCategoryOnEmptyStore(t *testing.T) {
	svc, store, _ := newTestService(t)

	require.NoError(t, svc.DeleteCategory(context.Background(), domain.NewID("x"), nil))

	assert.Empty(t, store.writes)
}

func TestSyncService_ReadErrorsPropagate(t *testing.T) {
	svc, store, layout := newTestService(t)
	boom := errors.New("boom")
	store.failOn["read:"+layout.PostsIndexPath()] = boom

	err := svc.UpsertPost(context.Background(), publishedPost("1", 100))

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.writes)
}

func TestSyncService_Post(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.UpsertPost(ctx, decodePost(t, `{"id":"a","slug":"hello","status":"publish"}`)))

	raw, err := svc.Post(ctx, "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","slug":"hello","status":"publish"}`, string(raw))

	_, err = svc.Post(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Post(ctx, "../x")
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestEncodeJSON(t *testing.T) {
	out, err := encodeJSON(map[string]string{"html": "<p>a & b</p>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"html\": \"<p>a & b</p>\"\n}\n", string(out))
}
