package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/rs/zerolog"
)

var ErrInvalidSlug = errors.New("invalid slug")

// SyncService keeps the per-post objects and the posts and categories indexes in
// step with CMS events. Every method reads before it writes and passes the read
// versions back to the store, so a concurrent change fails with a conflict instead
// of being overwritten. All methods are safe to replay with the same input.
type SyncService struct {
	store  domain.ObjectStore
	layout Layout
	log    zerolog.Logger
}

func NewSyncService(store domain.ObjectStore, layout Layout, log zerolog.Logger) *SyncService {
	return &SyncService{
		store:  store,
		layout: layout,
		log:    log.With().Str("component", "sync").Logger(),
	}
}

// UpsertPost writes the post object and then refreshes its posts index entry.
func (s *SyncService) UpsertPost(ctx context.Context, post *domain.Post) error {
	if post == nil {
		return fmt.Errorf("post cannot be nil")
	}
	if !ValidSlug(post.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, post.Slug)
	}

	posts, indexVersion, err := s.readPostsIndex(ctx)
	if err != nil {
		return err
	}
	next, previous := posts.ApplyPost(post)

	postPath := s.layout.PostPath(post.Slug)
	postVersion, err := s.currentVersion(ctx, postPath)
	if err != nil {
		return err
	}

	verb := "create"
	if postVersion != "" {
		verb = "update"
	}
	if _, err := writeJSON(ctx, s.store, postPath, post, postVersion, fmt.Sprintf("cms: %s post %s", verb, post.Slug)); err != nil {
		return err
	}

	if previous == nil && !post.IsPublished() {
		s.log.Debug().Str("slug", post.Slug).Str("status", string(post.Status)).Msg("Post not published, index unchanged")
		return nil
	}

	if _, err := writeJSON(ctx, s.store, s.layout.PostsIndexPath(), next, indexVersion, fmt.Sprintf("cms: sync index for %s", post.Slug)); err != nil {
		return err
	}

	if previous != nil && previous.Slug != post.Slug && ValidSlug(previous.Slug) {
		if err := s.deleteObject(ctx, s.layout.PostPath(previous.Slug), fmt.Sprintf("cms: delete post %s", previous.Slug)); err != nil {
			return fmt.Errorf("removing renamed post %s: %w", previous.Slug, err)
		}
	}

	s.log.Info().
		Str("post_id", post.ID.String()).
		Str("slug", post.Slug).
		Bool("published", post.IsPublished()).
		Int("index_size", len(next)).
		Msg("Post synced")
	return nil
}

// DeletePost removes a post object and its index entry. slug may be empty, in
// which case it is resolved from the index. Deleting an unknown post is a no-op.
func (s *SyncService) DeletePost(ctx context.Context, id domain.ID, slug string) error {
	if slug != "" && !ValidSlug(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	posts, indexVersion, err := s.readPostsIndex(ctx)
	if err != nil {
		return err
	}
	next, removed := posts.Without(id)
	if slug == "" && removed != nil {
		slug = removed.Slug
	}

	if slug == "" {
		s.log.Info().Str("post_id", id.String()).Msg("Post not found, nothing to delete")
		return nil
	}

	if ValidSlug(slug) {
		if err := s.deleteObject(ctx, s.layout.PostPath(slug), fmt.Sprintf("cms: delete post %s", slug)); err != nil {
			return err
		}
	}

	if removed != nil {
		if _, err := writeJSON(ctx, s.store, s.layout.PostsIndexPath(), next, indexVersion, fmt.Sprintf("cms: remove %s from index", slug)); err != nil {
			return err
		}
	}

	s.log.Info().Str("post_id", id.String()).Str("slug", slug).Bool("indexed", removed != nil).Msg("Post deleted")
	return nil
}

// UpsertCategory stores the category. When isUpdate is set its name is pushed
// into every posts index entry that embeds it.
func (s *SyncService) UpsertCategory(ctx context.Context, category *domain.Category, isUpdate bool) error {
	if category == nil {
		return fmt.Errorf("category cannot be nil")
	}

	categories, version, err := s.readCategoriesIndex(ctx)
	if err != nil {
		return err
	}
	categories = categories.Upsert(*category)

	if _, err := writeJSON(ctx, s.store, s.layout.CategoriesIndexPath(), categories, version, fmt.Sprintf("cms: category %s", category.Name)); err != nil {
		return err
	}

	if !isUpdate {
		s.log.Info().Str("category_id", category.ID.String()).Msg("Category created")
		return nil
	}

	posts, indexVersion, err := s.readPostsIndex(ctx)
	if err != nil {
		return err
	}
	if indexVersion == "" {
		return nil
	}

	renamed := posts.RenameCategory(category.Ref())
	if renamed > 0 {
		if _, err := writeJSON(ctx, s.store, s.layout.PostsIndexPath(), posts, indexVersion, "cms: sync category rename in index"); err != nil {
			return err
		}
	}

	s.log.Info().Str("category_id", category.ID.String()).Int("posts_renamed", renamed).Msg("Category updated")
	return nil
}

// DeleteCategory drops the category and moves its posts to replacement, or to
// the uncategorized sentinel when replacement is nil.
func (s *SyncService) DeleteCategory(ctx context.Context, id domain.ID, replacement *domain.CategoryRef) error {
	categories, version, err := s.readCategoriesIndex(ctx)
	if err != nil {
		return err
	}
	if version != "" {
		remaining, _ := categories.Without(id)
		if _, err := writeJSON(ctx, s.store, s.layout.CategoriesIndexPath(), remaining, version, "cms: delete category"); err != nil {
			return err
		}
	}

	target := domain.UncategorizedCategory
	if replacement != nil {
		target = *replacement
	}

	posts, indexVersion, err := s.readPostsIndex(ctx)
	if err != nil {
		return err
	}
	if indexVersion == "" {
		return nil
	}

	reassigned := posts.ReassignCategory(id, target)
	if _, err := writeJSON(ctx, s.store, s.layout.PostsIndexPath(), posts, indexVersion, "cms: reassign posts from deleted category"); err != nil {
		return err
	}

	s.log.Info().
		Str("category_id", id.String()).
		Str("replacement_id", target.ID.String()).
		Int("posts_reassigned", reassigned).
		Msg("Category deleted")
	return nil
}

// Posts returns the posts index; a missing index is empty.
func (s *SyncService) Posts(ctx context.Context) (PostsIndex, error) {
	posts, _, err := s.readPostsIndex(ctx)
	return posts, err
}

// Categories returns the categories index; a missing index is empty.
func (s *SyncService) Categories(ctx context.Context) (CategoriesIndex, error) {
	categories, _, err := s.readCategoriesIndex(ctx)
	return categories, err
}

// Post returns the stored payload for slug, or domain.ErrNotFound.
func (s *SyncService) Post(ctx context.Context, slug string) (json.RawMessage, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	var raw json.RawMessage
	if _, err := readJSON(ctx, s.store, s.layout.PostPath(slug), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *SyncService) readPostsIndex(ctx context.Context) (PostsIndex, domain.Version, error) {
	posts := PostsIndex{}
	version, err := readJSON(ctx, s.store, s.layout.PostsIndexPath(), &posts)
	if errors.Is(err, domain.ErrNotFound) {
		return PostsIndex{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if posts == nil {
		posts = PostsIndex{}
	}
	return posts, version, nil
}

func (s *SyncService) readCategoriesIndex(ctx context.Context) (CategoriesIndex, domain.Version, error) {
	categories := CategoriesIndex{}
	version, err := readJSON(ctx, s.store, s.layout.CategoriesIndexPath(), &categories)
	if errors.Is(err, domain.ErrNotFound) {
		return CategoriesIndex{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if categories == nil {
		categories = CategoriesIndex{}
	}
	return categories, version, nil
}

// currentVersion returns the stored version at path, or "" if nothing is there.
func (s *SyncService) currentVersion(ctx context.Context, path string) (domain.Version, error) {
	obj, err := s.store.Read(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return obj.Version, nil
}

// deleteObject deletes path if it exists.
func (s *SyncService) deleteObject(ctx context.Context, path, message string) error {
	version, err := s.currentVersion(ctx, path)
	if err != nil {
		return err
	}
	if version == "" {
		return nil
	}
	if err := s.store.Delete(ctx, path, version, message); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}
