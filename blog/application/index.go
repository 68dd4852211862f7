package application

import (
	"sort"

	"github.com/pontoumdigital/blogsync/blog/domain"
)

// PostsIndex is the listing of published posts, newest first.
type PostsIndex []domain.IndexEntry

// Find returns the position of the entry with the given id, or -1.
func (idx PostsIndex) Find(id domain.ID) int {
	for i := range idx {
		if idx[i].ID.Equal(id) {
			return i
		}
	}
	return -1
}

// Without returns a copy of the index with every entry for id removed, and the
// first removed entry if there was one.
func (idx PostsIndex) Without(id domain.ID) (PostsIndex, *domain.IndexEntry) {
	out := make(PostsIndex, 0, len(idx))
	var removed *domain.IndexEntry
	for i := range idx {
		if idx[i].ID.Equal(id) {
			if removed == nil {
				entry := idx[i]
				removed = &entry
			}
			continue
		}
		out = append(out, idx[i])
	}
	return out, removed
}

// Insert returns a copy of the index with entry added and the order restored.
// A new entry sorts ahead of existing entries with the same publication date.
func (idx PostsIndex) Insert(entry domain.IndexEntry) PostsIndex {
	out := make(PostsIndex, 0, len(idx)+1)
	out = append(out, entry)
	out = append(out, idx...)
	out.sortByPublicationDate()
	return out
}

func (idx PostsIndex) sortByPublicationDate() {
	sort.SliceStable(idx, func(i, j int) bool {
		return idx[i].PublicationDate > idx[j].PublicationDate
	})
}

// ApplyPost removes any entry for the post and re-adds it when the post is published.
// It reports the entry that was replaced, if any.
func (idx PostsIndex) ApplyPost(p *domain.Post) (PostsIndex, *domain.IndexEntry) {
	out, removed := idx.Without(p.ID)
	if p.IsPublished() {
		out = out.Insert(domain.NewIndexEntry(p))
	}
	return out, removed
}

// RenameCategory rewrites the embedded name of every entry in the category and
// returns how many entries changed. The index is modified in place.
func (idx PostsIndex) RenameCategory(ref domain.CategoryRef) int {
	changed := 0
	for i := range idx {
		cat := idx[i].Category
		if cat == nil || !cat.ID.Equal(ref.ID) || cat.Name == ref.Name {
			continue
		}
		idx[i].Category = &domain.CategoryRef{ID: cat.ID, Name: ref.Name}
		changed++
	}
	return changed
}

// ReassignCategory points every entry in category id at replacement and returns
// how many entries were reassigned. The index is modified in place.
func (idx PostsIndex) ReassignCategory(id domain.ID, replacement domain.CategoryRef) int {
	reassigned := 0
	for i := range idx {
		cat := idx[i].Category
		if cat == nil || !cat.ID.Equal(id) {
			continue
		}
		ref := replacement
		idx[i].Category = &ref
		reassigned++
	}
	return reassigned
}

// Page returns the slice [offset, offset+limit) of the entries, optionally
// restricted to one category.
func (idx PostsIndex) Page(limit, offset int, category string) PostsIndex {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	filtered := idx.InCategory(category)
	if offset >= len(filtered) {
		return PostsIndex{}
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end]
}

// InCategory returns the entries whose category id is category. An empty
// category matches everything.
func (idx PostsIndex) InCategory(category string) PostsIndex {
	if category == "" {
		return idx
	}
	out := make(PostsIndex, 0, len(idx))
	for _, entry := range idx {
		if entry.Category != nil && entry.Category.ID.String() == category {
			out = append(out, entry)
		}
	}
	return out
}

const defaultPageSize = 10

// CategoriesIndex is the set of known categories, unique by id.
type CategoriesIndex []domain.Category

// Upsert returns a copy with any category sharing c's id replaced by c, appended at the end.
func (idx CategoriesIndex) Upsert(c domain.Category) CategoriesIndex {
	out, _ := idx.Without(c.ID)
	return append(out, c)
}

// Without returns a copy with the category removed, and whether it was present.
func (idx CategoriesIndex) Without(id domain.ID) (CategoriesIndex, bool) {
	out := make(CategoriesIndex, 0, len(idx))
	found := false
	for _, c := range idx {
		if c.ID.Equal(id) {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}
