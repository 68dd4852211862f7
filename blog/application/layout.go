package application

import (
	"path"
	"strings"
)

// DefaultBasePath is where the static site reads blog content from.
const DefaultBasePath = "public/content/blog"

// Layout maps content to store paths.
type Layout struct {
	BasePath string
}

func NewLayout(basePath string) Layout {
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return Layout{BasePath: basePath}
}

func (l Layout) PostPath(slug string) string {
	return path.Join(l.BasePath, "posts", slug+".json")
}

func (l Layout) PostsIndexPath() string {
	return path.Join(l.BasePath, "posts.index.json")
}

func (l Layout) CategoriesIndexPath() string {
	return path.Join(l.BasePath, "categories.index.json")
}

// ValidSlug reports whether slug can be used as a single path segment.
func ValidSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, "/\\\x00")
}
