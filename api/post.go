package api

import "github.com/pontoumdigital/blogsync/blog/domain"

// PostsQuery is the query string of GET /posts/v1.
type PostsQuery struct {
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
	Category string `form:"category"`
}

// PostsPage is one page of the posts index.
type PostsPage struct {
	Posts  []domain.IndexEntry `json:"posts"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type Error struct {
	Error string `json:"error"`
}
