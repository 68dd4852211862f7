package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pontoumdigital/blogsync/api"
	"github.com/pontoumdigital/blogsync/blog/application"
	"github.com/pontoumdigital/blogsync/blog/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func (a *Api) GetPosts(c *gin.Context) {
	if !a.available(c) {
		return
	}

	query := api.PostsQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, api.Error{Error: "Invalid query parameters"})
		return
	}
	if query.Limit <= 0 {
		query.Limit = defaultLimit
	}
	if query.Limit > maxLimit {
		query.Limit = maxLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	posts, err := a.content.Posts(c.Request.Context())
	if err != nil {
		a.fail(c, err, "Failed to read posts index")
		return
	}

	filtered := posts.InCategory(query.Category)
	c.JSON(http.StatusOK, api.PostsPage{
		Posts:  filtered.Page(query.Limit, query.Offset, ""),
		Total:  len(filtered),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
}

func (a *Api) GetPost(c *gin.Context) {
	if !a.available(c) {
		return
	}

	raw, err := a.content.Post(c.Request.Context(), c.Param("slug"))
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, application.ErrInvalidSlug):
		c.JSON(http.StatusNotFound, api.Error{Error: "Post not found"})
		return
	case err != nil:
		a.fail(c, err, "Failed to read post")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
