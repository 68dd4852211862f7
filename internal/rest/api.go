package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pontoumdigital/blogsync/blog/application"
	"github.com/rs/zerolog"
)

// ContentReader is the read side of the sync service.
type ContentReader interface {
	Posts(ctx context.Context) (application.PostsIndex, error)
	Post(ctx context.Context, slug string) (json.RawMessage, error)
	Categories(ctx context.Context) (application.CategoriesIndex, error)
}

type Api struct {
	content ContentReader
	log     zerolog.Logger
}

// NewApi mounts the read-only content endpoints. content may be nil when no
// store is configured; the endpoints then answer 503.
func NewApi(router gin.IRouter, content ContentReader, log zerolog.Logger) *Api {
	a := &Api{content: content, log: log.With().Str("component", "rest").Logger()}

	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("", a.GetPosts)
		postsV1.GET("/:slug", a.GetPost)
	}

	categoriesV1 := router.Group("categories/v1")
	{
		categoriesV1.GET("", a.GetCategories)
	}

	return a
}

func (a *Api) available(c *gin.Context) bool {
	if a.content == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content store is not configured"})
		return false
	}
	return true
}

func (a *Api) fail(c *gin.Context, err error, msg string) {
	a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
