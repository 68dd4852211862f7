package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *Api) GetCategories(c *gin.Context) {
	if !a.available(c) {
		return
	}

	categories, err := a.content.Categories(c.Request.Context())
	if err != nil {
		a.fail(c, err, "Failed to read categories index")
		return
	}
	c.JSON(http.StatusOK, categories)
}
