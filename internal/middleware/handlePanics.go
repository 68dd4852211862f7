package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HandlePanics answers a recovered panic with a JSON 500 and logs it.
// Use with gin.CustomRecovery.
func HandlePanics(log zerolog.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		event := log.Error().Str("path", c.Request.URL.Path).Str("request_id", RequestID(c))
		if err, ok := recovered.(error); ok {
			event = event.Err(err)
		} else {
			event = event.Interface("panic", recovered)
		}
		event.Msg("Panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
