package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pontoumdigital/blogsync/webhook"
	"github.com/rs/zerolog"
)

const (
	DefaultPath        = "/api/automarticles/webhook"
	DefaultTokenHeader = "access-token"

	// maxBodyBytes bounds a webhook delivery; posts carry their full HTML body.
	maxBodyBytes = 10 << 20

	livenessMessage = "Automarticles webhook is running. Send a POST request with an access-token header."
)

type WebhookHandler struct {
	dispatcher  *webhook.Dispatcher
	tokenHeader string
	log         zerolog.Logger
}

func NewWebhookHandler(dispatcher *webhook.Dispatcher, tokenHeader string, log zerolog.Logger) *WebhookHandler {
	if tokenHeader == "" {
		tokenHeader = DefaultTokenHeader
	}
	return &WebhookHandler{
		dispatcher:  dispatcher,
		tokenHeader: tokenHeader,
		log:         log.With().Str("component", "webhook").Logger(),
	}
}

// RegisterRoutes mounts the webhook on each path. Methods other than GET and POST
// are answered with 405.
func (h *WebhookHandler) RegisterRoutes(r gin.IRouter, paths ...string) {
	if len(paths) == 0 {
		paths = []string{DefaultPath}
	}
	for _, p := range paths {
		r.POST(p, h.HandleWebhook)
		r.GET(p, h.HandleLiveness)
		for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
			r.Handle(method, p, h.HandleMethodNotAllowed)
		}
	}
}

func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), c.GetHeader(h.tokenHeader), payload)
	if err != nil {
		var werr *webhook.Error
		if !errors.As(err, &werr) {
			werr = &webhook.Error{Kind: webhook.KindIntegration, Message: "Failed to process event", Err: err}
		}
		if werr.Kind == webhook.KindIntegration || werr.Kind == webhook.KindConfiguration {
			h.log.Error().Err(werr).Str("kind", werr.Kind.String()).Msg("Webhook failed")
		}
		c.JSON(werr.Status(), werr.Body())
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WebhookHandler) HandleLiveness(c *gin.Context) {
	c.String(http.StatusOK, livenessMessage)
}

func (h *WebhookHandler) HandleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
