package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pontoumdigital/blogsync/blog/application"
	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/pontoumdigital/blogsync/internal/middleware"
	"github.com/pontoumdigital/blogsync/internal/rest"
	"github.com/pontoumdigital/blogsync/shared/config"
	"github.com/pontoumdigital/blogsync/webhook"
	webhookhttp "github.com/pontoumdigital/blogsync/webhook/http"
	"github.com/rs/zerolog"
)

// app wires the configured store into the dispatcher and HTTP routes.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      domain.ObjectStore
	closeStore func() error

	syncer webhook.Syncer
	reader rest.ContentReader
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	store, closeStore, err := openStore(ctx, &cfg.Store, log)
	if err != nil {
		return nil, err
	}
	return newAppWithStore(cfg, log, store, closeStore), nil
}

func newAppWithStore(cfg *config.Config, log zerolog.Logger, store domain.ObjectStore, closeStore func() error) *app {
	a := &app{cfg: cfg, log: log, store: store, closeStore: closeStore}
	if closeStore == nil {
		a.closeStore = noopClose
	}
	// Left nil without a store so the dispatcher reports a configuration error.
	if store != nil {
		svc := application.NewSyncService(store, application.NewLayout(cfg.Content.BasePath), log)
		a.syncer = svc
		a.reader = svc
	}
	return a
}

func (a *app) Close() error {
	return a.closeStore()
}

func (a *app) dispatcher() *webhook.Dispatcher {
	if a.cfg.Webhook.Token == "" {
		a.log.Warn().Msg("AUTOMARTICLES_TOKEN is not set, webhook requests will be rejected")
	}
	return webhook.NewDispatcher(a.cfg.Webhook.Token, a.syncer, a.log)
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(a.log))
	r.Use(gin.CustomRecovery(middleware.HandlePanics(a.log)))

	r.GET("/health", a.health)

	webhookhttp.NewWebhookHandler(a.dispatcher(), a.cfg.Webhook.TokenHeader, a.log).
		RegisterRoutes(r, webhookhttp.DefaultPath, "/webhook")
	rest.NewApi(r, a.reader, a.log)

	return r
}

func (a *app) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().Format(time.RFC3339),
		"service":          serviceName,
		"store":            a.cfg.Store.Backend,
		"store_configured": a.store != nil,
	})
}
