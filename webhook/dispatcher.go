package webhook

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pontoumdigital/blogsync/blog/application"
	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/rs/zerolog"
)

// Event is the kind of change announced by the CMS.
type Event string

const (
	CheckIntegration Event = "CHECK_INTEGRATION"
	PostCreated      Event = "POST_CREATED"
	PostUpdated      Event = "POST_UPDATED"
	PostDeleted      Event = "POST_DELETED"
	CategoryCreated  Event = "CATEGORY_CREATED"
	CategoryUpdated  Event = "CATEGORY_UPDATED"
	CategoryDeleted  Event = "CATEGORY_DELETED"
)

// Request is the webhook body. The nested documents are decoded per event.
type Request struct {
	Event     Event           `json:"event"`
	Post      json.RawMessage `json:"post,omitempty"`
	Category  json.RawMessage `json:"category,omitempty"`
	ReplaceTo json.RawMessage `json:"replace_to,omitempty"`
}

// Result is the JSON document returned for a handled event.
type Result struct {
	Success bool   `json:"success,omitempty"`
	Event   Event  `json:"event,omitempty"`
	Token   string `json:"token,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Syncer applies content changes to the store.
type Syncer interface {
	UpsertPost(ctx context.Context, post *domain.Post) error
	DeletePost(ctx context.Context, id domain.ID, slug string) error
	UpsertCategory(ctx context.Context, category *domain.Category, isUpdate bool) error
	DeleteCategory(ctx context.Context, id domain.ID, replacement *domain.CategoryRef) error
}

type Dispatcher struct {
	token  string
	syncer Syncer
	log    zerolog.Logger
}

// NewDispatcher returns a dispatcher that accepts requests carrying token. syncer
// is nil when no store is configured; mutating events then fail with a
// configuration error while CHECK_INTEGRATION keeps working.
func NewDispatcher(token string, syncer Syncer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		token:  token,
		syncer: syncer,
		log:    log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch authenticates credential, decodes payload and applies the event.
// All failures are returned as *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, credential string, payload []byte) (*Result, error) {
	if d.token == "" {
		d.log.Error().Msg("Webhook token is not configured")
		return nil, misconfigured("webhook token is not configured")
	}
	if credential == "" || subtle.ConstantTimeCompare([]byte(credential), []byte(d.token)) != 1 {
		d.log.Warn().Bool("credential_present", credential != "").Msg("Rejected webhook request")
		return nil, unauthorized()
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, badRequest("Invalid JSON body")
	}

	return d.Handle(ctx, &req)
}

// Handle applies an already authenticated request.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) (*Result, error) {
	log := d.log.With().Str("event", string(req.Event)).Logger()

	if req.Event == CheckIntegration {
		log.Info().Msg("Integration check")
		return &Result{Token: d.token, Status: "ok"}, nil
	}

	if !req.Event.known() {
		log.Info().Msg("Ignoring unknown event")
		return &Result{Success: true, Event: req.Event}, nil
	}

	if d.syncer == nil {
		log.Error().Msg("Content store is not configured")
		return nil, misconfigured("content store is not configured")
	}

	var err error
	switch req.Event {
	case PostCreated, PostUpdated:
		err = d.upsertPost(ctx, req)
	case PostDeleted:
		err = d.deletePost(ctx, req)
	case CategoryCreated, CategoryUpdated:
		err = d.upsertCategory(ctx, req)
	case CategoryDeleted:
		err = d.deleteCategory(ctx, req)
	}
	if err != nil {
		var werr *Error
		if errors.As(err, &werr) {
			return nil, werr
		}
		if errors.Is(err, application.ErrInvalidSlug) {
			return nil, badRequest("Invalid post slug")
		}
		log.Error().Err(err).Msg("Failed to apply event")
		return nil, integration(fmt.Sprintf("Failed to process %s", req.Event), err)
	}

	log.Info().Msg("Event processed")
	return &Result{Success: true, Event: req.Event}, nil
}

func (d *Dispatcher) upsertPost(ctx context.Context, req *Request) error {
	var post domain.Post
	if err := decodeRequired(req.Post, &post); err != nil || post.ID.IsZero() || post.Slug == "" {
		return badRequest("Missing post data")
	}
	if !application.ValidSlug(post.Slug) {
		return badRequest("Invalid post slug")
	}
	return d.syncer.UpsertPost(ctx, &post)
}

func (d *Dispatcher) deletePost(ctx context.Context, req *Request) error {
	var post domain.Post
	if err := decodeRequired(req.Post, &post); err != nil || post.ID.IsZero() {
		return badRequest("Missing post data")
	}
	if post.Slug != "" && !application.ValidSlug(post.Slug) {
		return badRequest("Invalid post slug")
	}
	return d.syncer.DeletePost(ctx, post.ID, post.Slug)
}

func (d *Dispatcher) upsertCategory(ctx context.Context, req *Request) error {
	var category domain.Category
	if err := decodeRequired(req.Category, &category); err != nil || category.ID.IsZero() || category.Name == "" {
		return badRequest("Missing category data")
	}
	return d.syncer.UpsertCategory(ctx, &category, req.Event == CategoryUpdated)
}

func (d *Dispatcher) deleteCategory(ctx context.Context, req *Request) error {
	var category domain.Category
	if err := decodeRequired(req.Category, &category); err != nil || category.ID.IsZero() {
		return badRequest("Missing category data")
	}

	var replacement *domain.CategoryRef
	if present(req.ReplaceTo) {
		var replaceTo domain.Category
		if err := json.Unmarshal(req.ReplaceTo, &replaceTo); err != nil || replaceTo.ID.IsZero() || replaceTo.Name == "" {
			return badRequest("Invalid replace_to category")
		}
		ref := replaceTo.Ref()
		replacement = &ref
	}
	return d.syncer.DeleteCategory(ctx, category.ID, replacement)
}

func (e Event) known() bool {
	switch e {
	case CheckIntegration, PostCreated, PostUpdated, PostDeleted, CategoryCreated, CategoryUpdated, CategoryDeleted:
		return true
	}
	return false
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func decodeRequired(raw json.RawMessage, v any) error {
	if !present(raw) {
		return errors.New("missing")
	}
	return json.Unmarshal(raw, v)
}
