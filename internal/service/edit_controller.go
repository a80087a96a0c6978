package service

import (
	"context"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// EditMode is the lifecycle of the edit surface.
type EditMode int

const (
	EditClosed EditMode = iota
	EditCreating
	EditEditing
)

// EditState is a snapshot of an edit controller.
type EditState[F any] struct {
	Mode       EditMode
	Form       F
	EditingID  models.ID
	Submitting bool
	Error      string
	Fields     map[string]string
}

type editAPI interface {
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, query url.Values, body, out interface{}) error
	Delete(ctx context.Context, path string, query url.Values, out interface{}) error
}

// Refresher is the owning list of an edit controller.
type Refresher interface {
	Refresh()
}

// EditController drives a create/update form for one resource. Payloads are
// validated locally before any request, and the owning list is refreshed
// after every successful write instead of being patched in place.
type EditController[F, T any] struct {
	api       editAPI
	resource  Resource[T]
	binding   FormBinding[F, T]
	validator *validator.Validate
	list      Refresher
	logger    *zap.Logger

	mu    sync.Mutex
	state EditState[F]
}

// NewEditController constructs an edit controller. list may be nil.
func NewEditController[F, T any](api editAPI, resource Resource[T], binding FormBinding[F, T], list Refresher, validate *validator.Validate, logger *zap.Logger) *EditController[F, T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &EditController[F, T]{
		api:       api,
		resource:  resource,
		binding:   binding,
		validator: validate,
		list:      list,
		logger:    logger.With(zap.String("resource", resource.Name)),
	}
}

// State returns a snapshot of the edit surface.
func (c *EditController[F, T]) State() EditState[F] {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Fields = copyFilters(c.state.Fields)
	return state
}

// OpenCreate opens an empty form.
func (c *EditController[F, T]) OpenCreate() EditState[F] {
	c.mu.Lock()
	c.state = EditState[F]{Mode: EditCreating, Form: c.binding.Empty()}
	c.mu.Unlock()
	return c.State()
}

// OpenEdit opens a form pre-filled from entity.
func (c *EditController[F, T]) OpenEdit(entity T) EditState[F] {
	c.mu.Lock()
	c.state = EditState[F]{
		Mode:      EditEditing,
		Form:      c.binding.FromEntity(entity),
		EditingID: c.resource.ID(entity),
	}
	c.mu.Unlock()
	return c.State()
}

// Cancel closes the form. It never touches the network.
func (c *EditController[F, T]) Cancel() {
	c.mu.Lock()
	c.state = EditState[F]{Mode: EditClosed}
	c.mu.Unlock()
}

// Submit validates form and sends it. Validation failures return a
// ValidationError without a request. On success the surface closes and the
// owning list refreshes; on failure the surface stays open with the error.
func (c *EditController[F, T]) Submit(ctx context.Context, form F) error {
	c.mu.Lock()
	if c.state.Mode == EditClosed {
		c.mu.Unlock()
		return appErrors.Clone(appErrors.ErrValidation, "no form is open")
	}
	if c.state.Submitting {
		c.mu.Unlock()
		return appErrors.ErrSubmissionInFlight
	}
	mode, id := c.state.Mode, c.state.EditingID
	c.state.Form = form
	c.state.Submitting = true
	c.mu.Unlock()

	payload, err := c.prepare(form)
	if err != nil {
		c.fail(err)
		return err
	}

	if mode == EditCreating {
		err = c.api.Post(ctx, c.resource.CreatePath, payload, nil)
	} else {
		path, query := c.resource.UpdatePath(id)
		err = c.api.Put(ctx, path, query, payload, nil)
	}
	if err != nil {
		c.logger.Info("save failed", zap.Error(err))
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.state = EditState[F]{Mode: EditClosed}
	c.mu.Unlock()
	if c.list != nil {
		c.list.Refresh()
	}
	return nil
}

func (c *EditController[F, T]) prepare(form F) (T, error) {
	var zero T
	if err := c.validator.Struct(form); err != nil {
		return zero, ValidationError(err, "please correct the highlighted fields")
	}
	payload, err := c.binding.ToPayload(form)
	if err != nil {
		return zero, err
	}
	if c.resource.Validate != nil {
		if fields := c.resource.Validate(payload); len(fields) > 0 {
			return zero, appErrors.Validation("please correct the highlighted fields", fields)
		}
	}
	return payload, nil
}

func (c *EditController[F, T]) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Submitting = false
	c.state.Error = appErrors.UserMessage(err)
	c.state.Fields = nil
	if appErrors.IsValidation(err) {
		c.state.Fields = copyFilters(appErrors.FromError(err).Fields)
	}
}

// Delete removes entity on the server. A rejection is returned verbatim and
// the owning list is left untouched; success refreshes it.
func (c *EditController[F, T]) Delete(ctx context.Context, entity T) error {
	if c.resource.DeletePath == nil {
		return appErrors.Clone(appErrors.ErrForbidden, c.resource.Name+" cannot be deleted")
	}
	path, query := c.resource.DeletePath(c.resource.ID(entity))
	if err := c.api.Delete(ctx, path, query, nil); err != nil {
		c.logger.Info("delete rejected", zap.Error(err))
		return err
	}
	if c.list != nil {
		c.list.Refresh()
	}
	return nil
}
