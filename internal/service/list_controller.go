package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// ListStatus is the render state of a list. Exactly one applies at a time.
type ListStatus int

const (
	ListIdle ListStatus = iota
	ListLoading
	ListReady
	ListEmpty
	ListError
)

func (s ListStatus) String() string {
	switch s {
	case ListLoading:
		return "loading"
	case ListReady:
		return "ready"
	case ListEmpty:
		return "empty"
	case ListError:
		return "error"
	default:
		return "idle"
	}
}

// FilterSearch is the filter key used by SetSearch.
const FilterSearch = "search"

// ListState is an immutable snapshot of a list controller.
type ListState[T any] struct {
	Items   []T
	Status  ListStatus
	Error   string
	Filters map[string]string
}

type listAPI interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
}

// ListOptions tunes a ListController.
type ListOptions struct {
	Debounce time.Duration
	Filters  map[string]string
	Logger   *zap.Logger
}

// ListController fetches a collection and keeps it in sync with a filter
// set. Filter changes are debounced and coalesced, and only the most
// recently started fetch may update state.
type ListController[T any] struct {
	api      listAPI
	resource Resource[T]
	debounce time.Duration
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       ListState[T]
	filters     map[string]string
	pending     map[string]string
	timer       *time.Timer
	timerGen    uint64
	seq         uint64
	inflight    context.CancelFunc
	closed      bool
	subscribers map[int]func(ListState[T])
	nextSubID   int

	notifyMu sync.Mutex
}

// NewListController constructs a controller for resource.
func NewListController[T any](api listAPI, resource Resource[T], opts ListOptions) *ListController[T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	filters := make(map[string]string, len(opts.Filters))
	for k, v := range opts.Filters {
		filters[k] = v
	}
	return &ListController[T]{
		api:         api,
		resource:    resource,
		debounce:    debounce,
		logger:      logger.With(zap.String("resource", resource.Name)),
		ctx:         ctx,
		cancel:      cancel,
		filters:     filters,
		pending:     make(map[string]string),
		subscribers: make(map[int]func(ListState[T])),
		state:       ListState[T]{Status: ListIdle, Filters: copyFilters(filters)},
	}
}

// State returns a snapshot of the current state.
func (c *ListController[T]) State() ListState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Resource returns the collection the controller lists.
func (c *ListController[T]) Resource() Resource[T] { return c.resource }

// OnChange registers fn to receive every state change.
func (c *ListController[T]) OnChange(fn func(ListState[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// SetSearch schedules a debounced fetch with the new search text.
func (c *ListController[T]) SetSearch(text string) {
	c.SetFilters(map[string]string{FilterSearch: text})
}

// SetFilter schedules a debounced fetch with one filter changed.
func (c *ListController[T]) SetFilter(key, value string) {
	c.SetFilters(map[string]string{key: value})
}

// SetFilters merges changes into the pending filter set. Every change made
// inside one debounce window is applied by a single fetch.
func (c *ListController[T]) SetFilters(changes map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for k, v := range changes {
		c.pending[k] = v
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.flush(gen) })
}

func (c *ListController[T]) flush(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.applyPendingLocked()
	c.timer = nil
	c.mu.Unlock()
	_, _ = c.fetch(c.ctx)
}

func (c *ListController[T]) applyPendingLocked() {
	for k, v := range c.pending {
		c.filters[k] = v
	}
	c.pending = make(map[string]string)
}

// Refresh starts a fetch with the current filters, applying any pending
// changes immediately.
func (c *ListController[T]) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.applyPendingLocked()
	c.state = ListState[T]{Status: ListLoading, Filters: copyFilters(c.filters)}
	c.mu.Unlock()
	c.notify()
	go func() { _, _ = c.fetch(c.ctx) }()
}

// Wait blocks until the list is no longer loading and returns that state.
func (c *ListController[T]) Wait(ctx context.Context) (ListState[T], error) {
	changed := make(chan struct{}, 1)
	unsubscribe := c.OnChange(func(ListState[T]) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()
	for {
		state := c.State()
		if state.Status != ListLoading {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		case <-c.ctx.Done():
			return state, appErrors.ErrClosed
		}
	}
}

// Load fetches synchronously and returns the resulting state. The fetch
// takes part in last-request-wins ordering like any other.
func (c *ListController[T]) Load(ctx context.Context) (ListState[T], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ListState[T]{}, appErrors.ErrClosed
	}
	c.cancelTimerLocked()
	c.applyPendingLocked()
	c.mu.Unlock()

	reqCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return c.fetch(reqCtx)
}

func (c *ListController[T]) fetch(parent context.Context) (ListState[T], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ListState[T]{}, appErrors.ErrClosed
	}
	if c.inflight != nil {
		c.inflight()
	}
	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(parent)
	c.inflight = cancel
	query := filterQuery(c.filters)
	c.state = ListState[T]{Status: ListLoading, Filters: copyFilters(c.filters)}
	c.mu.Unlock()
	c.notify()

	var raw json.RawMessage
	err := c.api.Get(reqCtx, c.resource.ListPath, query, &raw)
	var items []T
	if err == nil {
		err = gateway.DecodeCollection(raw, c.resource.CollectionKey, &items)
	}
	cancel()

	c.mu.Lock()
	if c.closed || seq != c.seq {
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Debug("discarding superseded list result", zap.Uint64("seq", seq))
		return state, err
	}
	c.inflight = nil
	switch {
	case err != nil:
		c.state = ListState[T]{Status: ListError, Error: appErrors.UserMessage(err), Filters: copyFilters(c.filters)}
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("list fetch failed", zap.Error(err))
		}
	case len(items) == 0:
		c.state = ListState[T]{Items: []T{}, Status: ListEmpty, Filters: copyFilters(c.filters)}
	default:
		c.state = ListState[T]{Items: items, Status: ListReady, Filters: copyFilters(c.filters)}
	}
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.notify()
	return state, err
}

// Close stops pending timers and in-flight fetches. Results that arrive
// afterwards are dropped.
func (c *ListController[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelTimerLocked()
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.cancel()
	c.subscribers = map[int]func(ListState[T]){}
}

func (c *ListController[T]) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// notify delivers the latest state; deliveries are serialized so the last
// one a subscriber sees is always current.
func (c *ListController[T]) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	state := c.snapshotLocked()
	subs := make([]func(ListState[T]), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}

func (c *ListController[T]) snapshotLocked() ListState[T] {
	state := c.state
	if c.state.Items != nil {
		state.Items = make([]T, len(c.state.Items))
		copy(state.Items, c.state.Items)
	}
	state.Filters = copyFilters(c.state.Filters)
	return state
}

func filterQuery(filters map[string]string) url.Values {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	query := url.Values{}
	for _, k := range keys {
		if v := strings.TrimSpace(filters[k]); v != "" {
			query.Set(k, v)
		}
	}
	return query
}

func copyFilters(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
