// Package cache keeps a timestamped local snapshot of one list resource
// and decides when to go back to the network for it.
//
// A snapshot younger than the window is served without a fetch. An older
// one is served immediately while a background fetch refreshes it. With no
// snapshot the caller waits for the fetch. Failed fetches never clear a
// snapshot; the error is reported next to the old data instead.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/envios/internal/kv"
)

// DefaultWindow is how long a snapshot stays fresh.
const DefaultWindow = 30 * time.Minute

// ErrInFlight is returned by Refresh when a fetch for the key is already
// running. No second request is issued.
var ErrInFlight = errors.New("cache: fetch already in flight")

type State int

const (
	Empty State = iota
	Fresh
	Stale
	Loading
	Error
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Loading:
		return "loading"
	case Error:
		return "error"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// View is what a caller renders.
type View[T any] struct {
	Items      []T
	UpdatedAt  time.Time
	State      State
	Refreshing bool
	// Err is the last fetch failure. It is set alongside old Items when a
	// refresh failed, and alone in the Error state.
	Err error
}

// Event is published after every completed fetch.
type Event struct {
	Key       string
	State     State
	Count     int
	UpdatedAt time.Time
	Err       error
}

type FetchFunc[T any] func(ctx context.Context) ([]T, error)

type Config[T any] struct {
	Key    string
	Store  kv.Store
	Fetch  FetchFunc[T]
	Window time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

type Cache[T any] struct {
	key     string
	store   kv.Store
	fetch   FetchFunc[T]
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	dataKey string
	tsKey   string

	group singleflight.Group
	// snapMu makes the two-entry snapshot read and write atomic for callers.
	snapMu sync.RWMutex

	mu        sync.Mutex
	loading   bool
	lastErr   error
	closed    bool
	listeners map[int]func(Event)
	nextID    int

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

func New[T any](cfg Config[T]) *Cache[T] {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		key:       cfg.Key,
		store:     cfg.Store,
		fetch:     cfg.Fetch,
		window:    cfg.Window,
		now:       cfg.Now,
		logger:    cfg.Logger.With("cache", cfg.Key),
		dataKey:   "cache:" + cfg.Key + ":data",
		tsKey:     "cache:" + cfg.Key + ":ts",
		listeners: make(map[int]func(Event)),
		bgCtx:     ctx,
		bgCancel:  cancel,
	}
}

// Key returns the resource key.
func (c *Cache[T]) Key() string {
	return c.key
}

type snapshot[T any] struct {
	items     []T
	updatedAt time.Time
}

// read loads the stored snapshot. Anything unusable is a miss.
func (c *Cache[T]) read(ctx context.Context) (snapshot[T], bool) {
	c.snapMu.RLock()
	data, dataErr := c.store.Get(ctx, c.dataKey)
	ts, tsErr := c.store.Get(ctx, c.tsKey)
	c.snapMu.RUnlock()

	if errors.Is(dataErr, kv.ErrNotFound) && errors.Is(tsErr, kv.ErrNotFound) {
		return snapshot[T]{}, false
	}
	if err := errors.Join(dataErr, tsErr); err != nil {
		c.logger.Warn("cache snapshot unreadable", "error", err)
		return snapshot[T]{}, false
	}

	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		c.logger.Warn("cache timestamp is corrupt", "value", ts, "error", err)
		return snapshot[T]{}, false
	}
	var items []T
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		c.logger.Warn("cache payload is corrupt", "error", err)
		return snapshot[T]{}, false
	}
	if len(items) == 0 {
		c.logger.Warn("cache payload is empty")
		return snapshot[T]{}, false
	}
	return snapshot[T]{items: items, updatedAt: time.UnixMilli(ms)}, true
}

func (c *Cache[T]) write(ctx context.Context, items []T, at time.Time) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.store.SetMany(ctx, map[string]string{
		c.dataKey: string(data),
		c.tsKey:   strconv.FormatInt(at.UnixMilli(), 10),
	})
}

func (c *Cache[T]) stateOf(s snapshot[T]) State {
	if c.now().UnixMilli()-s.updatedAt.UnixMilli() >= c.window.Milliseconds() {
		return Stale
	}
	return Fresh
}

// Peek reports the current view without touching the network.
func (c *Cache[T]) Peek(ctx context.Context) View[T] {
	c.mu.Lock()
	loading, lastErr := c.loading, c.lastErr
	c.mu.Unlock()

	snap, ok := c.read(ctx)
	switch {
	case ok:
		return View[T]{Items: snap.items, UpdatedAt: snap.updatedAt, State: c.stateOf(snap), Refreshing: loading, Err: lastErr}
	case loading:
		return View[T]{State: Loading, Refreshing: true}
	case lastErr != nil:
		return View[T]{State: Error, Err: lastErr}
	default:
		return View[T]{State: Empty}
	}
}

// Load is the mount-time read. A fresh snapshot is returned as is; a stale
// one is returned while a background fetch refreshes it; with nothing
// stored the call blocks on a fetch. The error is non-nil only when the
// fetch failed and there is nothing to show.
func (c *Cache[T]) Load(ctx context.Context) (View[T], error) {
	if snap, ok := c.read(ctx); ok {
		v := View[T]{Items: snap.items, UpdatedAt: snap.updatedAt, State: c.stateOf(snap)}
		c.mu.Lock()
		v.Err = c.lastErr
		c.mu.Unlock()
		if v.State == Stale {
			v.Refreshing = c.revalidate()
		}
		return v, nil
	}
	return c.fetchNow(ctx)
}

// Refresh fetches regardless of freshness. If a fetch is already running
// it returns the current view and ErrInFlight.
func (c *Cache[T]) Refresh(ctx context.Context) (View[T], error) {
	c.mu.Lock()
	loading := c.loading
	c.mu.Unlock()
	if loading {
		return c.Peek(ctx), ErrInFlight
	}
	return c.fetchNow(ctx)
}

// Invalidate drops the stored snapshot.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	if err := c.store.RemoveMany(ctx, c.dataKey, c.tsKey); err != nil {
		return fmt.Errorf("invalidate %s: %w", c.key, err)
	}
	return nil
}

// Subscribe registers fn for fetch events and returns its cancel func.
func (c *Cache[T]) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Wait blocks until running background refreshes have stored their
// results, or ctx is done. Unlike Close it lets them finish.
func (c *Cache[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background refreshes and waits for them. Results of fetches
// still running are discarded.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.bgCancel()
	c.wg.Wait()
}

// fetchNow runs (or joins) the fetch for this key and waits for it.
func (c *Cache[T]) fetchNow(ctx context.Context) (View[T], error) {
	ch := c.group.DoChan(c.key, c.fetchFn(ctx, false))
	select {
	case res := <-ch:
		if res.Err != nil {
			return c.failedView(ctx, res.Err)
		}
		return res.Val.(View[T]), nil
	case <-ctx.Done():
		return c.failedView(ctx, ctx.Err())
	}
}

func (c *Cache[T]) failedView(ctx context.Context, err error) (View[T], error) {
	if snap, ok := c.read(ctx); ok {
		return View[T]{Items: snap.items, UpdatedAt: snap.updatedAt, State: c.stateOf(snap), Err: err}, nil
	}
	return View[T]{State: Error, Err: err}, err
}

// revalidate starts a background fetch unless one is running. It reports
// whether a fetch is in progress afterwards.
func (c *Cache[T]) revalidate() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.loading {
		c.mu.Unlock()
		return true
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		<-c.group.DoChan(c.key, c.fetchFn(c.bgCtx, true))
	}()
	return true
}

func (c *Cache[T]) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Cache[T]) fetchFn(ctx context.Context, background bool) func() (any, error) {
	return func() (any, error) {
		c.setLoading(true)
		v, ev, err := c.run(ctx, background)
		c.setLoading(false)
		if ev != nil {
			c.publish(*ev)
		}
		return v, err
	}
}

// run performs one fetch and stores its result. The returned event is
// nil when the result was discarded.
func (c *Cache[T]) run(ctx context.Context, background bool) (View[T], *Event, error) {
	items, err := c.fetch(ctx)

	c.mu.Lock()
	discard := background && c.closed
	if !discard {
		c.lastErr = err
	}
	c.mu.Unlock()
	if discard {
		c.logger.Debug("discarding fetch result after close")
		return View[T]{}, nil, context.Canceled
	}

	if err != nil {
		c.logger.Warn("fetch failed", "error", err)
		ev := &Event{Key: c.key, State: Error, Err: err}
		if snap, ok := c.read(ctx); ok {
			// The old snapshot still decides the state.
			ev.State = c.stateOf(snap)
			ev.Count = len(snap.items)
			ev.UpdatedAt = snap.updatedAt
		}
		return View[T]{}, ev, err
	}

	at := c.now()
	if len(items) == 0 {
		// An empty list is never a valid snapshot.
		if err := c.Invalidate(ctx); err != nil {
			c.logger.Warn("drop snapshot", "error", err)
		}
		return View[T]{Items: []T{}, State: Empty}, &Event{Key: c.key, State: Empty}, nil
	}

	if err := c.write(ctx, items, at); err != nil {
		c.logger.Warn("write snapshot", "error", err)
	}
	c.logger.Debug("snapshot stored", "count", len(items))
	return View[T]{Items: items, UpdatedAt: at, State: Fresh},
		&Event{Key: c.key, State: Fresh, Count: len(items), UpdatedAt: at}, nil
}

func (c *Cache[T]) publish(e Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
