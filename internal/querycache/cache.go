// Package querycache keeps the latest result of keyed remote reads and
// deduplicates concurrent fetches of the same key.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wichananm65/storefront/internal/logging"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownKey = errors.New("querycache: unknown key")

// Fetcher loads the current value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Persister stores successful results so a restarted process can serve them
// before its first fetch completes.
type Persister[T any] interface {
	Save(ctx context.Context, key string, data T, at time.Time) error
	Load(ctx context.Context, key string) (data T, at time.Time, ok bool, err error)
}

type Options struct {
	// StaleTime is how long a success is served before a read triggers a
	// background refetch. Zero means every read refetches.
	StaleTime time.Duration
	// FetchTimeout bounds each fetch. Zero means no bound.
	FetchTimeout time.Duration
	Logger       logging.Logger
	Now          func() time.Time
}

type entry[T any] struct {
	fetch    Fetcher[T]
	res      Result[T]
	fetched  bool
	inFlight bool
	done     chan struct{}
	// seq numbers the fetches of this entry. Only the fetch with the latest
	// seq may settle res.
	seq    uint64
	cancel context.CancelFunc
}

// Client is a keyed query cache. The zero value is not usable; use New.
type Client[T any] struct {
	mu        sync.Mutex
	entries   map[string]*entry[T]
	group     singleflight.Group
	opts      Options
	persister Persister[T]
	wg        sync.WaitGroup
}

// New returns a Client. persister may be nil.
func New[T any](opts Options, persister Persister[T]) *Client[T] {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client[T]{
		entries:   make(map[string]*entry[T]),
		opts:      opts,
		persister: persister,
	}
}

// Register binds key to fetch. Registering a key again replaces its fetcher
// and keeps its cached result.
func (c *Client[T]) Register(key string, fetch Fetcher[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		return
	}
	c.entries[key] = &entry[T]{fetch: fetch, res: Result[T]{Status: StatusPending}}
}

// Query returns the current result for key. It starts a fetch when the key
// has never been fetched, last failed, or holds a stale success; the
// returned snapshot is pending in that case and keeps any earlier data.
func (c *Client[T]) Query(key string) (Result[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[T]{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !e.inFlight && c.needsFetch(e) {
		c.start(key, e)
	}
	return e.res, nil
}

// Refetch calls the fetcher for key again and waits for it like Wait. A fetch
// already running is canceled and its result discarded, since it may have
// read the remote state before a write the caller just made.
func (c *Client[T]) Refetch(ctx context.Context, key string) (Result[T], error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Result[T]{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	c.start(key, e)
	return c.await(ctx, e)
}

// Wait is Query followed by a wait for the running fetch to settle. When ctx
// ends first the pending result is returned together with ctx.Err().
func (c *Client[T]) Wait(ctx context.Context, key string) (Result[T], error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Result[T]{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !e.inFlight && c.needsFetch(e) {
		c.start(key, e)
	}
	return c.await(ctx, e)
}

// await must be called with c.mu held; it releases it.
func (c *Client[T]) await(ctx context.Context, e *entry[T]) (Result[T], error) {
	if !e.inFlight {
		res := e.res
		c.mu.Unlock()
		return res, nil
	}
	done := e.done
	c.mu.Unlock()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.mu.Lock()
	res := e.res
	c.mu.Unlock()
	return res, err
}

// Peek returns the current result without starting a fetch.
func (c *Client[T]) Peek(key string) (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[T]{}, false
	}
	return e.res, true
}

// Restore seeds key from the persister. It does nothing when key already
// holds data or the persister has nothing stored.
func (c *Client[T]) Restore(ctx context.Context, key string) error {
	if c.persister == nil {
		return nil
	}
	data, at, ok, err := c.persister.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("restore %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if e.res.HasData {
		return nil
	}
	e.res = Result[T]{Status: StatusSuccess, Data: data, HasData: true, UpdatedAt: at}
	if e.inFlight {
		e.res.Status = StatusPending
	}
	e.fetched = true
	c.opts.Logger.Info(ctx, "query restored", "key", key, "updated_at", at)
	return nil
}

// Close waits for running fetches to settle.
func (c *Client[T]) Close() {
	c.wg.Wait()
}

func (c *Client[T]) needsFetch(e *entry[T]) bool {
	if !e.fetched {
		return true
	}
	switch e.res.Status {
	case StatusError:
		return true
	case StatusSuccess:
		return !c.opts.Now().Before(e.res.UpdatedAt.Add(c.opts.StaleTime))
	}
	return false
}

// start must be called with c.mu held. When e is already in flight the
// running fetch is superseded: waiters keep waiting on the same done channel
// until the new fetch settles.
func (c *Client[T]) start(key string, e *entry[T]) {
	if e.inFlight {
		e.cancel()
		c.group.Forget(key)
	} else {
		e.inFlight = true
		e.done = make(chan struct{})
	}
	e.seq++
	e.res.Status = StatusPending
	e.res.Err = nil

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.opts.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.opts.FetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	e.cancel = cancel

	seq, fetch := e.seq, e.fetch
	ch := c.group.DoChan(key, func() (any, error) {
		return fetch(ctx)
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		r := <-ch
		c.settle(key, e, seq, r)
	}()
}

func (c *Client[T]) settle(key string, e *entry[T], seq uint64, r singleflight.Result) {
	ctx := context.Background()
	now := c.opts.Now()

	c.mu.Lock()
	if seq != e.seq {
		c.mu.Unlock()
		c.opts.Logger.Debug(ctx, "superseded fetch discarded", "key", key)
		return
	}
	e.cancel()
	e.cancel = nil
	e.inFlight = false
	e.fetched = true
	if r.Err != nil {
		e.res = Result[T]{Status: StatusError, Err: r.Err, UpdatedAt: now}
	} else {
		data, _ := r.Val.(T)
		e.res = Result[T]{Status: StatusSuccess, Data: data, HasData: true, UpdatedAt: now}
	}
	res := e.res
	close(e.done)
	c.mu.Unlock()

	if res.Failed() {
		c.opts.Logger.Warn(ctx, "query failed", "key", key, "error", res.Err)
		return
	}
	c.opts.Logger.Debug(ctx, "query settled", "key", key)
	if c.persister == nil {
		return
	}
	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}
	if err := c.persister.Save(ctx, key, res.Data, res.UpdatedAt); err != nil {
		c.opts.Logger.Error(ctx, "persist query result", "key", key, "error", err)
	}
}
