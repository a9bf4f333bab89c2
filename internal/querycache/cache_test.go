package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

// counter returns a fetcher yielding 1, 2, 3... and the number of calls.
func counter() (Fetcher[int], *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

func TestQuery_FirstReadFetches(t *testing.T) {
	c := New[int](Options{StaleTime: time.Minute}, nil)
	defer c.Close()
	fetch, calls := counter()
	c.Register("k", fetch)

	res, err := c.Query("k")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)
	assert.False(t, res.HasData)

	res, err = c.Wait(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.HasData)
	assert.Equal(t, 1, res.Data)

	res, err = c.Query("k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, int32(1), calls.Load(), "a fresh success is served from cache")
}

func TestQuery_ConcurrentReadsShareOneFetch(t *testing.T) {
	c := New[int](Options{StaleTime: time.Minute}, nil)
	defer c.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	c.Register("k", func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Query("k")
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, _ = c.Wait(ctx, "k")
		}()
	}
	wg.Wait()
	close(release)

	res, err := c.Wait(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 7, res.Data)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_StaleWhileRevalidate(t *testing.T) {
	clk := newClock()
	c := New[int](Options{StaleTime: 30 * time.Second, Now: clk.Now}, nil)
	defer c.Close()
	fetch, calls := counter()
	c.Register("k", fetch)

	_, _ = c.Query("k")
	_, err := c.Wait(context.Background(), "k")
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	res, _ := c.Query("k")
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, int32(1), calls.Load())

	clk.Advance(30 * time.Second)
	res, _ = c.Query("k")
	assert.Equal(t, StatusPending, res.Status)
	assert.True(t, res.HasData, "stale data stays visible while refetching")
	assert.Equal(t, 1, res.Data)

	res, err = c.Wait(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data)
	assert.Equal(t, clk.Now(), res.UpdatedAt)
}

func TestQuery_ErrorClearsData(t *testing.T) {
	c := New[[]string](Options{StaleTime: time.Hour}, nil)
	defer c.Close()

	boom := errors.New("boom")
	var fail atomic.Bool
	c.Register("k", func(context.Context) ([]string, error) {
		if fail.Load() {
			return nil, boom
		}
		return []string{"a"}, nil
	})

	_, _ = c.Query("k")
	res, _ := c.Wait(context.Background(), "k")
	require.True(t, res.HasData)

	fail.Store(true)
	res, err := c.Refetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.HasData)
	assert.Nil(t, res.Data)

	fail.Store(false)
	res, _ = c.Query("k")
	assert.Equal(t, StatusPending, res.Status, "a failed query is retried on the next read")
	res, _ = c.Wait(context.Background(), "k")
	if diff := cmp.Diff([]string{"a"}, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestRefetch_SupersedesRunningFetch(t *testing.T) {
	c := New[int](Options{StaleTime: time.Minute}, nil)

	var remote, calls atomic.Int32
	read := make(chan struct{})
	hold := make(chan struct{})
	c.Register("k", func(context.Context) (int, error) {
		v := int(remote.Load())
		if calls.Add(1) == 1 {
			close(read)
			<-hold
		}
		return v, nil
	})

	_, _ = c.Query("k")
	<-read
	waited := make(chan Result[int], 1)
	go func() {
		res, _ := c.Wait(context.Background(), "k")
		waited <- res
	}()

	// a write lands after the running fetch has read the remote state
	remote.Store(1)

	res, err := c.Refetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Data)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, (<-waited).Data, "earlier waiters see the newest fetch")

	close(hold)
	c.Close()
	res, _ = c.Peek("k")
	assert.Equal(t, 1, res.Data, "the superseded result is discarded")
}

func TestRefetch_CancelsSupersededFetch(t *testing.T) {
	c := New[int](Options{}, nil)
	defer c.Close()

	canceled := make(chan struct{})
	var calls atomic.Int32
	c.Register("k", func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			close(canceled)
			return 0, ctx.Err()
		}
		return 2, nil
	})

	_, _ = c.Query("k")
	res, err := c.Refetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Data)

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("superseded fetch was not canceled")
	}
}

func TestWait_ContextEndsFirst(t *testing.T) {
	c := New[int](Options{}, nil)
	defer c.Close()

	release := make(chan struct{})
	c.Register("k", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	_, _ = c.Query("k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err := c.Wait(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusPending, res.Status)

	close(release)
	res, err = c.Wait(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
}

func TestFetchTimeout(t *testing.T) {
	c := New[int](Options{FetchTimeout: 10 * time.Millisecond}, nil)
	defer c.Close()
	c.Register("k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	_, _ = c.Query("k")
	res, err := c.Wait(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestUnknownKey(t *testing.T) {
	c := New[int](Options{}, nil)
	defer c.Close()

	_, err := c.Query("missing")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = c.Refetch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = c.Wait(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, ok := c.Peek("missing")
	assert.False(t, ok)
}

type memPersister struct {
	mu    sync.Mutex
	saved map[string]int
	at    map[string]time.Time
	saves int
}

func newMemPersister() *memPersister {
	return &memPersister{saved: map[string]int{}, at: map[string]time.Time{}}
}

func (p *memPersister) Save(_ context.Context, key string, data int, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[key] = data
	p.at[key] = at
	p.saves++
	return nil
}

func (p *memPersister) Load(_ context.Context, key string) (int, time.Time, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.saved[key]
	return v, p.at[key], ok, nil
}

func TestPersister_SaveAndRestore(t *testing.T) {
	clk := newClock()
	p := newMemPersister()

	first := New[int](Options{StaleTime: time.Minute, Now: clk.Now}, p)
	first.Register("k", func(context.Context) (int, error) { return 42, nil })
	_, _ = first.Query("k")
	_, err := first.Wait(context.Background(), "k")
	require.NoError(t, err)
	first.Close()

	p.mu.Lock()
	assert.Equal(t, 42, p.saved["k"])
	assert.Equal(t, 1, p.saves)
	p.mu.Unlock()

	second := New[int](Options{StaleTime: time.Minute, Now: clk.Now}, p)
	defer second.Close()
	fetch, calls := counter()
	second.Register("k", fetch)
	require.NoError(t, second.Restore(context.Background(), "k"))

	res, err := second.Query("k")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 42, res.Data)
	assert.Equal(t, int32(0), calls.Load(), "a restored fresh result is not refetched")
}

func TestRestore_NoopCases(t *testing.T) {
	c := New[int](Options{}, nil)
	defer c.Close()
	c.Register("k", func(context.Context) (int, error) { return 1, nil })
	assert.NoError(t, c.Restore(context.Background(), "k"), "no persister")

	p := newMemPersister()
	withStore := New[int](Options{}, p)
	defer withStore.Close()
	withStore.Register("k", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, withStore.Restore(context.Background(), "k"))
	res, _ := withStore.Peek("k")
	assert.False(t, res.HasData, "nothing stored")
	assert.NoError(t, withStore.Restore(context.Background(), "missing"), "nothing stored for an unregistered key")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unknown", Status(9).String())
}
