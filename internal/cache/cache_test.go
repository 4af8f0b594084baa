package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hellausefulsoftware/gitircbot/internal/models"
)

// newTestCache returns a cache driven by a manually advanced clock.
func newTestCache(ttl time.Duration) (*IssueCache, func(time.Duration)) {
	c := NewIssueCache(ttl)
	var mu sync.Mutex
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}
	return c, advance
}

func countingFetch(calls *int32, thread models.IssueThread) FetchFunc {
	return func(context.Context) (*models.IssueThread, error) {
		atomic.AddInt32(calls, 1)
		return thread.Clone(), nil
	}
}

func TestKey(t *testing.T) {
	if got, want := Key("octo", "bot", "master", 42), "octo/bot/master/issue/42"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestNewIssueCacheDefaultTTL(t *testing.T) {
	if got := NewIssueCache(0).TTL(); got != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", got, DefaultTTL)
	}
}

func TestGetOrFetchCachesWithinTTL(t *testing.T) {
	c, advance := newTestCache(30 * time.Minute)
	var calls int32
	fetch := countingFetch(&calls, models.IssueThread{Issue: models.Issue{Number: 7, Title: "Crash"}})
	key := Key("o", "r", "master", 7)

	first, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if first.Issue.Title != "Crash" {
		t.Errorf("Title = %q, want Crash", first.Issue.Title)
	}

	advance(29 * time.Minute)
	if _, err := c.GetOrFetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times within TTL, want 1", calls)
	}

	advance(time.Minute)
	if _, err := c.GetOrFetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times after expiry, want 2", calls)
	}
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	boom := errors.New("boom")
	var calls int32
	fetch := func(context.Context) (*models.IssueThread, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	}

	for i := 0; i < 2; i++ {
		if _, err := c.GetOrFetch(context.Background(), "k", fetch); !errors.Is(err, boom) {
			t.Fatalf("GetOrFetch error = %v, want %v", err, boom)
		}
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestApplyCommentMutation(t *testing.T) {
	c, advance := newTestCache(30 * time.Minute)
	var calls int32
	key := Key("o", "r", "master", 3)
	fetch := countingFetch(&calls, models.IssueThread{
		Issue:    models.Issue{Number: 3, CommentCount: 1},
		Comments: []models.Comment{{ID: 1, Body: "first"}},
	})

	if _, err := c.GetOrFetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}

	advance(20 * time.Minute)
	if !c.ApplyCommentMutation(key, models.Comment{ID: 2, Body: "second"}) {
		t.Fatal("ApplyCommentMutation reported a miss for a cached key")
	}

	got, err := c.GetOrFetch(context.Background(), key, fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if got.Issue.CommentCount != 2 {
		t.Errorf("CommentCount = %d, want 2", got.Issue.CommentCount)
	}
	want := []models.Comment{{ID: 1, Body: "first"}, {ID: 2, Body: "second"}}
	if diff := cmp.Diff(want, got.Comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}

	// The mutation must not extend the entry's lifetime.
	advance(10 * time.Minute)
	if _, err := c.GetOrFetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2 (mutation refreshed expiry)", calls)
	}
}

func TestApplyCommentMutationMissingKey(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	if c.ApplyCommentMutation("absent", models.Comment{ID: 1}) {
		t.Error("ApplyCommentMutation reported a hit for an absent key")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestReturnedThreadIsACopy(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int32
	fetch := countingFetch(&calls, models.IssueThread{Issue: models.Issue{Title: "original"}})

	got, err := c.GetOrFetch(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	got.Issue.Title = "scribbled"
	got.Comments = append(got.Comments, models.Comment{ID: 9})

	again, err := c.GetOrFetch(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if again.Issue.Title != "original" || len(again.Comments) != 0 {
		t.Errorf("cached entry was modified through a returned value: %+v", again)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (*models.IssueThread, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &models.IssueThread{Issue: models.Issue{Number: 1}}, nil
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrFetch(context.Background(), "k", fetch); err != nil {
				errs <- err
			}
			c.ApplyCommentMutation("k", models.Comment{ID: 1})
		}()
	}
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("GetOrFetch returned error: %v", err)
	}
	if calls < 1 || calls > workers {
		t.Errorf("fetch called %d times", calls)
	}

	got, err := c.GetOrFetch(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if got.Issue.CommentCount != len(got.Comments) {
		t.Errorf("CommentCount %d does not match %d comments", got.Issue.CommentCount, len(got.Comments))
	}
}

func TestWaiterDeadlineDoesNotDependOnStuckFetch(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int32
	stuck := make(chan struct{})
	defer close(stuck)
	fetch := func(context.Context) (*models.IssueThread, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-stuck
		}
		return &models.IssueThread{Issue: models.Issue{Number: 5}}, nil
	}

	go c.GetOrFetch(context.Background(), "k", fetch)
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.GetOrFetch(ctx, "k", fetch)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("GetOrFetch error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GetOrFetch returned after %v, want about 50ms", elapsed)
	}

	// A later caller starts its own fetch rather than joining the stuck one.
	got, err := c.GetOrFetch(context.Background(), "k", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch returned error: %v", err)
	}
	if got.Issue.Number != 5 {
		t.Errorf("Number = %d, want 5", got.Issue.Number)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch called %d times, want 2", n)
	}
}

func TestCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int32
	release := make(chan struct{})
	firstFetchErr := make(chan error, 1)
	fetch := func(ctx context.Context) (*models.IssueThread, error) {
		n := atomic.AddInt32(&calls, 1)
		<-release
		if n == 1 {
			firstFetchErr <- ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &models.IssueThread{Issue: models.Issue{Number: 6}}, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctxA, "k", fetch)
		errA <- err
	}()
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 1 })

	type result struct {
		thread *models.IssueThread
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		thread, err := c.GetOrFetch(context.Background(), "k", fetch)
		resB <- result{thread, err}
	}()

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}
	close(release)

	select {
	case res := <-resB:
		if res.err != nil {
			t.Fatalf("second caller got error %v", res.err)
		}
		if res.thread.Issue.Number != 6 {
			t.Errorf("Number = %d, want 6", res.thread.Issue.Number)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}

	if err := <-firstFetchErr; err != nil {
		t.Errorf("shared fetch saw the first caller's cancellation: %v", err)
	}
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
