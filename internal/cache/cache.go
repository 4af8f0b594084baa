// Package cache memoizes issue threads fetched from the tracker.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/hellausefulsoftware/gitircbot/internal/models"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched issue thread is served from memory.
const DefaultTTL = 30 * time.Minute

// Key builds the cache key for an issue. The branch is part of the key
// because one cache is shared by everything configured for a project.
func Key(owner, repo, branch string, issueNumber int) string {
	return fmt.Sprintf("%s/%s/%s/issue/%d", owner, repo, branch, issueNumber)
}

// FetchFunc retrieves a full issue thread from the tracker.
type FetchFunc func(ctx context.Context) (*models.IssueThread, error)

type entry struct {
	thread    *models.IssueThread
	expiresAt time.Time
}

// IssueCache is a TTL cache of issue threads. Entries expire lazily: a stale
// entry is only noticed, and dropped, by the next GetOrFetch for its key.
//
// IssueCache is safe for concurrent use. The lock is never held while a
// fetch is in flight.
type IssueCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	group singleflight.Group
}

// NewIssueCache creates a cache whose entries live for ttl.
// A non-positive ttl selects DefaultTTL.
func NewIssueCache(ttl time.Duration) *IssueCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IssueCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// TTL returns the lifetime given to new entries.
func (c *IssueCache) TTL() time.Duration {
	return c.ttl
}

// GetOrFetch returns a copy of the cached thread for key, calling fetch to
// populate the entry when it is missing or expired. Concurrent misses on
// the same key share a single fetch. Fetch errors are returned and nothing
// is stored.
//
// Each caller waits only as long as its own ctx allows. The shared fetch
// runs on a context detached from the caller that started it, so one
// caller giving up never fails the others.
func (c *IssueCache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (*models.IssueThread, error) {
	if thread, ok := c.lookup(key); ok {
		logging.Debug("Issue cache hit", "key", key)
		return thread, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		logging.Debug("Issue cache miss", "key", key)
		thread, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, thread)
		return thread, nil
	})

	select {
	case <-ctx.Done():
		// Let the next caller start a fresh fetch instead of joining one
		// that may be stuck.
		c.group.Forget(key)
		logging.Debug("Gave up waiting for issue fetch", "key", key, "error", ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logging.Debug("Issue fetch shared between callers", "key", key)
		}

		// The fetched value is owned by the cache now; hand out a copy.
		c.mu.Lock()
		defer c.mu.Unlock()
		return res.Val.(*models.IssueThread).Clone(), nil
	}
}

// ApplyCommentMutation records a comment the bot itself posted. When key is
// cached, the comment is appended and the comment count incremented; the
// entry's expiry is left alone. Missing keys are ignored.
func (c *IssueCache) ApplyCommentMutation(key string, comment models.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.thread.Comments = append(e.thread.Comments, comment)
	e.thread.Issue.CommentCount++
	logging.Debug("Applied comment to cached issue",
		"key", key,
		"comment_id", comment.ID,
		"comments", e.thread.Issue.CommentCount)
	return true
}

// Len returns the number of stored entries, expired ones included.
func (c *IssueCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *IssueCache) lookup(key string) (*models.IssueThread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		logging.Debug("Evicted expired issue", "key", key)
		return nil, false
	}
	return e.thread.Clone(), true
}

func (c *IssueCache) store(key string, thread *models.IssueThread) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		thread:    thread,
		expiresAt: c.now().Add(c.ttl),
	}
}
