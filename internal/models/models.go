// Package models holds the tracker-side data the bot reads and caches.
package models

import (
	"time"
)

// Issue represents a GitHub issue as seen by the bot
type Issue struct {
	Owner        string
	Repo         string
	Number       int
	Title        string
	Body         string
	User         string
	State        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CommentCount int
	URL          string
}

// Comment represents a comment on a GitHub issue
type Comment struct {
	ID        int64
	User      string
	Body      string
	CreatedAt time.Time
	URL       string
}

// IssueThread is an issue together with its full, creation-ordered comment list.
type IssueThread struct {
	Issue    Issue
	Comments []Comment
}

// LastComment returns the final comment of the thread, or false when the
// issue has none.
func (t *IssueThread) LastComment() (Comment, bool) {
	if t.Issue.CommentCount == 0 || len(t.Comments) == 0 {
		return Comment{}, false
	}
	return t.Comments[len(t.Comments)-1], true
}

// LastActor is the login of whoever last touched the thread: the last
// commenter, or the author when there are no comments.
func (t *IssueThread) LastActor() string {
	if c, ok := t.LastComment(); ok {
		return c.User
	}
	return t.Issue.User
}

// Clone returns a deep copy that shares no mutable state with t.
func (t *IssueThread) Clone() *IssueThread {
	cp := &IssueThread{Issue: t.Issue}
	if t.Comments != nil {
		cp.Comments = make([]Comment, len(t.Comments))
		copy(cp.Comments, t.Comments)
	}
	return cp
}
