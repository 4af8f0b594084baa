// Package tracker provides the cache-aware issue operations behind chat commands.
package tracker

import (
	"context"
	"errors"

	"github.com/hellausefulsoftware/gitircbot/internal/cache"
	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/hellausefulsoftware/gitircbot/internal/models"
)

// ErrNotFound is matched by errors for issues the tracker reports as missing.
// Client implementations must wrap it for 404-style responses.
var ErrNotFound = errors.New("not found")

// Client is the issue tracker wire client.
type Client interface {
	FetchIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error)
	FetchComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*models.Issue, error)
	PostComment(ctx context.Context, owner, repo string, number int, body string) (*models.Comment, error)
}

// Shortener turns long links into short ones.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Project identifies the repository the bot serves.
type Project struct {
	Owner         string
	Repo          string
	DefaultBranch string
}

// Service wraps the tracker client with caching and URL shortening.
type Service struct {
	client    Client
	cache     *cache.IssueCache
	shortener Shortener
	project   Project
}

// NewService creates an issue service for project. A nil shortener disables
// link shortening.
func NewService(client Client, issueCache *cache.IssueCache, shortener Shortener, project Project) *Service {
	return &Service{
		client:    client,
		cache:     issueCache,
		shortener: shortener,
		project:   project,
	}
}

// Project returns the repository the service operates on.
func (s *Service) Project() Project {
	return s.project
}

func (s *Service) issueKey(number int) string {
	return cache.Key(s.project.Owner, s.project.Repo, s.project.DefaultBranch, number)
}

// LookupIssue returns the issue and all of its comments, from cache when
// possible. A missing issue yields an error matching ErrNotFound.
func (s *Service) LookupIssue(ctx context.Context, number int) (*models.IssueThread, error) {
	return s.cache.GetOrFetch(ctx, s.issueKey(number), func(fetchCtx context.Context) (*models.IssueThread, error) {
		return s.fetchThread(fetchCtx, number)
	})
}

func (s *Service) fetchThread(ctx context.Context, number int) (*models.IssueThread, error) {
	issue, err := s.client.FetchIssue(ctx, s.project.Owner, s.project.Repo, number)
	if err != nil {
		return nil, err
	}

	thread := &models.IssueThread{Issue: *issue}
	if issue.CommentCount > 0 {
		comments, err := s.client.FetchComments(ctx, s.project.Owner, s.project.Repo, number)
		if err != nil {
			return nil, err
		}
		thread.Comments = comments
	}
	return thread, nil
}

// CreateIssue opens a new issue. The result is not cached: comments tend to
// follow right away and would make the snapshot stale.
func (s *Service) CreateIssue(ctx context.Context, title, body string) (*models.Issue, error) {
	return s.client.CreateIssue(ctx, s.project.Owner, s.project.Repo, title, body)
}

// CommentOnIssue posts a comment and folds it into the cached thread, if any.
func (s *Service) CommentOnIssue(ctx context.Context, number int, body string) (*models.Comment, error) {
	comment, err := s.client.PostComment(ctx, s.project.Owner, s.project.Repo, number, body)
	if err != nil {
		return nil, err
	}
	s.cache.ApplyCommentMutation(s.issueKey(number), *comment)
	return comment, nil
}

// IssueURL returns the (possibly shortened) link to an issue.
func (s *Service) IssueURL(ctx context.Context, issue models.Issue) string {
	return s.shorten(ctx, issue.URL)
}

// CommentURL returns the (possibly shortened) link to a comment.
func (s *Service) CommentURL(ctx context.Context, comment models.Comment) string {
	return s.shorten(ctx, comment.URL)
}

// shorten never fails: any shortener problem falls back to the original link.
func (s *Service) shorten(ctx context.Context, url string) string {
	if s.shortener == nil || url == "" {
		return url
	}
	short, err := s.shortener.Shorten(ctx, url)
	if err != nil {
		logging.Debug("URL shortening failed, using original", "url", url, "error", err)
		return url
	}
	return short
}

// IsNotFound reports whether err means the issue does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
