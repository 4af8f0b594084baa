// Package github is the GitHub implementation of the bot's issue tracker.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v45/github"
	"github.com/hellausefulsoftware/gitircbot/internal/logging"
	"github.com/hellausefulsoftware/gitircbot/internal/models"
	"golang.org/x/oauth2"
)

const perPage = 100

// RequestTimeout bounds every GitHub API call, so a stalled request ends
// with an error instead of holding its caller forever.
const RequestTimeout = 30 * time.Second

// Client handles GitHub API interactions
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub client. An empty token gives an
// unauthenticated client, which can read public issues only.
func NewClient(token string) *Client {
	return &Client{
		client: github.NewClient(newHTTPClient(token)),
	}
}

func newHTTPClient(token string) *http.Client {
	tc := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(context.Background(), ts)
	}
	tc.Timeout = RequestTimeout
	return tc
}

// FetchIssue gets a single issue. A missing issue yields an error matching
// ErrNotFound.
func (c *Client) FetchIssue(ctx context.Context, owner, repo string, number int) (*models.Issue, error) {
	issue, resp, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, translate("get issue", resp, err)
	}

	result := convertIssue(owner, repo, issue)
	return &result, nil
}

// FetchComments gets every comment on an issue, oldest first.
func (c *Client) FetchComments(ctx context.Context, owner, repo string, number int) ([]models.Comment, error) {
	var allComments []models.Comment
	opts := &github.IssueListCommentsOptions{
		Sort:      github.String("created"),
		Direction: github.String("asc"),
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, translate("list comments", resp, err)
		}

		for _, comment := range comments {
			allComments = append(allComments, convertComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.Debug("Fetched issue comments", "owner", owner, "repo", repo, "issue", number, "count", len(allComments))
	return allComments, nil
}

// CreateIssue opens a new issue
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (*models.Issue, error) {
	issue, resp, err := c.client.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, translate("create issue", resp, err)
	}

	logging.Info("Created issue", "owner", owner, "repo", repo, "issue", issue.GetNumber())
	result := convertIssue(owner, repo, issue)
	return &result, nil
}

// PostComment posts a comment on an issue
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int, body string) (*models.Comment, error) {
	comment, resp, err := c.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return nil, translate("create issue comment", resp, err)
	}

	logging.Info("Posted issue comment", "owner", owner, "repo", repo, "issue", number, "comment_id", comment.GetID())
	result := convertComment(comment)
	return &result, nil
}

// VerifyAccess checks that the token authenticates and can see the
// repository. It returns the authenticated login.
func (c *Client) VerifyAccess(ctx context.Context, owner, repo string) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", translate("get authenticated user", resp, err)
	}

	repository, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", translate("get repository", resp, err)
	}
	if !repository.GetHasIssues() {
		return "", fmt.Errorf("repository %s/%s has issues disabled", owner, repo)
	}

	return user.GetLogin(), nil
}

func convertIssue(owner, repo string, issue *github.Issue) models.Issue {
	return models.Issue{
		Owner:        owner,
		Repo:         repo,
		Number:       issue.GetNumber(),
		Title:        issue.GetTitle(),
		Body:         issue.GetBody(),
		User:         issue.GetUser().GetLogin(),
		State:        issue.GetState(),
		CreatedAt:    issue.GetCreatedAt(),
		UpdatedAt:    issue.GetUpdatedAt(),
		CommentCount: issue.GetComments(),
		URL:          issue.GetHTMLURL(),
	}
}

func convertComment(comment *github.IssueComment) models.Comment {
	return models.Comment{
		ID:        comment.GetID(),
		User:      comment.GetUser().GetLogin(),
		Body:      comment.GetBody(),
		CreatedAt: comment.GetCreatedAt(),
		URL:       comment.GetHTMLURL(),
	}
}
