// Package github fetches pull-request changed files and publishes the
// coverage comment.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/jupierce/pr-coverage/pkg/coverage"
	"github.com/jupierce/pr-coverage/pkg/log"
)

// CommentMarker identifies comments created by this tool so they can be
// updated in place on later runs.
const CommentMarker = "<!-- PR Test Coverage Report -->"

const perPage = 100

// PullRequest identifies a pull request
type PullRequest struct {
	Owner  string
	Repo   string
	Number int
}

func (p PullRequest) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}

// Client wraps the GitHub REST API calls the tool needs
type Client struct {
	gh     *gh.Client
	logger *log.Logger
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at a GitHub Enterprise or test server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parse base URL: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithLogger sets the client's logger
func WithLogger(l *log.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// NewClient creates a client authenticated with token
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	c := &Client{
		gh:     gh.NewClient(httpClient),
		logger: log.Discard(),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ChangedFiles lists every file in the pull request, 100 per page, stopping
// at the first short page.
func (c *Client) ChangedFiles(ctx context.Context, pr PullRequest) ([]coverage.ChangedFile, error) {
	var out []coverage.ChangedFile

	for page := 1; ; page++ {
		files, _, err := c.gh.PullRequests.ListFiles(ctx, pr.Owner, pr.Repo, pr.Number, &gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			c.logger.Error("Failed to get changed files: %v", err)
			return nil, fmt.Errorf("failed to get changed files: %w", err)
		}
		c.logger.Trace("Fetched page %d of changed files for %s (%d files)", page, pr, len(files))

		for _, f := range files {
			out = append(out, coverage.ChangedFile{
				Filename: f.GetFilename(),
				Status:   coverage.FileStatus(f.GetStatus()),
			})
		}

		if len(files) < perPage {
			break
		}
	}

	return out, nil
}

// PostComment publishes body on the pull request. When update is set, the
// first existing comment carrying CommentMarker is edited instead of adding a
// new one.
func (c *Client) PostComment(ctx context.Context, pr PullRequest, body string, update bool) error {
	full := CommentMarker + "\n" + body

	if update {
		id, found := c.findExistingComment(ctx, pr)
		if found {
			_, _, err := c.gh.Issues.EditComment(ctx, pr.Owner, pr.Repo, id, &gh.IssueComment{Body: gh.String(full)})
			if err != nil {
				c.logger.Error("Failed to post/update comment: %v", err)
				return fmt.Errorf("failed to update comment %d: %w", id, err)
			}
			c.logger.Info("Updated existing comment (ID: %d)", id)
			return nil
		}
	}

	_, _, err := c.gh.Issues.CreateComment(ctx, pr.Owner, pr.Repo, pr.Number, &gh.IssueComment{Body: gh.String(full)})
	if err != nil {
		c.logger.Error("Failed to post/update comment: %v", err)
		return fmt.Errorf("failed to create comment: %w", err)
	}
	c.logger.Info("Created new comment")
	return nil
}

// findExistingComment scans all issue comments for the marker. Lookup errors
// are logged and treated as "not found" so a fresh comment is posted.
func (c *Client) findExistingComment(ctx context.Context, pr PullRequest) (int64, bool) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, pr.Owner, pr.Repo, pr.Number, opts)
		if err != nil {
			c.logger.Warning("Failed to find existing comment: %v", err)
			return 0, false
		}
		for _, cm := range comments {
			if strings.Contains(cm.GetBody(), CommentMarker) {
				return cm.GetID(), true
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return 0, false
		}
		opts.Page = resp.NextPage
	}
}
