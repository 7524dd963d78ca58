package githubapp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/retrier"
)

// Client performs the installation-scoped pull-request operations a review
// job needs. Tokens are minted lazily through the provider, so the first
// network call of a job is always the auth step.
type Client struct {
	tokens  *TokenProvider
	retry   retrier.Policy
	baseURL string // test override, must end with "/"
}

func NewClient(tokens *TokenProvider, retry retrier.Policy) *Client {
	return &Client{tokens: tokens, retry: retry}
}

// FetchDiff retrieves the unified diff of a pull request. The PR is resolved
// first, then its content is fetched with the diff media type. An empty diff
// is a valid result, not an error.
func (c *Client) FetchDiff(ctx context.Context, repoFullName string, prNumber int) (string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	gh := newGitHubClient(token, c.baseURL)

	var diff string
	err = c.retry.Do(ctx, func() error {
		if _, resp, err := gh.PullRequests.Get(ctx, owner, repo, prNumber); err != nil {
			return classify(err, resp)
		}
		raw, resp, err := gh.PullRequests.GetRaw(ctx, owner, repo, prNumber, github.RawOptions{Type: github.Diff})
		if err != nil {
			return classify(err, resp)
		}
		diff = raw
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetching diff: %w", err)
	}
	return diff, nil
}

// PostComment posts the review as an issue-style comment on the pull request.
func (c *Client) PostComment(ctx context.Context, repoFullName string, prNumber int, body string) error {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	gh := newGitHubClient(token, c.baseURL)

	err = c.retry.Do(ctx, func() error {
		_, resp, err := gh.Issues.CreateComment(ctx, owner, repo, prNumber, &github.IssueComment{
			Body: github.Ptr(body),
		})
		return classify(err, resp)
	})
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	return nil
}

func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository full name %q", fullName)
	}
	return owner, repo, nil
}
