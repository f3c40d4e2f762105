// Package github implements internal/forge.Adapter against GitHub's REST
// API: go-github/v58 plus an oauth2-backed client and a URL-sniffing
// constructor, covering the pull-request surface a forge adapter needs.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	"github.com/kofron/lattice/internal/forge"
)

// Client wraps the GitHub API client and implements forge.Adapter.
type Client struct {
	client *github.Client
	owner  string
	repo   string
	ctx    context.Context
	log    *forge.Logger
}

// NewClient builds a Client for remoteURL, authenticating every request
// with a token drawn from ts. Token discovery (env var, secret store,
// refresh-on-expiry) is the caller's concern — internal/auth.TokenProvider
// is the production source, wrapped in an oauth2.TokenSource adapter at
// the composition root — so this package stays forge-only.
func NewClient(remoteURL string, ts oauth2.TokenSource) (*Client, error) {
	owner, repo, err := parseGitHubURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub URL: %w", err)
	}

	ctx := context.Background()
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		ctx:    ctx,
		log:    forge.NewLogger(),
	}, nil
}

// parseGitHubURL extracts owner and repo from an HTTPS or SSH GitHub remote URL.
func parseGitHubURL(remoteURL string) (owner, repo string, err error) {
	if strings.HasPrefix(remoteURL, "git@github.com:") {
		parts := strings.TrimPrefix(remoteURL, "git@github.com:")
		parts = strings.TrimSuffix(parts, ".git")

		split := strings.Split(parts, "/")
		if len(split) != 2 {
			return "", "", fmt.Errorf("invalid SSH URL format")
		}
		return split[0], split[1], nil
	}

	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", "", err
	}

	if u.Host != "github.com" {
		return "", "", fmt.Errorf("not a GitHub URL: %s", u.Host)
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GitHub path: %s", path)
	}

	return parts[0], parts[1], nil
}

func (c *Client) Owner() string    { return c.owner }
func (c *Client) Repo() string     { return c.repo }
func (c *Client) Platform() string { return "github" }

var _ forge.Adapter = (*Client)(nil)
