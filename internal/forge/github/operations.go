package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v58/github"

	"github.com/kofron/lattice/internal/forge"
)

// defaultListCap bounds ListOpenPRs pagination.
const defaultListCap = 200

const perPage = 100

func (c *Client) CreatePR(ctx context.Context, req forge.CreatePRRequest) (*forge.PullRequest, error) {
	start := time.Now()
	pr, resp, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
		Head:  github.String(req.Head),
		Base:  github.String(req.Base),
		Draft: github.Bool(req.Draft),
	})
	c.logCall("CreatePR", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	return toPullRequest(pr), nil
}

func (c *Client) UpdatePR(ctx context.Context, number int, req forge.UpdatePRRequest) (*forge.PullRequest, error) {
	patch := &github.PullRequest{}
	if req.Title != nil {
		patch.Title = req.Title
	}
	if req.Body != nil {
		patch.Body = req.Body
	}
	if req.Base != nil {
		patch.Base = &github.PullRequestBranch{Ref: req.Base}
	}

	start := time.Now()
	pr, resp, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, patch)
	c.logCall("UpdatePR", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	return toPullRequest(pr), nil
}

func (c *Client) GetPR(ctx context.Context, number int) (*forge.PullRequest, error) {
	start := time.Now()
	pr, resp, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	c.logCall("GetPR", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	return toPullRequest(pr), nil
}

// FindPRByHead returns the open PR whose head branch is headBranch, or nil
// if none exists.
func (c *Client) FindPRByHead(ctx context.Context, headBranch string) (*forge.PullRequest, error) {
	start := time.Now()
	prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", c.owner, headBranch),
	})
	c.logCall("FindPRByHead", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return toPullRequest(prs[0]), nil
}

// ListOpenPRs pages through open PRs (go-github's ListOptions{Page,
// PerPage} loop pattern), sorted updated-descending, stopping at
// defaultListCap (or opts.Limit if smaller and positive) and reporting
// Truncated=true whenever the cap is reached exactly, even if that happens
// to coincide with the forge's true total.
func (c *Client) ListOpenPRs(ctx context.Context, opts forge.ListOpenPRsOptions) (forge.ListOpenPRsResult, error) {
	limit := defaultListCap
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}

	listOpts := &github.PullRequestListOptions{
		State:     "open",
		Base:      opts.Base,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var pulls []forge.PullRequest
	for {
		start := time.Now()
		page, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, listOpts)
		c.logCall("ListOpenPRs", resp, start)
		if err != nil {
			return forge.ListOpenPRsResult{}, classify(resp, err)
		}

		for _, pr := range page {
			if len(pulls) >= limit {
				return forge.ListOpenPRsResult{Pulls: pulls, Truncated: true}, nil
			}
			pulls = append(pulls, *toPullRequest(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return forge.ListOpenPRsResult{Pulls: pulls, Truncated: len(pulls) >= limit}, nil
}

func (c *Client) SetDraft(ctx context.Context, number int, draft bool) (*forge.PullRequest, error) {
	start := time.Now()
	pr, resp, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Draft: github.Bool(draft),
	})
	c.logCall("SetDraft", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	return toPullRequest(pr), nil
}

func (c *Client) RequestReviewers(ctx context.Context, number int, reviewers []string) error {
	start := time.Now()
	_, resp, err := c.client.PullRequests.RequestReviewers(ctx, c.owner, c.repo, number, github.ReviewersRequest{
		Reviewers: reviewers,
	})
	c.logCall("RequestReviewers", resp, start)
	if err != nil {
		return classify(resp, err)
	}
	return nil
}

func (c *Client) MergePR(ctx context.Context, number int, opts forge.MergePROptions) error {
	start := time.Now()
	_, resp, err := c.client.PullRequests.Merge(ctx, c.owner, c.repo, number, opts.CommitMessage, &github.PullRequestOptions{
		CommitTitle: opts.CommitTitle,
		MergeMethod: opts.Method,
	})
	c.logCall("MergePR", resp, start)
	if err != nil {
		return classify(resp, err)
	}
	return nil
}

func toPullRequest(pr *github.PullRequest) *forge.PullRequest {
	return &forge.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Head:      pr.GetHead().GetRef(),
		Base:      pr.GetBase().GetRef(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		Merged:    pr.GetMerged(),
		URL:       pr.GetHTMLURL(),
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

func (c *Client) logCall(op string, resp *github.Response, start time.Time) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	endpoint := fmt.Sprintf("%s/%s", c.owner, c.repo)
	forge.LogAPICall(op, endpoint, status, time.Since(start))
	c.log.Debugf("%s %s -> %d", op, endpoint, status)
}

// classify turns a go-github error into a *forge.APIError carrying one of
// the forge.ErrorKind values (RateLimited, AuthRequired, AuthFailed, ...).
func classify(resp *github.Response, err error) error {
	status := http.StatusInternalServerError
	if resp != nil {
		status = resp.StatusCode
	}
	return forge.ClassifyGitHubError(status, err)
}
