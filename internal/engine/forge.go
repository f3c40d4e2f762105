package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/kofron/lattice/internal/auth"
	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/forge"
	"github.com/kofron/lattice/internal/scanner"
	"github.com/kofron/lattice/internal/secretstore"
)

// tokenSource adapts auth.TokenProvider to oauth2.TokenSource, the shape
// forge.NewAdapter (and go-github's underlying client) expect. This is
// the one place a TokenProvider crosses into oauth2/forge territory.
type tokenSource struct {
	ctx      context.Context
	provider *auth.TokenProvider
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.provider.BearerToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok}, nil
}

// repoAuthCheckFunc builds the CheckFunc auth.RepoAuthorizer needs: a
// cheap, read-only forge call that only succeeds if the token is valid
// and the caller can see this repository.
func repoAuthCheckFunc(adapter forge.Adapter) auth.CheckFunc {
	return func(ctx context.Context, _ string) (bool, error) {
		_, err := adapter.ListOpenPRs(ctx, forge.ListOpenPRsOptions{Limit: 1})
		return err == nil, nil
	}
}

// ensureForge builds this Engine's forge adapter and repo authorizer on
// first use and caches both for the remainder of the process; one
// invocation touches at most one remote, so there is nothing to key the
// cache by.
func (e *Engine) ensureForge(ctx context.Context, snap *scanner.RepoSnapshot) error {
	if e.Exec.Forge != nil {
		return nil
	}

	remoteURL, err := e.Git.RemoteURL(ctx, snap.Config.Remote)
	if err != nil {
		return fmt.Errorf("resolving remote %s: %w", snap.Config.Remote, err)
	}

	host := snap.Config.Forge.Host
	if host == "" {
		host = "github.com"
	}

	provider, err := e.tokenProviderFor(ctx, host)
	if err != nil {
		return err
	}

	adapter, err := forge.NewAdapter(remoteURL, tokenSource{ctx: ctx, provider: provider})
	if err != nil {
		return fmt.Errorf("building forge adapter: %w", err)
	}

	e.Exec.Forge = adapter
	e.repoAuthorizer = auth.NewRepoAuthorizer(provider, e.Paths.GitHubAuthCache(), repoAuthCheckFunc(adapter))
	return nil
}

func (e *Engine) tokenProviderFor(ctx context.Context, host string) (*auth.TokenProvider, error) {
	if e.tokenProvider != nil {
		return e.tokenProvider, nil
	}
	secrets, err := secretstore.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to secret store: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	e.tokenProvider = auth.NewTokenProvider(secrets, homeDir, host)
	return e.tokenProvider, nil
}

// foldRemoteCapabilities evaluates the hosted capabilities
// (RemoteResolved/AuthAvailable/RepoAuthorized) the Scanner deliberately
// leaves unset, since they depend on a forge identity only a command's
// requirement set names. Capabilities that hold are written into
// snap.Capabilities directly; the rest come back as blocking issues for
// the Gate to report.
func (e *Engine) foldRemoteCapabilities(ctx context.Context, snap *scanner.RepoSnapshot, reqs capability.RequirementSet) []capability.Issue {
	var remoteReqs, authReqs, repoReqs []capability.Capability
	for _, r := range reqs {
		s := string(r)
		switch {
		case strings.HasPrefix(s, "RemoteResolved:"):
			remoteReqs = append(remoteReqs, r)
		case strings.HasPrefix(s, "AuthAvailable:"):
			authReqs = append(authReqs, r)
		case strings.HasPrefix(s, "RepoAuthorized:"):
			repoReqs = append(repoReqs, r)
		}
	}
	if len(remoteReqs) == 0 && len(authReqs) == 0 && len(repoReqs) == 0 {
		return nil
	}

	host := snap.Config.Forge.Host
	if host == "" {
		host = "github.com"
	}

	var issues []capability.Issue

	remoteURL, err := e.Git.RemoteURL(ctx, snap.Config.Remote)
	remoteOK := err == nil && forge.IsPlatformSupported(remoteURL)
	for _, r := range remoteReqs {
		snap.Capabilities[r] = remoteOK
		if !remoteOK {
			issues = append(issues, capability.Issue{
				ID:                 "remote-unresolved:" + snap.Config.Remote,
				Severity:           capability.Blocking,
				Message:            "remote " + snap.Config.Remote + " is missing or points at an unsupported forge platform",
				Evidence:           snap.Config.Remote,
				BlocksCapabilities: []capability.Capability{r},
			})
		}
	}

	hostedReqs := append(append([]capability.Capability{}, authReqs...), repoReqs...)
	if !remoteOK {
		for _, r := range hostedReqs {
			issues = append(issues, capability.Issue{
				ID:                 "remote-unresolved:" + snap.Config.Remote,
				Severity:           capability.Blocking,
				Message:            "cannot evaluate forge authorization without a resolved remote",
				BlocksCapabilities: []capability.Capability{r},
			})
		}
		return issues
	}
	if len(hostedReqs) == 0 {
		return issues
	}

	if err := e.ensureForge(ctx, snap); err != nil {
		for _, r := range hostedReqs {
			issues = append(issues, capability.Issue{
				ID:                 "auth-unavailable:" + host,
				Severity:           capability.Blocking,
				Message:            "building forge client failed: " + err.Error(),
				BlocksCapabilities: []capability.Capability{r},
			})
		}
		return issues
	}

	authorized, _, authErr := e.repoAuthorizer.IsAuthorized(ctx)
	authOK := authErr == nil
	for _, r := range authReqs {
		snap.Capabilities[r] = authOK
		if !authOK {
			issues = append(issues, capability.Issue{
				ID:                 "auth-unavailable:" + host,
				Severity:           capability.Blocking,
				Message:            "no valid credential for " + host,
				BlocksCapabilities: []capability.Capability{r},
			})
		}
	}
	for _, r := range repoReqs {
		ok := authOK && authorized
		snap.Capabilities[r] = ok
		if !ok {
			issues = append(issues, capability.Issue{
				ID:                 "repo-unauthorized:" + host,
				Severity:           capability.Blocking,
				Message:            "not authorized against the forge installation for this repository",
				BlocksCapabilities: []capability.Capability{r},
			})
		}
	}
	return issues
}
