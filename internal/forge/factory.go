package forge

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/kofron/lattice/internal/forge/github"
)

// NewAdapter sniffs remoteURL for its hosting platform and returns the
// matching Adapter, authenticated with ts. v1 ships GitHub only; GitLab
// and Bitbucket are named so a later adapter is a drop-in addition rather
// than a factory rewrite.
func NewAdapter(remoteURL string, ts oauth2.TokenSource) (Adapter, error) {
	platform := detectPlatform(remoteURL)

	switch platform {
	case "github":
		return github.NewClient(remoteURL, ts)
	case "gitlab":
		return nil, fmt.Errorf("gitlab support not yet implemented")
	case "bitbucket":
		return nil, fmt.Errorf("bitbucket support not yet implemented")
	default:
		return nil, fmt.Errorf("unsupported forge platform for remote %q", remoteURL)
	}
}

// detectPlatform identifies the platform from a remote URL.
func detectPlatform(remoteURL string) string {
	switch {
	case strings.Contains(remoteURL, "github.com"):
		return "github"
	case strings.Contains(remoteURL, "gitlab.com"):
		return "gitlab"
	case strings.Contains(remoteURL, "bitbucket.org"):
		return "bitbucket"
	default:
		return "unknown"
	}
}

// IsPlatformSupported reports whether remoteURL points to a forge v1 can
// drive. Only GitHub is fully supported today.
func IsPlatformSupported(remoteURL string) bool {
	return detectPlatform(remoteURL) == "github"
}
