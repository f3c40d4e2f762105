package forge

import (
	"testing"

	"golang.org/x/oauth2"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "github https url", url: "https://github.com/owner/repo.git", want: "github"},
		{name: "github ssh url", url: "git@github.com:owner/repo.git", want: "github"},
		{name: "gitlab https url", url: "https://gitlab.com/owner/repo.git", want: "gitlab"},
		{name: "bitbucket https url", url: "https://bitbucket.org/owner/repo.git", want: "bitbucket"},
		{name: "unknown url", url: "https://example.com/owner/repo.git", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectPlatform(tt.url); got != tt.want {
				t.Errorf("detectPlatform() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPlatformSupported(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "github is supported", url: "https://github.com/owner/repo.git", want: true},
		{name: "gitlab not yet supported", url: "https://gitlab.com/owner/repo.git", want: false},
		{name: "bitbucket not yet supported", url: "https://bitbucket.org/owner/repo.git", want: false},
		{name: "unknown not supported", url: "https://example.com/owner/repo.git", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlatformSupported(tt.url); got != tt.want {
				t.Errorf("IsPlatformSupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAdapter(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})

	tests := []struct {
		name      string
		remoteURL string
		wantErr   bool
	}{
		{name: "github url creates an adapter", remoteURL: "https://github.com/owner/repo.git"},
		{name: "gitlab url returns error", remoteURL: "https://gitlab.com/owner/repo.git", wantErr: true},
		{name: "bitbucket url returns error", remoteURL: "https://bitbucket.org/owner/repo.git", wantErr: true},
		{name: "unknown platform returns error", remoteURL: "https://example.com/owner/repo.git", wantErr: true},
		{name: "invalid url returns error", remoteURL: "not-a-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.remoteURL, ts)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAdapter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if adapter == nil {
					t.Fatal("NewAdapter() returned nil adapter")
				}
				if adapter.Platform() != "github" {
					t.Errorf("Platform() = %v, want github", adapter.Platform())
				}
			}
		})
	}
}
