package auth

import (
	"context"
	"testing"
	"time"

	"github.com/kofron/lattice/internal/secretstore"
)

func TestTokenProvider_FreshCached_ReturnsWithoutRefresh(t *testing.T) {
	p := &TokenProvider{
		cached: &secretstore.ForgeToken{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)},
	}

	tok, err := p.BearerToken(context.Background())
	if err != nil {
		t.Fatalf("BearerToken: %v", err)
	}
	if tok != "abc" {
		t.Errorf("expected cached token abc, got %q", tok)
	}
}

func TestTokenProvider_Invalidate_ForcesRefreshPath(t *testing.T) {
	p := &TokenProvider{
		cached: &secretstore.ForgeToken{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)},
	}
	p.Invalidate()

	if _, ok := p.freshCached(); ok {
		t.Error("expected no fresh cached token after Invalidate")
	}
}

func TestTokenProvider_ExpiredCached_NotFresh(t *testing.T) {
	p := &TokenProvider{
		cached: &secretstore.ForgeToken{Token: "abc", ExpiresAt: time.Now().Add(-time.Hour)},
	}

	if _, ok := p.freshCached(); ok {
		t.Error("expected expired cached token to not be fresh")
	}
}
