// Package secretstore is Lattice's secret storage boundary: forge access
// tokens and any other credential material are read and written here, never
// handled loose elsewhere. Wraps HashiCorp Vault's KVv2 API with
// environment-driven config, generalized to the forge bearer-token shape
// the auth core (internal/auth) needs.
package secretstore

import (
	"context"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/kofron/lattice/internal/redact"
)

// Client wraps the Vault API client.
type Client struct {
	client *vaultapi.Client
	ctx    context.Context
}

// NewClient creates a Vault client from the environment (VAULT_ADDR,
// VAULT_TOKEN).
func NewClient(ctx context.Context) (*Client, error) {
	config := vaultapi.DefaultConfig()
	if config == nil {
		return nil, fmt.Errorf("failed to create default vault config")
	}

	client, err := vaultapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &Client{client: client, ctx: ctx}, nil
}

// IsReachable checks whether the Vault server responds to a health check.
func (c *Client) IsReachable() bool {
	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
	defer cancel()

	_, err := c.client.Sys().HealthWithContext(ctx)
	return err == nil
}

// GetSecret retrieves a secret's data map from the KVv2 mount.
func (c *Client) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := c.client.KVv2("secret").Get(c.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}
	return secret.Data, nil
}

// PutSecret stores a secret's data map in the KVv2 mount.
func (c *Client) PutSecret(path string, data map[string]interface{}) error {
	_, err := c.client.KVv2("secret").Put(c.ctx, path, data)
	if err != nil {
		return fmt.Errorf("failed to write secret at %s: %w", path, err)
	}
	return nil
}

// ForgeToken is a bearer token for one forge host, with the expiry the
// forge reported at issuance.
type ForgeToken struct {
	Token     redact.String
	ExpiresAt time.Time
}

func forgeTokenPath(host string) string {
	return fmt.Sprintf("lattice/forge/%s/token", host)
}

// GetForgeToken retrieves the stored bearer token for host.
func (c *Client) GetForgeToken(host string) (*ForgeToken, error) {
	data, err := c.GetSecret(forgeTokenPath(host))
	if err != nil {
		return nil, err
	}

	tok := &ForgeToken{}
	v, ok := data["token"].(string)
	if !ok || v == "" {
		return nil, fmt.Errorf("forge token data for %s missing 'token' field", host)
	}
	tok.Token = redact.String(v)

	if exp, ok := data["expires_at"].(string); ok && exp != "" {
		parsed, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("forge token data for %s has invalid expires_at: %w", host, err)
		}
		tok.ExpiresAt = parsed
	}

	return tok, nil
}

// PutForgeToken stores a refreshed bearer token for host.
func (c *Client) PutForgeToken(host string, tok *ForgeToken) error {
	data := map[string]interface{}{
		"token": tok.Token.Reveal(),
	}
	if !tok.ExpiresAt.IsZero() {
		data["expires_at"] = tok.ExpiresAt.Format(time.RFC3339)
	}
	return c.PutSecret(forgeTokenPath(host), data)
}
