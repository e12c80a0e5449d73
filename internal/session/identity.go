package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"sessionkeeper/pkg/oauth"
)

// maxIdentityBody bounds the identity response read into memory.
const maxIdentityBody = 1 << 20

// IdentityChecker confirms a token is accepted by the identity endpoint.
type IdentityChecker interface {
	FetchIdentity(ctx context.Context, accessToken string) (*oauth.Identity, error)
}

// IdentityClient queries the identity endpoint with a bearer token.
type IdentityClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewIdentityClient returns an IdentityClient for endpoint. A nil httpClient
// uses http.DefaultClient.
func NewIdentityClient(endpoint string, httpClient *http.Client) *IdentityClient {
	return &IdentityClient{endpoint: endpoint, httpClient: httpClient}
}

// FetchIdentity GETs the identity endpoint. Any non-2xx response or
// undecodable body is an *IdentityCheckError.
func (c *IdentityClient) FetchIdentity(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &IdentityCheckError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &IdentityCheckError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxIdentityBody))
		return nil, &IdentityCheckError{StatusCode: resp.StatusCode}
	}

	var identity oauth.Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIdentityBody)).Decode(&identity); err != nil {
		return nil, &IdentityCheckError{Err: fmt.Errorf("failed to decode identity: %w", err)}
	}
	return &identity, nil
}

var _ IdentityChecker = (*IdentityClient)(nil)
