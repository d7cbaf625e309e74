// Package identity fetches and refreshes OAuth2 client-credentials tokens
// and injects them into outgoing requests as an explicit middleware, so
// callers compose authentication instead of inheriting it implicitly.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// refreshSkew renews a cached token this long before its actual expiry.
const refreshSkew = 30 * time.Second

// Credentials is everything a client-credentials token request needs,
// typically read from the authorizer's captured metadata.
type Credentials struct {
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	Scope         string
}

// TokenSource fetches bearer tokens and caches them until shortly before
// expiry. It is safe for concurrent use.
type TokenSource struct {
	creds Credentials
	http  *http.Client
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(creds Credentials, client *http.Client) *TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenSource{creds: creds, http: client, now: time.Now}
}

// Token returns a valid bearer token, refreshing the cached one if needed.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Add(refreshSkew).Before(ts.expires) {
		return ts.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	if ts.creds.Scope != "" {
		form.Set("scope", ts.creds.Scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.creds.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(ts.creds.ClientID, ts.creds.ClientSecret)

	resp, err := ts.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	ts.token = payload.AccessToken
	ts.expires = ts.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return ts.token, nil
}

// Invalidate drops the cached token, forcing the next Token call to fetch.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
}

// Transport is an http.RoundTripper middleware that attaches a bearer token
// to every outgoing request before delegating to the inner transport.
type Transport struct {
	Base   http.RoundTripper
	Source *TokenSource
}

// NewTransport composes the bearer-injecting middleware over base.
func NewTransport(base http.RoundTripper, source *TokenSource) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Source: source}
}

// RoundTrip clones the request, injects the credential and delegates. The
// inbound request is never mutated, per the RoundTripper contract.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to obtain bearer token: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(clone)
}
