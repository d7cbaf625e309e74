// Package agent is the thin invoke-side client: it calls the deployed
// endpoint through the gateway with a bearer credential attached by the
// identity middleware, inside a begin/end session scope.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/agentrig/agentrig/internal/identity"
)

// Client invokes tools over the gateway's protected route.
type Client struct {
	invokeURL string
	http      *http.Client
}

// NewClient composes the bearer-injecting transport over the default one.
func NewClient(invokeURL string, source *identity.TokenSource) *Client {
	return &Client{
		invokeURL: invokeURL,
		http: &http.Client{
			Transport: identity.NewTransport(nil, source),
		},
	}
}

// invokeRequest is the wire shape the endpoint expects.
type invokeRequest struct {
	SessionID string          `json:"sessionId"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Invoke calls one tool within the given session and returns the raw
// response body.
func (c *Client) Invoke(ctx context.Context, s Session, tool string, arguments any) (json.RawMessage, error) {
	args, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	body, err := json.Marshal(invokeRequest{SessionID: s.ID(), Tool: tool, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read invoke response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// Sessions returns a Starter minting client-side session scopes. The
// session id travels with every invoke so the endpoint can correlate
// short-term memory; Close is where a stateful endpoint would be told to
// flush and drop the session.
func (c *Client) Sessions() Starter {
	return starterFunc(func(ctx context.Context) (Session, error) {
		return &clientSession{id: uuid.NewString()}, nil
	})
}

type starterFunc func(ctx context.Context) (Session, error)

func (f starterFunc) Start(ctx context.Context) (Session, error) { return f(ctx) }

type clientSession struct {
	id string
}

func (s *clientSession) ID() string { return s.id }

func (s *clientSession) Close(ctx context.Context) error { return nil }
