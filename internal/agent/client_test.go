package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/identity"
)

func invokeHarness(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "tok-1", "expires_in": 3600}`)
	}))
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(handler)
	t.Cleanup(apiSrv.Close)

	source := identity.NewTokenSource(identity.Credentials{
		TokenEndpoint: tokenSrv.URL,
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
	}, nil)
	return NewClient(apiSrv.URL, source)
}

func TestClient_InvokeSendsSessionToolAndBearer(t *testing.T) {
	var gotAuth string
	var gotBody invokeRequest
	c := invokeHarness(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"result": "42 USD"}`)
	})

	err := WithSession(context.Background(), c.Sessions(), func(ctx context.Context, s Session) error {
		resp, err := c.Invoke(ctx, s, "markdown_to_email", map[string]any{"markdown_text": "# Report"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"result": "42 USD"}`, string(resp))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotBody.SessionID)
	assert.Equal(t, "markdown_to_email", gotBody.Tool)
	assert.JSONEq(t, `{"markdown_text": "# Report"}`, string(gotBody.Arguments))
}

func TestClient_InvokeNonOKStatus(t *testing.T) {
	c := invokeHarness(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unknown tool \"nope\""}`, http.StatusNotFound)
	})

	err := WithSession(context.Background(), c.Sessions(), func(ctx context.Context, s Session) error {
		_, err := c.Invoke(ctx, s, "nope", nil)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "unknown tool")
}
