package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token request must carry basic auth")
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		assert.Equal(t, "estimator/invoke", r.PostFormValue("scope"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "tok-%d", "expires_in": 3600}`, *calls)
	}))
}

func testCredentials(endpoint string) Credentials {
	return Credentials{
		TokenEndpoint: endpoint,
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		Scope:         "estimator/invoke",
	}
}

func TestTokenSource_FetchesAndCaches(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, 1, calls, "second call must hit the cache")
}

func TestTokenSource_RefreshesNearExpiry(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())
	clock := time.Now()
	ts.now = func() time.Time { return clock }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// Within the refresh skew of expiry the cached token no longer counts.
	clock = clock.Add(3600*time.Second - refreshSkew)
	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, calls)
}

func TestTokenSource_Invalidate(t *testing.T) {
	calls := 0
	srv := tokenServer(t, &calls)
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())
	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	ts.Invalidate()
	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestTokenSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())
	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_client")
}

func TestTokenSource_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expires_in": 3600}`)
	}))
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())
	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access_token")
}

func TestTransport_InjectsBearer(t *testing.T) {
	calls := 0
	tokenSrv := tokenServer(t, &calls)
	defer tokenSrv.Close()

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer apiSrv.Close()

	ts := NewTokenSource(testCredentials(tokenSrv.URL), tokenSrv.Client())
	client := &http.Client{Transport: NewTransport(nil, ts)}

	req, err := http.NewRequest(http.MethodGet, apiSrv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Custom", "kept")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Empty(t, req.Header.Get("Authorization"), "the caller's request must not be mutated")
}

func TestTransport_TokenFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ts := NewTokenSource(testCredentials(srv.URL), srv.Client())
	client := &http.Client{Transport: NewTransport(nil, ts)}

	_, err := client.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to obtain bearer token")
}
