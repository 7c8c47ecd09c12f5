package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123"})),
		WithRateLimit(0, 0),
	}
	c, err := New(srv.URL+"/api/", append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestClient_PostSendsJSONAndBearer(t *testing.T) {
	var gotAuth, gotCT, gotPath string
	var gotBody map[string]any

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"job_id":"j1","status":"pending"}`)
	}))

	var out struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	err := c.Post(context.Background(), "/exports", map[string]any{"format": "csv"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "/api/exports", gotPath)
	assert.Equal(t, "csv", gotBody["format"])
	assert.Equal(t, "j1", out.JobID)
	assert.Equal(t, "pending", out.Status)
}

func TestClient_QueryStringPreserved(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
	}))

	require.NoError(t, c.Get(context.Background(), "social/status?platform=instagram", nil))
	assert.Equal(t, "platform=instagram", gotQuery)
}

func TestClient_Non2xxIsAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json message", http.StatusBadRequest, `{"message":"invalid metrics"}`, "invalid metrics"},
		{"json error", http.StatusConflict, `{"error":"already linked"}`, "already linked"},
		{"plain text", http.StatusInternalServerError, "upstream down\n", "upstream down"},
		{"empty", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			err := c.Delete(context.Background(), "/alerts/a1")
			require.Error(t, err)
			assert.True(t, IsAPIError(err))

			var ae *APIError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.status, ae.StatusCode)
			assert.Equal(t, tt.wantMsg, ae.Message)
			assert.Equal(t, http.MethodDelete, ae.Method)
			assert.Equal(t, tt.status == http.StatusNotFound, IsNotFound(err))
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{Method: "POST", Path: "/exports", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "POST /exports: 500 Internal Server Error: boom", err.Error())

	err.Message = ""
	assert.Equal(t, "POST /exports: 500 Internal Server Error", err.Error())
}

func TestClient_EmptySuccessBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var out map[string]any
	require.NoError(t, c.Get(context.Background(), "/dashboards/d1", &out))
	assert.Nil(t, out)
}

func TestClient_BadJSONResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))

	var out map[string]any
	err := c.Get(context.Background(), "/x", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_MissingTokenFile(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), WithTokenSource(FileTokenSource(filepath.Join(t.TempDir(), "missing.json"))))

	err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, int32(0), hits.Load(), "no request is sent without a token")
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		WithRateLimit(0.001, 1))

	require.NoError(t, c.Get(context.Background(), "/x", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Get(ctx, "/x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}
