package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collabflow/internal/workflow"
)

func TestNormalizeContentURL(t *testing.T) {
	tests := []struct {
		raw          string
		wantURL      string
		wantPlatform string
		wantErr      string
	}{
		{raw: "https://www.instagram.com/p/abc123/", wantURL: "https://www.instagram.com/p/abc123/", wantPlatform: "instagram"},
		{raw: "  https://YOUTU.BE/xyz#t=10 ", wantURL: "https://youtu.be/xyz", wantPlatform: "youtube"},
		{raw: "https://x.com/brand/status/1", wantURL: "https://x.com/brand/status/1", wantPlatform: "twitter"},
		{raw: "", wantErr: "content URL is required"},
		{raw: "ftp://instagram.com/p/1", wantErr: "scheme must be http or https"},
		{raw: "https://example.com/p/1", wantErr: `unsupported content host "example.com"`},
		{raw: "https://tiktok.com/", wantErr: "missing post path"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, platform, err := NormalizeContentURL(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, u)
			assert.Equal(t, tt.wantPlatform, platform)
		})
	}
}

func linkingRoutes(b *fakeBackend) {
	b.json("POST /content/preview", http.StatusOK, map[string]string{"contentId": "ct1", "title": "Launch reel"})
	b.json("POST /content/verify-ownership", http.StatusOK, map[string]bool{"verified": true})
	b.json("POST /contracts/c1/content", http.StatusCreated, map[string]string{"linkId": "l1"})
	b.json("DELETE /contracts/c1/content/l1", http.StatusNoContent, nil)
	b.json("POST /content/l1/collection", http.StatusAccepted, nil)
}

func TestLinkContent_Success(t *testing.T) {
	backend, svc, o := newFixture(t)
	linkingRoutes(backend)

	def, res := svc.LinkContent(LinkRequest{ContractID: "c1", URL: "https://instagram.com/p/abc"})
	require.Len(t, def.Steps, 5)

	_, err := o.Create(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, "instagram", res.Platform)
	assert.Equal(t, "ct1", res.Preview.ContentID)
	assert.Equal(t, "Launch reel", res.Preview.Title)
	assert.Equal(t, "l1", res.LinkID)
	assert.Equal(t, "https://instagram.com/p/abc", backend.Body("POST /content/preview")["url"])
	assert.Equal(t, "c1", backend.Body("POST /content/verify-ownership")["contractId"])
}

func TestLinkContent_OwnershipRejected(t *testing.T) {
	backend, svc, o := newFixture(t)
	linkingRoutes(backend)
	backend.json("POST /content/verify-ownership", http.StatusOK, map[string]any{"verified": false, "reason": "account mismatch"})

	def, _ := svc.LinkContent(LinkRequest{ContractID: "c1", URL: "https://instagram.com/p/abc"})
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)

	wf, _ := o.Get(id)
	assert.Equal(t, "content ownership could not be verified: account mismatch", wf.Error)
	assert.NotContains(t, backend.Calls(), "POST /contracts/c1/content")
}

func TestLinkContent_CollectionFailureUnlinks(t *testing.T) {
	backend, svc, o := newFixture(t)
	linkingRoutes(backend)
	backend.json("POST /content/l1/collection", http.StatusBadGateway, map[string]string{"error": "collector offline"})

	def, _ := svc.LinkContent(LinkRequest{ContractID: "c1", URL: "https://instagram.com/p/abc"})
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)

	wf, _ := o.Get(id)
	assert.Equal(t, workflow.StepFailed, wf.Steps[4].Status)
	assert.True(t, wf.Steps[3].RolledBack)
	calls := backend.Calls()
	assert.Equal(t, "DELETE /contracts/c1/content/l1", calls[len(calls)-1])
}

func TestLinkContent_InvalidURLMakesNoCalls(t *testing.T) {
	backend, svc, o := newFixture(t)

	def, _ := svc.LinkContent(LinkRequest{ContractID: "c1", URL: "not a url"})
	_, err := o.Create(context.Background(), def)
	require.Error(t, err)
	assert.Empty(t, backend.Calls())
}
