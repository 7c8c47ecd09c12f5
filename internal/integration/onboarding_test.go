package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/collabflow/internal/workflow"
)

func onboardingRoutes(b *fakeBackend) {
	for _, p := range []string{"instagram", "tiktok"} {
		b.json("POST /brands/b1/social/"+p+"/connect", http.StatusOK, map[string]string{"authUrl": "https://auth.example/" + p})
		b.json("GET /brands/b1/social/"+p+"/verify", http.StatusOK, map[string]bool{"connected": true})
		b.json("DELETE /brands/b1/social/"+p, http.StatusNoContent, nil)
	}
	b.json("POST /brands/b1/dashboards", http.StatusCreated, map[string]string{"id": "d1"})
	b.json("DELETE /dashboards/d1", http.StatusNoContent, nil)
	b.json("POST /brands/b1/alerts/defaults", http.StatusOK, nil)
}

func TestOnboardBrand_Success(t *testing.T) {
	browser := &fakeBrowser{closeAfter: 2}
	backend, svc, o := newFixture(t, WithBrowser(browser))
	onboardingRoutes(backend)

	def, res := svc.OnboardBrand(OnboardRequest{BrandID: "b1", Platforms: []string{"instagram", "tiktok"}})
	assert.Equal(t, "Brand Onboarding", def.Name)
	require.Len(t, def.Steps, 3)

	id, err := o.Create(context.Background(), def)
	require.NoError(t, err)

	wf, _ := o.Get(id)
	assert.Equal(t, workflow.StatusCompleted, wf.Status)
	assert.Equal(t, []string{"instagram", "tiktok"}, res.Connected)
	assert.Equal(t, "d1", res.DashboardID)
	assert.Equal(t, []string{"https://auth.example/instagram", "https://auth.example/tiktok"}, browser.opened)
	assert.Equal(t, []string{
		"POST /brands/b1/social/instagram/connect",
		"GET /brands/b1/social/instagram/verify",
		"POST /brands/b1/social/tiktok/connect",
		"GET /brands/b1/social/tiktok/verify",
		"POST /brands/b1/dashboards",
		"POST /brands/b1/alerts/defaults",
	}, backend.Calls())

	thresholds, ok := backend.Body("POST /brands/b1/alerts/defaults")["thresholds"].([]any)
	require.True(t, ok)
	assert.Len(t, thresholds, len(DefaultAlertThresholds))
}

func TestOnboardBrand_VerificationFailsCleansUpConnections(t *testing.T) {
	backend, svc, o := newFixture(t, WithBrowser(&fakeBrowser{closeAfter: 0}))
	onboardingRoutes(backend)
	backend.json("GET /brands/b1/social/tiktok/verify", http.StatusOK, map[string]bool{"connected": false})

	def, _ := svc.OnboardBrand(OnboardRequest{BrandID: "b1", Platforms: []string{"instagram", "tiktok"}})
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)

	wf, _ := o.Get(id)
	assert.Equal(t, "tiktok connection was not completed", wf.Error)
	assert.Equal(t, workflow.StepFailed, wf.Steps[0].Status)
	assert.Equal(t, workflow.StepPending, wf.Steps[1].Status)
	assert.Contains(t, backend.Calls(), "DELETE /brands/b1/social/instagram")
	assert.NotContains(t, backend.Calls(), "POST /brands/b1/dashboards")
}

func TestOnboardBrand_OAuthTimeout(t *testing.T) {
	backend, svc, o := newFixture(t, WithBrowser(&fakeBrowser{closeAfter: -1}))
	onboardingRoutes(backend)

	def, _ := svc.OnboardBrand(OnboardRequest{BrandID: "b1", Platforms: []string{"instagram"}})
	_, err := o.Create(context.Background(), def)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "instagram authorization timed out")
	assert.NotContains(t, backend.Calls(), "GET /brands/b1/social/instagram/verify")
}

func TestOnboardBrand_DashboardFailureRollsBackConnections(t *testing.T) {
	backend, svc, o := newFixture(t, WithBrowser(&fakeBrowser{closeAfter: 0}))
	onboardingRoutes(backend)
	backend.json("POST /brands/b1/dashboards", http.StatusInternalServerError, map[string]string{"message": "dashboard service down"})

	def, _ := svc.OnboardBrand(OnboardRequest{BrandID: "b1", Platforms: []string{"instagram", "tiktok"}})
	id, err := o.Create(context.Background(), def)
	require.Error(t, err)

	wf, _ := o.Get(id)
	assert.Contains(t, wf.Error, "dashboard service down")
	assert.True(t, wf.Steps[0].RolledBack)

	calls := backend.Calls()
	assert.Equal(t, []string{
		"DELETE /brands/b1/social/tiktok",
		"DELETE /brands/b1/social/instagram",
	}, calls[len(calls)-2:])
}

func TestOnboardBrand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     OnboardRequest
		wantErr string
	}{
		{"no brand", OnboardRequest{Platforms: []string{"instagram"}}, "brand id is required"},
		{"no platforms", OnboardRequest{BrandID: "b1"}, "at least one platform"},
		{"unsupported", OnboardRequest{BrandID: "b1", Platforms: []string{"myspace"}}, `unsupported platform "myspace"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, svc, o := newFixture(t, WithBrowser(&fakeBrowser{}))
			def, _ := svc.OnboardBrand(tt.req)
			_, err := o.Create(context.Background(), def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, backend.Calls())
		})
	}
}

func TestOnboardBrand_NoBrowser(t *testing.T) {
	backend, svc, o := newFixture(t)
	onboardingRoutes(backend)

	def, _ := svc.OnboardBrand(OnboardRequest{BrandID: "b1", Platforms: []string{"instagram"}})
	_, err := o.Create(context.Background(), def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no browser configured")
}
