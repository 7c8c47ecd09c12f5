package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

// Platforms are the social networks a brand can connect.
var Platforms = []string{"instagram", "tiktok", "youtube", "twitter"}

// OnboardRequest describes a brand to onboard.
type OnboardRequest struct {
	BrandID   string   `json:"brandId"`
	Platforms []string `json:"platforms"`
}

// OnboardResult is filled in by the onboarding steps. Read it only after
// the workflow has finished.
type OnboardResult struct {
	Connected   []string `json:"connected"`
	DashboardID string   `json:"dashboardId,omitempty"`
}

// DefaultAlertThresholds are applied to newly onboarded brands.
var DefaultAlertThresholds = []terms.Threshold{
	{Metric: "engagement_rate", Operator: "<", Value: 0.01},
	{Metric: "followers", Operator: "<", Value: 100},
}

// OnboardBrand returns the 3-step brand onboarding workflow:
// connect social accounts, initialise the analytics dashboard and configure
// default alert thresholds.
func (s *Service) OnboardBrand(req OnboardRequest) (workflow.Definition, *OnboardResult) {
	res := &OnboardResult{}
	brand := req.BrandID

	def := workflow.Definition{
		Kind:    "onboarding",
		Subject: brand,
		Name:    "Brand Onboarding",
		Steps: []workflow.StepDef{
			{
				ID:   "connect-social",
				Name: "Connect social accounts",
				Action: func(ctx context.Context) error {
					if err := validateOnboard(req); err != nil {
						return err
					}
					for _, p := range req.Platforms {
						if err := s.connectPlatform(ctx, brand, p); err != nil {
							// The step never completes, so its rollback will not run.
							if cerr := s.disconnectAll(context.WithoutCancel(ctx), brand, res); cerr != nil {
								s.logger.Warn("disconnect after failed onboarding", "brand_id", brand, "error", cerr)
							}
							return err
						}
						res.Connected = append(res.Connected, p)
					}
					return nil
				},
				Rollback: func(ctx context.Context) error {
					return s.disconnectAll(ctx, brand, res)
				},
			},
			{
				ID:   "init-dashboard",
				Name: "Initialize analytics dashboard",
				Action: func(ctx context.Context) error {
					var out struct {
						ID string `json:"id"`
					}
					body := map[string]any{
						"brandId":   brand,
						"platforms": req.Platforms,
						"widgets":   []string{"reach", "engagement_rate", "followers"},
					}
					if err := s.api.Post(ctx, path("brands", brand, "dashboards"), body, &out); err != nil {
						return err
					}
					if out.ID == "" {
						return errors.New("dashboard response missing id")
					}
					res.DashboardID = out.ID
					return nil
				},
				Rollback: func(ctx context.Context) error {
					return s.api.Delete(ctx, path("dashboards", res.DashboardID))
				},
			},
			{
				ID:   "default-alerts",
				Name: "Configure default alert thresholds",
				Action: func(ctx context.Context) error {
					body := map[string]any{"thresholds": DefaultAlertThresholds}
					return s.api.Post(ctx, path("brands", brand, "alerts", "defaults"), body, nil)
				},
			},
		},
	}
	return def, res
}

// disconnectAll removes the connections made so far, newest first.
func (s *Service) disconnectAll(ctx context.Context, brand string, res *OnboardResult) error {
	var errs []error
	for i := len(res.Connected) - 1; i >= 0; i-- {
		p := res.Connected[i]
		if err := s.api.Delete(ctx, path("brands", brand, "social", p)); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func validateOnboard(req OnboardRequest) error {
	if strings.TrimSpace(req.BrandID) == "" {
		return errors.New("brand id is required")
	}
	if len(req.Platforms) == 0 {
		return errors.New("at least one platform is required")
	}
	for _, p := range req.Platforms {
		if !supportedPlatform(p) {
			return fmt.Errorf("unsupported platform %q (want one of %s)", p, strings.Join(Platforms, ", "))
		}
	}
	return nil
}

func supportedPlatform(p string) bool {
	for _, s := range Platforms {
		if s == p {
			return true
		}
	}
	return false
}

// connectPlatform runs the OAuth handshake for one platform: request an
// authorization URL, open it, wait for the window to close and verify the
// connection.
func (s *Service) connectPlatform(ctx context.Context, brand, platform string) error {
	if s.browser == nil {
		return errors.New("no browser configured for OAuth")
	}

	var start struct {
		AuthURL string `json:"authUrl"`
	}
	if err := s.api.Post(ctx, path("brands", brand, "social", platform, "connect"), nil, &start); err != nil {
		return err
	}
	if start.AuthURL == "" {
		return fmt.Errorf("%s: connect response missing authUrl", platform)
	}

	// The window lives only as long as this handshake.
	winCtx, closeWin := context.WithCancel(ctx)
	defer closeWin()

	win, err := s.browser.Open(winCtx, start.AuthURL)
	if err != nil {
		return fmt.Errorf("%s: open authorization window: %w", platform, err)
	}

	s.logger.Info("waiting for authorization", "platform", platform, "timeout", s.timing.OAuthTimeout)
	err = poll(ctx, s.timing.OAuthPollInterval, s.timing.OAuthTimeout, func(context.Context) (bool, error) {
		return win.Closed(), nil
	})
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("%s authorization %w", platform, err)
		}
		return err
	}

	var verify struct {
		Connected bool `json:"connected"`
	}
	if err := s.api.Get(ctx, path("brands", brand, "social", platform, "verify"), &verify); err != nil {
		return err
	}
	if !verify.Connected {
		return fmt.Errorf("%s connection was not completed", platform)
	}
	return nil
}
