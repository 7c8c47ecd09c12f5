package integration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/collabflow/internal/workflow"
)

// contentHosts maps accepted content hosts to their platform.
var contentHosts = map[string]string{
	"instagram.com":     "instagram",
	"www.instagram.com": "instagram",
	"tiktok.com":        "tiktok",
	"www.tiktok.com":    "tiktok",
	"vm.tiktok.com":     "tiktok",
	"youtube.com":       "youtube",
	"www.youtube.com":   "youtube",
	"m.youtube.com":     "youtube",
	"youtu.be":          "youtube",
	"twitter.com":       "twitter",
	"x.com":             "twitter",
}

// LinkRequest links a published post to a contract.
type LinkRequest struct {
	ContractID string `json:"contractId"`
	URL        string `json:"url"`
}

// Preview is the backend's summary of a piece of content.
type Preview struct {
	ContentID    string `json:"contentId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// LinkResult is filled in by the content linking steps. Read it only after
// the workflow has finished.
type LinkResult struct {
	URL      string  `json:"url"`
	Platform string  `json:"platform"`
	Preview  Preview `json:"preview"`
	LinkID   string  `json:"linkId,omitempty"`
}

// NormalizeContentURL NFC-normalises and validates a content URL, returning
// the canonical URL and its platform.
func NormalizeContentURL(raw string) (string, string, error) {
	raw = norm.NFC.String(strings.TrimSpace(raw))
	if raw == "" {
		return "", "", errors.New("content URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid content URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("invalid content URL %q: scheme must be http or https", raw)
	}
	host := strings.ToLower(u.Hostname())
	platform, ok := contentHosts[host]
	if !ok {
		return "", "", fmt.Errorf("unsupported content host %q", host)
	}
	if strings.Trim(u.Path, "/") == "" {
		return "", "", fmt.Errorf("invalid content URL %q: missing post path", raw)
	}
	u.Host = host
	u.Fragment = ""
	return u.String(), platform, nil
}

// LinkContent returns the 5-step content linking workflow.
func (s *Service) LinkContent(req LinkRequest) (workflow.Definition, *LinkResult) {
	res := &LinkResult{}
	contract := req.ContractID

	def := workflow.Definition{
		Kind:    "linking",
		Subject: contract,
		Name:    "Content Linking",
		Steps: []workflow.StepDef{
			{
				ID:   "validate-url",
				Name: "Validate content URL",
				Action: func(context.Context) error {
					if strings.TrimSpace(contract) == "" {
						return errors.New("contract id is required")
					}
					canonical, platform, err := NormalizeContentURL(req.URL)
					if err != nil {
						return err
					}
					res.URL, res.Platform = canonical, platform
					return nil
				},
			},
			{
				ID:   "fetch-preview",
				Name: "Fetch content preview",
				Action: func(ctx context.Context) error {
					var p Preview
					body := map[string]string{"url": res.URL, "platform": res.Platform}
					if err := s.api.Post(ctx, path("content", "preview"), body, &p); err != nil {
						return err
					}
					if p.ContentID == "" {
						return errors.New("preview response missing contentId")
					}
					res.Preview = p
					return nil
				},
			},
			{
				ID:   "verify-ownership",
				Name: "Verify content ownership",
				Action: func(ctx context.Context) error {
					var out struct {
						Verified bool   `json:"verified"`
						Reason   string `json:"reason"`
					}
					body := map[string]string{"contentId": res.Preview.ContentID, "contractId": contract}
					if err := s.api.Post(ctx, path("content", "verify-ownership"), body, &out); err != nil {
						return err
					}
					if !out.Verified {
						if out.Reason != "" {
							return fmt.Errorf("content ownership could not be verified: %s", out.Reason)
						}
						return errors.New("content ownership could not be verified")
					}
					return nil
				},
			},
			{
				ID:   "link-contract",
				Name: "Link content to contract",
				Action: func(ctx context.Context) error {
					var out struct {
						LinkID string `json:"linkId"`
					}
					body := map[string]string{"contentId": res.Preview.ContentID, "url": res.URL, "platform": res.Platform}
					if err := s.api.Post(ctx, path("contracts", contract, "content"), body, &out); err != nil {
						return err
					}
					if out.LinkID == "" {
						return errors.New("link response missing linkId")
					}
					res.LinkID = out.LinkID
					return nil
				},
				Rollback: func(ctx context.Context) error {
					return s.api.Delete(ctx, path("contracts", contract, "content", res.LinkID))
				},
			},
			{
				ID:   "start-collection",
				Name: "Start data collection",
				Action: func(ctx context.Context) error {
					return s.api.Post(ctx, path("content", res.LinkID, "collection"), nil, nil)
				},
			},
		},
	}
	return def, res
}
