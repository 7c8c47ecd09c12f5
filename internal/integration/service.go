package integration

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/roach88/collabflow/internal/terms"
)

// API is the subset of *apiclient.Client the workflows need.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Service builds the concrete workflows.
type Service struct {
	api       API
	browser   Browser
	timing    Timing
	validator *terms.Validator
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBrowser sets the browser used by the OAuth step.
func WithBrowser(b Browser) Option {
	return func(s *Service) {
		s.browser = b
	}
}

// WithTiming sets the polling profile (default: ProductionTiming).
func WithTiming(t Timing) Option {
	return func(s *Service) {
		s.timing = t
	}
}

// WithValidator overrides the payload validator (default: terms.Default()).
func WithValidator(v *terms.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service calling api.
func NewService(api API, opts ...Option) *Service {
	s := &Service{
		api:    api,
		timing: ProductionTiming(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = terms.Default()
	}
	return s
}

// Timing returns the active polling profile.
func (s *Service) Timing() Timing {
	return s.timing
}

// path joins escaped segments onto a leading slash.
func path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(escaped, "/")
}
