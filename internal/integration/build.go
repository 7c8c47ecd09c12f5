package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/collabflow/internal/terms"
	"github.com/roach88/collabflow/internal/workflow"
)

// Kinds lists the workflow kinds Build accepts.
func (s *Service) Kinds() []string {
	kinds := []string{"onboarding", "linking", "export", "alerts"}
	sort.Strings(kinds)
	return kinds
}

// Build decodes a JSON request for kind and returns the workflow
// definition with its result value. Payload validation is left to the
// workflow's own first step so a bad request still produces an observable
// failed workflow; only undecodable JSON is rejected here.
func (s *Service) Build(kind string, body []byte) (workflow.Definition, any, error) {
	switch kind {
	case "onboarding":
		var req OnboardRequest
		if err := decodeStrict(body, &req); err != nil {
			return workflow.Definition{}, nil, err
		}
		def, res := s.OnboardBrand(req)
		return def, res, nil
	case "linking":
		var req LinkRequest
		if err := decodeStrict(body, &req); err != nil {
			return workflow.Definition{}, nil, err
		}
		def, res := s.LinkContent(req)
		return def, res, nil
	case "export":
		var req terms.ExportRequest
		if err := decodeStrict(body, &req); err != nil {
			return workflow.Definition{}, nil, err
		}
		def, res := s.Export(req)
		return def, res, nil
	case "alerts":
		var cfg terms.AlertConfig
		if err := decodeStrict(body, &cfg); err != nil {
			return workflow.Definition{}, nil, err
		}
		def, res := s.SetupAlerts(cfg)
		return def, res, nil
	default:
		return workflow.Definition{}, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
