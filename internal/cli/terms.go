package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/terms"
)

// NewTermsCommand creates the terms command group.
func NewTermsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Work with collaboration payloads",
	}
	cmd.AddCommand(newTermsValidateCommand(rootOpts))
	return cmd
}

// validatedPayload is what terms validate prints on success.
type validatedPayload struct {
	Schema  string `json:"schema"`
	Summary string `json:"summary"`
	Payload any    `json:"payload"`
}

func (p validatedPayload) String() string {
	return fmt.Sprintf("✓ %s is valid: %s", p.Schema, p.Summary)
}

func newTermsValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <export|alert|terms> <file>",
		Short: "Validate a JSON payload against its schema",
		Long: `Validate an export request, alert configuration or negotiation terms
file without contacting the API.

Every problem is reported with its field path. Exit code 1 means the
payload is invalid.

Examples:
  collabflow terms validate export export.json
  collabflow terms validate terms offer.json --format json`,
		Args:          cobra.ExactArgs(2),
		ValidArgs:     []string{"export", "alert", "terms"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			data, err := os.ReadFile(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read payload", err)
			}

			payload, err := validatePayload(args[0], data)
			if err != nil {
				var ve *terms.ValidationError
				if errors.As(err, &ve) {
					_ = out.Error(ErrCodeInvalidInput, ve.Error(), ve.Issues)
					return WrapExitError(ExitFailure, "payload is invalid", err)
				}
				return err
			}
			return out.Success(payload)
		},
	}
}

func validatePayload(kind string, data []byte) (validatedPayload, error) {
	switch kind {
	case "export":
		req, err := terms.ParseExport(data)
		if err != nil {
			return validatedPayload{}, err
		}
		return validatedPayload{
			Schema:  "export request",
			Summary: fmt.Sprintf("%s of %d metrics for %d contracts, %s to %s", req.Format, len(req.Metrics), len(req.ContractIDs), req.DateRange.Start, req.DateRange.End),
			Payload: req,
		}, nil
	case "alert":
		cfg, err := terms.ParseAlertConfig(data)
		if err != nil {
			return validatedPayload{}, err
		}
		return validatedPayload{
			Schema:  "alert config",
			Summary: fmt.Sprintf("%d thresholds for %s", len(cfg.Thresholds), cfg.ContractID),
			Payload: cfg,
		}, nil
	case "terms":
		t, err := terms.ParseTerms(data)
		if err != nil {
			return validatedPayload{}, err
		}
		return validatedPayload{Schema: "terms", Summary: t.Summary(), Payload: t}, nil
	default:
		return validatedPayload{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown payload kind %q: must be export, alert or terms", kind))
	}
}
