package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/roach88/collabflow/internal/apiclient"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API access token",
	}
	cmd.AddCommand(newTokenSetCommand(rootOpts))
	return cmd
}

func newTokenSetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		refresh   string
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "set <access-token>",
		Short: "Store the bearer token used for API requests",
		Long: `Write the access token to the configured token file (api.token_file,
--token-file) with owner-only permissions. Every later command sends it as
a bearer token.

Example:
  collabflow token set eyJhbGciOi... --expires-in 12h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.config(cmd)
			if err != nil {
				return err
			}
			if cfg.API.TokenFile == "" {
				return NewExitError(ExitCommandError, "no token file configured")
			}

			tok := &oauth2.Token{AccessToken: args[0], TokenType: "Bearer", RefreshToken: refresh}
			if expiresIn > 0 {
				now := time.Now
				if rootOpts.Now != nil {
					now = rootOpts.Now
				}
				tok.Expiry = now().Add(expiresIn)
			}

			if err := os.MkdirAll(filepath.Dir(cfg.API.TokenFile), 0o700); err != nil {
				return WrapExitError(ExitCommandError, "failed to create token directory", err)
			}
			if err := apiclient.SaveToken(cfg.API.TokenFile, tok); err != nil {
				return WrapExitError(ExitCommandError, "failed to save token", err)
			}
			return rootOpts.formatter(cmd).Success(fmt.Sprintf("token saved to %s", cfg.API.TokenFile))
		},
	}

	cmd.Flags().StringVar(&refresh, "refresh-token", "", "refresh token to store alongside")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "token lifetime (0: no expiry)")
	return cmd
}
