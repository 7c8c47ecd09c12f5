package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/notify"
	"github.com/roach88/collabflow/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow API and the live event stream",
		Long: `Start an HTTP server that runs workflows on request.

Routes:
  POST /workflows/{kind}         start onboarding, linking, export or alerts
  GET  /workflows                list workflows (?kind=, ?status=)
  GET  /workflows/{id}           workflow status and progress
  POST /workflows/{id}/cancel    cancel a running workflow
  GET  /workflows/events         websocket stream of lifecycle events

The server stops on SIGINT/SIGTERM after in-flight workflows finish.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := notify.NewBroadcaster()
			rt, err := rootOpts.newRuntime(cmd, withLogToasts(), withSinks(events))
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(rt.orch, rt.service, events, server.WithLogger(rt.logger))
			if err := srv.ListenAndServe(ctx, rt.cfg.Server.Addr); err != nil {
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:7070)")
	return cmd
}
