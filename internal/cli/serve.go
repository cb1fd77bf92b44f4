package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swagger2pytest/internal/logger"
	"github.com/mark3labs/swagger2pytest/internal/server"
)

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end for UI-driven generation",
		Long: "Run an HTTP server exposing generation (POST /generate) and report " +
			"retrieval (GET /report) for UI front ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Flags().GetString("addr")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return err
			}
			switch {
			case debug:
				logger.SetLevel(logger.LevelDebug)
			case verbose:
				logger.SetLevel(logger.LevelInfo)
			}
			return serveRunner(cmd.Context(), addr)
		},
	}

	cmd.Flags().String("addr", ":8000", "Listen address")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	_ = ctx
	return server.ListenAndServe(addr)
}
