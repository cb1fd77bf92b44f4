package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the swagger2pytest CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swagger2pytest",
		Short: "Generate executable pytest suites from Swagger/OpenAPI specs",
		Long: "swagger2pytest turns Swagger/OpenAPI documents into runnable pytest suites " +
			"and keeps them current across spec changes without clobbering hand-written edits.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return usagef("%v\n\n%s", err, c.UsageString())
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging output")

	for _, sub := range []*cobra.Command{newGenerateCmd(), newDiffCmd(), newInitCmd(), newServeCmd()} {
		sub.SetFlagErrorFunc(flagErr)
		cmd.AddCommand(sub)
	}

	return cmd
}
