package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swagger2pytest/internal/diff"
	"github.com/mark3labs/swagger2pytest/internal/logger"
	"github.com/mark3labs/swagger2pytest/internal/repo"
	"github.com/mark3labs/swagger2pytest/internal/spec"
)

var diffRunner = runDiff

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Preview the per-endpoint decisions a generation run would make",
		Long: "Compare an OpenAPI/Swagger document against the generated tests already " +
			"present in a repository and print which files would be created, updated, " +
			"left alone, or deleted. Nothing is written.",
		Example: "  swagger2pytest diff --spec openapi.yaml --repo ./service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return diffRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("repo", "", "Target repository root")
	flags.String("test-dir", "", `Test directory inside the repository (default "tests")`)

	return cmd
}

func runDiff(ctx context.Context, cfg *GenerateConfig) error {
	switch {
	case cfg.Debug:
		logger.SetLevel(logger.LevelDebug)
	case cfg.Verbose:
		logger.SetLevel(logger.LevelInfo)
	}

	doc, err := spec.Load(ctx, cfg.Spec)
	if err != nil {
		return describeSpecError(err)
	}
	model, err := spec.Resolve(doc)
	if err != nil {
		return describeSpecError(err)
	}

	records, err := repo.Scan(cfg.Repo, cfg.TestDir)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}

	printDiffPlan(os.Stdout, diff.Compute(model, records))
	return nil
}

func printDiffPlan(w io.Writer, plan *diff.Plan) {
	for _, op := range plan.Create {
		fmt.Fprintf(w, "+ create %s\n", op.ID())
	}
	for _, id := range plan.Update {
		fmt.Fprintf(w, "~ update %s\n", id)
	}
	for _, id := range plan.Skip {
		fmt.Fprintf(w, "= skip   %s\n", id)
	}
	for _, rec := range plan.Delete {
		fmt.Fprintf(w, "- delete %s\n", rec.Path)
	}
	fmt.Fprintf(w, "%d to create, %d to update, %d unchanged, %d to delete\n",
		len(plan.Create), len(plan.Update), len(plan.Skip), len(plan.Delete))
}
