package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swagger2pytest/internal/engine"
	"github.com/mark3labs/swagger2pytest/internal/logger"
	"github.com/mark3labs/swagger2pytest/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Spec       string
	Repo       string
	TestDir    string
	BaseURL    string
	Negative   bool
	Security   bool
	DryRun     bool
	ConfigPath string
	Verbose    bool
	Debug      bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{TestDir: "tests", Negative: true, Security: true}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate or refresh a pytest suite from an OpenAPI/Swagger document",
		Long: "Generate a pytest suite from an OpenAPI/Swagger document into a target " +
			"repository. Existing generated files are updated in place, hand-written " +
			"code outside the managed regions is preserved, and files for removed " +
			"endpoints are deleted.",
		Example: strings.TrimSpace(`  swagger2pytest generate --spec openapi.yaml --repo ./service
  swagger2pytest --config config.yaml generate --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("spec", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("repo", "", "Target repository root")
	flags.String("test-dir", "", `Test directory inside the repository (default "tests")`)
	flags.String("base-url", "", "Base URL baked into the generated test client")
	flags.Bool("negative", true, "Generate negative tests for operations with object request bodies")
	flags.Bool("security", true, "Generate security tests for operations with security requirements")
	flags.Bool("dry-run", false, "Preview planned changes without writing files")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("spec") {
		value, err := flags.GetString("spec")
		if err != nil {
			return err
		}
		cfg.Spec = strings.TrimSpace(value)
	}
	if flags.Changed("repo") {
		value, err := flags.GetString("repo")
		if err != nil {
			return err
		}
		cfg.Repo = strings.TrimSpace(value)
	}
	if flags.Changed("test-dir") {
		value, err := flags.GetString("test-dir")
		if err != nil {
			return err
		}
		cfg.TestDir = strings.TrimSpace(value)
	}
	if flags.Changed("base-url") {
		value, err := flags.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(value)
	}
	if flags.Changed("negative") {
		value, err := flags.GetBool("negative")
		if err != nil {
			return err
		}
		cfg.Negative = value
	}
	if flags.Changed("security") {
		value, err := flags.GetBool("security")
		if err != nil {
			return err
		}
		cfg.Security = value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}
	if flags.Changed("debug") {
		value, err := flags.GetBool("debug")
		if err != nil {
			return err
		}
		cfg.Debug = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Spec = strings.TrimSpace(c.Spec)
	c.Repo = strings.TrimSpace(c.Repo)
	c.TestDir = strings.TrimSpace(c.TestDir)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.TestDir == "" {
		c.TestDir = "tests"
	}
}

func (c *GenerateConfig) validate() error {
	if c.Spec == "" {
		return newUsageError("generate: --spec is required (set via flag or config file)")
	}
	if c.Repo == "" {
		return newUsageError("generate: --repo is required (set via flag or config file)")
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
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

	res, err := engine.Run(ctx, model, engine.Options{
		RepoPath: cfg.Repo,
		TestDir:  cfg.TestDir,
		BaseURL:  cfg.BaseURL,
		Negative: cfg.Negative,
		Security: cfg.Security,
		DryRun:   cfg.DryRun,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	printRunSummary(os.Stdout, cfg, res)

	if failed := res.Summary().Failed; failed > 0 {
		return fmt.Errorf("generate: %d file(s) failed", failed)
	}
	return nil
}

// describeSpecError maps structured spec errors into friendly usage errors.
func describeSpecError(err error) error {
	var se *spec.SpecError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("spec: %s", se.Message)
		if se.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
		}
		if se.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
		}
		return newUsageError(msg)
	}
	return err
}

func printRunSummary(w io.Writer, cfg *GenerateConfig, res *engine.Result) {
	if cfg.DryRun {
		target := filepath.Join(cfg.Repo, cfg.TestDir)
		fmt.Fprintf(w, "Planned changes for %s (%d files):\n", target, len(res.Files))
		for _, f := range res.Files {
			fmt.Fprintf(w, "- %-7s %s\n", f.Action, f.Path)
		}
	}

	s := res.Summary()
	fmt.Fprintf(w, "Files: %d created, %d updated, %d skipped, %d deleted, %d failed\n",
		s.Created, s.Updated, s.Skipped, s.Deleted, s.Failed)
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "- failed %s: %v\n", f.Path, f.Err)
		}
	}

	r := res.Report
	fmt.Fprintf(w, "Tests: %d positive, %d negative, %d security\n",
		r.PositiveTestsCount, r.NegativeTestsCount, r.SecurityTestsCount)
	fmt.Fprintf(w, "Coverage: %.1f%% (%d of %d endpoints)\n",
		r.CoveragePercentage, r.CoveredEndpoints, r.TotalEndpoints)
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usagef("read config file %q: %v", path, err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Comments and trailing commas are tolerated in JSON configs.
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return usagef("parse config file %q: %v", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return usagef("parse config file %q: %v", path, err)
		}
	}

	for key, value := range raw {
		switch normalizeKey(key) {
		case "spec":
			str, err := valueAsString(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Spec = str
		case "repo":
			str, err := valueAsString(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Repo = str
		case "testdir":
			str, err := valueAsString(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.TestDir = str
		case "baseurl":
			str, err := valueAsString(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.BaseURL = str
		case "negative":
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Negative = val
		case "security":
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Security = val
		case "dryrun":
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.DryRun = val
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Verbose = val
		case "debug":
			val, err := valueAsBool(value)
			if err != nil {
				return usagef("config field %q: %v", key, err)
			}
			cfg.Debug = val
		default:
			return usagef("config file %q: unknown field %q", path, key)
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
