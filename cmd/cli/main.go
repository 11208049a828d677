package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"expcalc/adapters/excel"
	"expcalc/adapters/report"
	"expcalc/domain/core"
	"expcalc/domain/experiment"
	"expcalc/internal"
	"expcalc/internal/config"
	"expcalc/internal/container"
	"expcalc/internal/migration"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// record attaches the ledger when DATABASE_URL is set
var record bool

func main() {
	rootCmd := &cobra.Command{
		Use:           "expcalc",
		Short:         "Experiment design and analysis calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&record, "record", false, "Record calculations in the ledger (requires DATABASE_URL)")

	rootCmd.AddCommand(
		newSampleSizeCmd(),
		newMDECmd(),
		newCurveCmd(),
		newSignificanceCmd(),
		newSRMCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the dependency container
func setup(ctx context.Context, withLedger bool) (*container.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c, err := container.New(cfg, internal.NewDefaultLogger())
	if err != nil {
		return nil, err
	}
	if withLedger {
		if !cfg.Database.Enabled() {
			return nil, fmt.Errorf("DATABASE_URL is required for the ledger")
		}
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSampleSizeCmd() *cobra.Command {
	var design designFlags
	var markdown bool

	cmd := &cobra.Command{
		Use:   "sample-size",
		Short: "Solve the per-group sample size for a planned test",
		Long: `Solve the sample size each arm needs to detect the given effect.

Example: expcalc sample-size --outcome binary --baseline 0.10 --mde 0.02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := design.powerRequest()
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context(), record)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			result, err := c.Calculator.SolveSampleSize(cmd.Context(), req)
			if err != nil {
				return err
			}
			if markdown {
				_, err = cmd.OutOrStdout().Write(report.SampleSizeMarkdown("Sample size", *result))
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	design.register(cmd)
	cmd.Flags().Float64Var(&design.mde, "mde", 0, "Minimum detectable effect in the chosen effect unit")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown summary instead of JSON")
	return cmd
}

func newMDECmd() *cobra.Command {
	var design designFlags
	var sizes []int

	cmd := &cobra.Command{
		Use:   "mde",
		Short: "Solve the minimum detectable effect for fixed sample sizes",
		Long: `Solve the smallest effect the design detects with the requested power.

Example: expcalc mde --outcome continuous --baseline 100 --std-dev 50 --sizes 1000,1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := design.powerRequest()
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context(), record)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			result, err := c.Calculator.SolveMinimumDetectableEffect(cmd.Context(), experiment.MDERequest{
				PowerRequest: base,
				SampleSizes:  sizes,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	design.register(cmd)
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Sample size of each arm, control first")
	_ = cmd.MarkFlagRequired("sizes")
	return cmd
}

func newCurveCmd() *cobra.Command {
	var design designFlags
	var mode string
	var levels []float64
	var sizes []int

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Tabulate sample size or MDE across power levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := design.powerRequest()
			if err != nil {
				return err
			}
			curveMode, err := experiment.ParseCurveMode(mode)
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context(), record)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			points, err := c.Calculator.PowerCurve(cmd.Context(), experiment.CurveRequest{
				PowerRequest: base,
				Mode:         curveMode,
				PowerLevels:  levels,
				SampleSizes:  sizes,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}

	design.register(cmd)
	cmd.Flags().Float64Var(&design.mde, "mde", 0, "Minimum detectable effect (sample_size mode)")
	cmd.Flags().StringVar(&mode, "mode", string(experiment.CurveSampleSize), "Curve mode: sample_size or mde")
	cmd.Flags().Float64SliceVar(&levels, "levels", nil, "Power levels to evaluate (default 0.10 to 0.99)")
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Sample size of each arm (mde mode)")
	return cmd
}

func newSignificanceCmd() *cobra.Command {
	var (
		file           string
		sheet          string
		outcome        string
		alpha          float64
		effectType     string
		comparisonType string
		bonferroni     int
		fraction       float64
		markdown       bool
		expected       []float64
	)

	cmd := &cobra.Command{
		Use:   "significance",
		Short: "Analyse observed experiment results from a spreadsheet",
		Long: `Compare arms read from an xlsx or csv file.

The file holds either one row per arm (group, sample_size, success_count or
mean and std_dev) or one row per observation (group, value).

Example: expcalc significance --file results.xlsx --effect-type relative --markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out experiment.OutcomeType
			if outcome != "" {
				parsed, err := experiment.ParseOutcomeType(outcome)
				if err != nil {
					return err
				}
				out = parsed
			}

			cfg := excel.DefaultReaderConfig()
			cfg.Sheet = sheet
			summary, layout, err := excel.NewExperimentReader(file, cfg).ReadExperiment(out)
			if err != nil {
				return err
			}

			c, err := setup(cmd.Context(), record)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			c.Logger.Debug("read %d arms from %s layout", len(summary.Groups), layout)

			req := experiment.SignificanceRequest{
				Experiment:        summary,
				SignificanceLevel: alpha,
				EffectType:        experiment.EffectType(effectType),
				ComparisonType:    experiment.ComparisonType(comparisonType),
				Corrections:       corrections(bonferroni, fraction),
			}
			result, err := c.Calculator.AnalyseSignificance(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !markdown {
				return printJSON(cmd.OutOrStdout(), result)
			}

			srm, err := c.Calculator.TestSampleRatioMismatch(cmd.Context(), experiment.SRMRequest{
				ObservedCounts:      excel.ObservedCounts(summary),
				ExpectedProportions: expected,
			})
			if err != nil {
				c.Logger.Warn("sample ratio check skipped: %v", err)
				srm = nil
			}
			_, err = cmd.OutOrStdout().Write(report.SignificanceMarkdown("Experiment results", *result, srm))
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to an xlsx or csv file")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default first sheet)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "binary or continuous (default inferred from the file)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance level (default from configuration)")
	cmd.Flags().StringVar(&effectType, "effect-type", "", "absolute or relative")
	cmd.Flags().StringVar(&comparisonType, "comparison", "", "all_vs_control or all_pairwise")
	cmd.Flags().IntVar(&bonferroni, "bonferroni", -1, "Apply Bonferroni; 0 derives the count from the comparisons")
	cmd.Flags().Float64Var(&fraction, "information-fraction", 0, "Apply O'Brien-Fleming at this interim look")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown report with a sample ratio check")
	cmd.Flags().Float64SliceVar(&expected, "expected", nil, "Planned allocation for the sample ratio check (default equal)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSRMCmd() *cobra.Command {
	var counts []int
	var expected []float64
	var threshold float64

	cmd := &cobra.Command{
		Use:   "srm",
		Short: "Test observed arm sizes for a sample ratio mismatch",
		Long: `Chi-square goodness-of-fit test of observed arm sizes.

Example: expcalc srm --counts 5170,4830 --expected 0.5,0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), record)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			result, err := c.Calculator.TestSampleRatioMismatch(cmd.Context(), experiment.SRMRequest{
				ObservedCounts:      counts,
				ExpectedProportions: expected,
				Threshold:           threshold,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntSliceVar(&counts, "counts", nil, "Observed units per arm")
	cmd.Flags().Float64SliceVar(&expected, "expected", nil, "Planned allocation (default equal)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Mismatch p-value threshold (default from configuration)")
	_ = cmd.MarkFlagRequired("counts")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [calculation-id]",
		Short: "List recorded calculations or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			if len(args) == 1 {
				id, err := core.ParseCalculationID(args[0])
				if err != nil {
					return err
				}
				calc, err := c.Calculator.GetCalculation(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), calc)
			}

			calcs, err := c.Calculator.ListCalculations(cmd.Context(), core.CalculationKind(kind), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), calcs)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by calculation kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of calculations")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Connect runs the migration
			c, err := setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "schema %s applied\n", migration.NewRunner().Version())
			return nil
		},
	}
}
