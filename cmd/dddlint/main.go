// dddlint analyzes a codebase's declared types for DDD tactical-pattern
// compliance: entities, value objects, aggregates, repositories, domain
// services and domain events are checked against a fixed structural rule
// catalog and the findings are ranked into an action list.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pedromsantos/dddlint/internal/analyze"
	"github.com/pedromsantos/dddlint/internal/catalog"
	"github.com/pedromsantos/dddlint/internal/config"
	"github.com/pedromsantos/dddlint/internal/descriptor"
	"github.com/pedromsantos/dddlint/internal/logging"
	"github.com/pedromsantos/dddlint/internal/report"
	"github.com/pedromsantos/dddlint/internal/scan"
	"github.com/pedromsantos/dddlint/internal/store"
	"github.com/pedromsantos/dddlint/internal/watch"
)

var (
	// Global flags
	verbose   bool
	workspace string
	format    string
	failOn    string
	noStore   bool

	// Logger
	logger *zap.Logger

	// Set when a run found failures at or above the fail-on severity.
	complianceFailed bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dddlint",
	Short: "dddlint - DDD tactical-pattern compliance analyzer",
	Long: `dddlint scans a codebase's type declarations and checks them against a
catalog of DDD tactical-design rules:

  entities      identity field, identity-keyed equality, real behavior
  value objects immutability, attribute equality, constructor validation
  aggregates    a single root reachable from outside the cluster
  repositories  one repository per aggregate root, declared as a port
  events        immutable, named in the past tense

Verdicts are grouped per category and failures are ranked into a
prioritized action list. Repeated runs on the same input produce
byte-identical reports.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Close()
	},
}

// analyzeCmd runs one full analysis
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a source tree for DDD compliance",
	Long: `Scans the source tree (Go and Python), classifies every declared type,
evaluates the rule catalog and prints the compliance report.

The exit code is 0 for a clean run and 2 when failures at or above the
--fail-on severity were found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

// rulesCmd lists the catalog
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rule catalog",
	RunE:  runRules,
}

// historyCmd shows persisted runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analysis runs",
	RunE:  runHistory,
}

// watchCmd re-analyzes on file changes
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-run analysis whenever source files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory holding .dddlint/")

	analyzeCmd.Flags().StringVarP(&format, "format", "f", "text", "report format: text or json")
	analyzeCmd.Flags().StringVar(&failOn, "fail-on", "low", "lowest severity that fails the run: critical, high, medium or low")
	analyzeCmd.Flags().BoolVar(&noStore, "no-store", false, "skip persisting the run to history")

	historyCmd.Flags().IntP("limit", "n", 10, "number of runs to show")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dddlint: %v\n", err)
		os.Exit(1)
	}
	if complianceFailed {
		os.Exit(2)
	}
}

// setup loads config and initializes the file logger. Shared by every
// command that runs analysis.
func setup() (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(workspace); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}
	return cfg, nil
}

func buildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	cat, err := catalog.Customized(cfg.Rules.Disabled, cfg.Rules.Severity)
	if err != nil {
		// An inconsistent catalog invalidates all results; abort before
		// evaluating anything.
		return nil, err
	}
	return cat, nil
}

func targetPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	root := targetPath(args)
	rep, err := analyzeOnce(cmd.Context(), cfg, cat, root)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		if err := report.RenderJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	case "text":
		if err := report.RenderText(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	threshold := catalog.Severity(failOn)
	if threshold.Weight() == 0 {
		return fmt.Errorf("unknown --fail-on severity %q", failOn)
	}
	if rep.FailuresAtOrAbove(threshold) > 0 {
		complianceFailed = true
	}
	return nil
}

// analyzeOnce runs the full pipeline: scan, classify, evaluate, report,
// persist. Either the complete report is produced or an error is returned;
// partial results are never emitted.
func analyzeOnce(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, root string) (*report.Report, error) {
	scanner := scan.New(scan.WithExcludes(cfg.Scan.Exclude...))
	snapshot, err := scanner.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	logger.Debug("scan complete",
		zap.String("root", root),
		zap.Int("types", len(snapshot.Types)),
		zap.Int("clusters", len(snapshot.Clusters)))

	analyzer := analyze.New(cat, analyze.WithWorkers(cfg.Analysis.Workers))
	set, err := analyzer.Run(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	rep := report.Generate(set)
	logger.Info("analysis complete",
		zap.Int("types", rep.Summary.Types),
		zap.Int("failed", rep.Summary.Failed),
		zap.Int("gaps", rep.Summary.CoverageGaps))

	if !cfg.Store.Disabled && !noStore {
		if err := persistRun(ctx, cfg, root, rep); err != nil {
			// History is best effort; the report already exists.
			logger.Warn("could not persist run", zap.Error(err))
		}
	}
	return rep, nil
}

func persistRun(ctx context.Context, cfg *config.Config, root string, rep *report.Report) error {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return st.SaveRun(ctx, uuid.NewString(), abs, rep)
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var current descriptor.Category
	for _, r := range cat.All() {
		if r.Category != current {
			current = r.Category
			fmt.Fprintf(out, "\n%s\n", current)
		}
		flags := ""
		if r.Heuristic {
			flags = " (heuristic)"
		}
		fmt.Fprintf(out, "  %-8s %-8s %s%s\n", r.ID, r.Severity, r.Summary, flags)
	}
	fmt.Fprintf(out, "\n%d rules\n", cat.Len())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	runs, err := st.History(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  types=%d fail=%d (crit=%d high=%d) gaps=%d  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.ID[:8],
			r.Summary.Types, r.Summary.Failed,
			r.Summary.FailedCritical, r.Summary.FailedHigh,
			r.Summary.CoverageGaps,
			r.Root)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	root := targetPath(args)

	run := func(ctx context.Context) error {
		rep, rerr := analyzeOnce(ctx, cfg, cat, root)
		if rerr != nil {
			return rerr
		}
		return report.RenderText(cmd.OutOrStdout(), rep)
	}

	// Initial run before settling into the event loop.
	if err := run(cmd.Context()); err != nil {
		return err
	}

	w, err := watch.New(root, run)
	if err != nil {
		return err
	}
	if err := w.Start(cmd.Context()); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s for changes (ctrl-c to stop)\n", root)
	<-cmd.Context().Done()
	return nil
}
