// Package main provides the fdcore CLI, a driver for the propagation core.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/fdcore/internal/parallel"
	"github.com/gitrdm/fdcore/internal/queens"
	"github.com/gitrdm/fdcore/pkg/fd"
	"github.com/gitrdm/fdcore/pkg/satbridge"
)

// Set through -ldflags at release time.
var (
	gitCommit = ""
	buildDate = ""
)

var (
	configPath string
	logLevel   string

	queensN     int
	queensLimit int
	queensStats bool
	queensSAT   bool

	benchFrom    int
	benchTo      int
	benchWorkers int

	storeConfig *fd.Config
)

var rootCmd = &cobra.Command{
	Use:           "fdcore",
	Short:         "fdcore - finite-domain propagation core",
	Long:          "fdcore drives the finite-domain propagation core on demo models.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd.ErrOrStderr(), logLevel); err != nil {
			return err
		}
		cfg := fd.DefaultConfig()
		if configPath != "" {
			var err error
			if cfg, err = fd.LoadConfig(configPath); err != nil {
				return err
			}
		}
		storeConfig = cfg
		return nil
	},
}

var queensCmd = &cobra.Command{
	Use:   "queens",
	Short: "Count N-queens solutions by depth-first search",
	Args:  cobra.NoArgs,
	RunE:  runQueens,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Solve a range of N-queens boards in parallel",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := fd.GetVersionInfo(gitCommit, buildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "fdcore %s (%s)\n", info.Version, info.GoVersion)
		if info.GitCommit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "commit %s built %s\n", info.GitCommit, info.BuildDate)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML store configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	queensCmd.Flags().IntVarP(&queensN, "size", "n", 8, "Board size")
	queensCmd.Flags().IntVar(&queensLimit, "limit", 0, "Stop after this many solutions (0 = all)")
	queensCmd.Flags().BoolVar(&queensStats, "stats", false, "Print propagation statistics")
	queensCmd.Flags().BoolVar(&queensSAT, "sat", false, "Find one solution with the SAT encoding instead")

	benchCmd.Flags().IntVar(&benchFrom, "from", 4, "Smallest board")
	benchCmd.Flags().IntVar(&benchTo, "to", 10, "Largest board")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 0, "Worker goroutines (0 = CPU count)")

	rootCmd.AddCommand(queensCmd, benchCmd, versionCmd)
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func runQueens(cmd *cobra.Command, args []string) error {
	if queensN < 1 {
		return fmt.Errorf("board size must be positive, got %d", queensN)
	}
	out := cmd.OutOrStdout()
	mon := fd.NewMonitor()
	m := queens.NewModel(queensN, fd.WithConfig(storeConfig), fd.WithMonitor(mon))

	if queensSAT {
		return runQueensSAT(out, m)
	}

	start := time.Now()
	res, err := m.Solve(cmd.Context(), queensLimit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d-queens: %d solutions, %d nodes, %d failures in %v\n",
		res.N, res.Solutions, res.Nodes, res.Failures, time.Since(start).Round(time.Microsecond))
	if res.First != nil {
		fmt.Fprintf(out, "first: %v\n", res.First)
	}
	if queensStats {
		fmt.Fprintln(out, mon.Stats())
	}
	return nil
}

func runQueensSAT(out io.Writer, m *queens.Model) error {
	b, err := satbridge.New()
	if err != nil {
		return err
	}
	b.Attach(m.Store)
	if err := m.EncodeSAT(b); err != nil {
		return err
	}
	sat, err := b.Solve()
	if err != nil {
		return err
	}
	if !sat {
		fmt.Fprintf(out, "%d-queens: unsatisfiable\n", len(m.Rows))
		return nil
	}
	model := b.Model()
	cols := make([]int, len(m.Rows))
	for i, r := range m.Rows {
		cols[i] = model[r]
	}
	fmt.Fprintf(out, "%d-queens: %v\n", len(m.Rows), cols)
	return nil
}

type benchRow struct {
	res     queens.Result
	elapsed time.Duration
	err     error
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchFrom < 1 || benchTo < benchFrom {
		return fmt.Errorf("invalid board range %d..%d", benchFrom, benchTo)
	}
	ctx := cmd.Context()
	pool := parallel.NewWorkerPool(benchWorkers)
	defer pool.Shutdown()

	mon := fd.NewMonitor()
	rows, err := parallel.Map(ctx, pool, benchTo-benchFrom+1, func(i int) benchRow {
		start := time.Now()
		m := queens.NewModel(benchFrom+i, fd.WithConfig(storeConfig), fd.WithMonitor(mon))
		res, err := m.Solve(ctx, 0)
		return benchRow{res: res, elapsed: time.Since(start), err: err}
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%4s %10s %10s %12s\n", "n", "solutions", "nodes", "time")
	for _, r := range rows {
		if r.err != nil {
			return r.err
		}
		fmt.Fprintf(out, "%4d %10d %10d %12v\n",
			r.res.N, r.res.Solutions, r.res.Nodes, r.elapsed.Round(time.Microsecond))
	}
	fmt.Fprintln(out, mon.Stats())
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
