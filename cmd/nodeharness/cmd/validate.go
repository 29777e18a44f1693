package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chainops/nodeharness/internal/cluster"
	"github.com/chainops/nodeharness/internal/harness"
	"github.com/chainops/nodeharness/internal/report"
	"github.com/chainops/nodeharness/internal/runner"
	"github.com/chainops/nodeharness/internal/sysinfo"
	"github.com/chainops/nodeharness/internal/validate"
	"github.com/chainops/nodeharness/pkg/logging"
)

var (
	// Daemon and workspace
	nodeBinary string
	baseDir    string

	// Cluster shape
	clusterNodes int
	topology     string
	topologyFile string
	launchDelay  time.Duration
	readyTimeout time.Duration

	// Validation contract
	attempts        int
	attemptTimeout  time.Duration
	expectExitCode  int
	expectStderrSub string

	// Teardown policy
	keepLogs         bool
	dumpErrorDetails bool
	leaveRunning     bool
	cleanRun         bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Crash-recovery contract validations",
	Long:  `Commands that assert specific daemon behaviors after forced failures.`,
}

var dirtyDBCmd = &cobra.Command{
	Use:   "dirty-db",
	Short: "Validate that the dirty database flag sticks across restarts",
	Long: `Stands up a local cluster, hard-kills every node to leave the data
directory dirty, then relaunches the daemon repeatedly. Every relaunch must
refuse to start with the expected exit code and stderr diagnostic. A single
matching attempt is not enough: the refusal must hold on every retry while
the on-disk state stays dirty.`,
	RunE: runDirtyDB,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.AddCommand(dirtyDBCmd)

	dirtyDBCmd.Flags().StringVar(&nodeBinary, "node-bin", "", "node daemon binary (default from config or \"noded\")")
	dirtyDBCmd.Flags().StringVar(&baseDir, "base-dir", "", "working directory for cluster state (default from config or \".\")")

	dirtyDBCmd.Flags().IntVar(&clusterNodes, "nodes", 1, "producing node count")
	dirtyDBCmd.Flags().StringVar(&topology, "topology", "mesh", "peer topology: mesh, star or ring")
	dirtyDBCmd.Flags().StringVar(&topologyFile, "topology-file", "", "YAML topology description (overrides --nodes/--topology/--delay)")
	dirtyDBCmd.Flags().DurationVar(&launchDelay, "delay", time.Second, "delay between node launches")
	dirtyDBCmd.Flags().DurationVar(&readyTimeout, "ready-timeout", 10*time.Second, "per-node HTTP readiness deadline (0 disables polling)")

	dirtyDBCmd.Flags().IntVar(&attempts, "attempts", 0, "restart attempts (default from config or 3)")
	dirtyDBCmd.Flags().DurationVar(&attemptTimeout, "timeout", 0, "hard wait deadline per attempt (default from config or 6s)")
	dirtyDBCmd.Flags().IntVar(&expectExitCode, "expect-exit-code", 2, "exit code the daemon must report")
	dirtyDBCmd.Flags().StringVar(&expectStderrSub, "expect-stderr", "database dirty flag set", "substring the daemon must write to stderr")

	dirtyDBCmd.Flags().BoolVar(&keepLogs, "keep-logs", false, "retain node and harness logs after the run")
	dirtyDBCmd.Flags().BoolVar(&dumpErrorDetails, "dump-error-details", false, "dump captured stderr and node logs on failure")
	dirtyDBCmd.Flags().BoolVar(&leaveRunning, "leave-running", false, "do not kill daemon instances during teardown")
	dirtyDBCmd.Flags().BoolVar(&cleanRun, "clean-run", false, "kill stray daemon instances before bring-up")
}

func runDirtyDB(cmd *cobra.Command, args []string) error {
	// Flags win; config fills the gaps.
	if nodeBinary == "" {
		nodeBinary = viper.GetString("node.binary")
	}
	if baseDir == "" {
		baseDir = viper.GetString("harness.base_dir")
	}
	if attempts == 0 {
		attempts = viper.GetInt("validate.attempts")
	}
	if attemptTimeout == 0 {
		attemptTimeout = viper.GetDuration("validate.timeout")
	}

	opts := harness.Options{
		Verbose:          verbose,
		KeepLogs:         keepLogs,
		DumpErrorDetails: dumpErrorDetails,
		LeaveRunning:     leaveRunning,
		CleanRun:         cleanRun,
		Attempts:         attempts,
		AttemptTimeout:   attemptTimeout,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	shape, err := cluster.ParseShape(topology)
	if err != nil {
		return err
	}
	if topologyFile != "" {
		tf, err := cluster.LoadTopologyFile(topologyFile)
		if err != nil {
			return err
		}
		shape = cluster.Shape(tf.Shape)
		clusterNodes = tf.Nodes
		if d := tf.LaunchDelay(); d > 0 {
			launchDelay = d
		}
	}

	level := logging.INFO
	if opts.Verbose {
		level = logging.DEBUG
	}

	// Harness artifacts live outside the cluster's etc/var trees so
	// pre-run cleanup cannot eat the active log file.
	harnessLogDir := filepath.Join(baseDir, "harness_logs")
	os.RemoveAll(harnessLogDir)

	log, err := logging.NewFileLogger(harnessLogDir, "nodeharness", level, jsonLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging unavailable (%v), logging to stdout\n", err)
		log = logging.NewLogger(level, jsonLogs)
	}
	defer log.Close()

	log.Info("BEGIN", sysinfo.Collect().Fields())

	collector := report.NewCollector()
	metrics := report.NewMetrics()

	cl := cluster.New(cluster.Config{
		Binary:       nodeBinary,
		BaseDir:      baseDir,
		Nodes:        clusterNodes,
		Shape:        shape,
		Delay:        launchDelay,
		ReadyTimeout: readyTimeout,
		Log:          log,
	})

	// Teardown runs exactly once on every exit path. Registration is
	// LIFO: summary and metrics flush first, then the shutdown policy,
	// then harness log retention.
	succeeded := false
	fin := harness.NewFinalizer(30 * time.Second)
	defer fin.Finish()

	if !opts.KeepLogs {
		fin.Register(func(ctx context.Context) error {
			return os.RemoveAll(harnessLogDir)
		})
	}
	fin.Register(func(ctx context.Context) error {
		harness.Shutdown(cl, opts, succeeded, collector, log)
		return nil
	})
	fin.Register(func(ctx context.Context) error {
		collector.WriteSummary(os.Stdout)
		return metrics.WriteTextfile(filepath.Join(harnessLogDir, "metrics.prom"))
	})

	ctx := context.Background()

	if opts.CleanRun {
		cl.SweepStray()
	}
	if err := cl.Cleanup(); err != nil {
		return err
	}

	log.Info("Stand up cluster", map[string]interface{}{
		"nodes":    clusterNodes,
		"topology": string(shape),
		"delay":    launchDelay.String(),
	})
	if err := cl.Launch(ctx); err != nil {
		return fmt.Errorf("failed to stand up cluster: %w", err)
	}

	log.Info("Kill cluster nodes to leave the database dirty")
	cl.KillAll()

	argv, err := cl.RelaunchArgs(0)
	if err != nil {
		return err
	}

	log.Info("Restart daemon repeatedly to ensure the dirty database flag sticks")
	validator := &validate.RestartValidator{
		Runner:    runner.New(),
		Log:       log,
		Collector: collector,
		Metrics:   metrics,
	}
	if err := validator.Validate(ctx, validate.Config{
		Argv:     argv,
		Attempts: opts.Attempts,
		Timeout:  opts.AttemptTimeout,
		Expected: validate.Signature{
			ExitCode:       expectExitCode,
			StderrContains: expectStderrSub,
		},
	}); err != nil {
		log.Error(fmt.Sprintf("TEST FAILED: %v", err))
		return err
	}

	succeeded = true
	log.Info("TEST PASSED", map[string]interface{}{
		"attempts": opts.Attempts,
		"elapsed":  collector.Elapsed().Round(time.Millisecond).String(),
	})
	return nil
}
