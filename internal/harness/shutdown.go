package harness

import (
	"fmt"
	"os"

	"github.com/chainops/nodeharness/internal/cluster"
	"github.com/chainops/nodeharness/internal/report"
	"github.com/chainops/nodeharness/pkg/logging"
)

// Shutdown applies the teardown policy after a run. The validation core
// never makes these decisions itself; it only reports succeeded.
func Shutdown(c *cluster.Cluster, opts Options, succeeded bool, collector *report.Collector, log *logging.Logger) {
	if !succeeded && opts.DumpErrorDetails {
		dumpErrorDetails(c, collector, log)
	}

	if opts.LeaveRunning {
		log.Info("Leaving daemon instances running on request")
	} else {
		c.KillAll()
		if opts.CleanRun {
			c.SweepStray()
		}
	}

	if opts.KeepLogs {
		log.Info("Keeping logs on request")
	} else {
		if err := c.RemoveLogs(); err != nil {
			log.Warn(fmt.Sprintf("Failed to remove logs: %v", err))
		}
	}
}

// dumpErrorDetails prints the failing attempt's stderr and each node's log
// so the failure is diagnosable without a rerun.
func dumpErrorDetails(c *cluster.Cluster, collector *report.Collector, log *logging.Logger) {
	if collector != nil {
		if failed := collector.FailedAttempt(); failed != nil && failed.Stderr != "" {
			log.Error(fmt.Sprintf("Attempt %d stderr follows", failed.Index))
			fmt.Fprintln(os.Stderr, failed.Stderr)
		}
	}

	for _, node := range c.Nodes() {
		data, err := os.ReadFile(node.LogPath)
		if err != nil {
			log.Warn(fmt.Sprintf("Cannot read node %d log: %v", node.Index, err))
			continue
		}
		log.Error(fmt.Sprintf("Node %d log (%s) follows", node.Index, node.LogPath))
		os.Stderr.Write(data)
	}
}
