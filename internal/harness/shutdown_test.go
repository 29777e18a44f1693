package harness

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chainops/nodeharness/internal/cluster"
	"github.com/chainops/nodeharness/internal/report"
	"github.com/chainops/nodeharness/pkg/logging"
)

func testCluster(t *testing.T) (*cluster.Cluster, string) {
	t.Helper()
	baseDir := t.TempDir()

	logDir := filepath.Join(baseDir, "var", "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "node_00.log"), []byte("log line\n"), 0644); err != nil {
		t.Fatal(err)
	}

	return cluster.New(cluster.Config{
		Binary:  "noded",
		BaseDir: baseDir,
		Nodes:   1,
		Shape:   cluster.ShapeMesh,
	}), baseDir
}

func quietLogger() *logging.Logger {
	log := logging.NewLogger(logging.ERROR, false)
	log.SetOutput(io.Discard)
	return log
}

func TestShutdownRemovesLogsByDefault(t *testing.T) {
	c, baseDir := testCluster(t)

	opts := Options{Attempts: 3, AttemptTimeout: time.Second}
	Shutdown(c, opts, true, report.NewCollector(), quietLogger())

	if _, err := os.Stat(filepath.Join(baseDir, "var", "log")); !os.IsNotExist(err) {
		t.Error("log directory should be removed without --keep-logs")
	}
}

func TestShutdownKeepsLogsOnRequest(t *testing.T) {
	c, baseDir := testCluster(t)

	opts := Options{Attempts: 3, AttemptTimeout: time.Second, KeepLogs: true}
	Shutdown(c, opts, false, report.NewCollector(), quietLogger())

	if _, err := os.Stat(filepath.Join(baseDir, "var", "log", "node_00.log")); err != nil {
		t.Errorf("node log should survive with --keep-logs: %v", err)
	}
}
