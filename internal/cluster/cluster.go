// Package cluster stands up a local multi-node daemon topology, force-kills
// it to produce an unclean-shutdown state, and cleans prior run artifacts.
package cluster

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chainops/nodeharness/pkg/logging"
)

const (
	defaultHTTPPortBase = 8888
	defaultP2PPortBase  = 9876

	readyPollInitial = 100 * time.Millisecond
	readyPollMax     = time.Second
)

// Config parameterizes a local cluster.
type Config struct {
	Binary       string        // daemon binary, resolved via PATH
	BaseDir      string        // working directory for config/data/log trees
	Nodes        int           // producing node count
	Shape        Shape         // peer wiring
	Delay        time.Duration // pause between node launches
	HTTPPortBase int
	P2PPortBase  int
	ReadyTimeout time.Duration // 0 skips HTTP readiness polling
	Log          *logging.Logger
}

// Cluster owns the launched node handles.
type Cluster struct {
	cfg   Config
	log   *logging.Logger
	nodes []*Node
}

// New creates a cluster manager; nothing is launched yet
func New(cfg Config) *Cluster {
	if cfg.HTTPPortBase == 0 {
		cfg.HTTPPortBase = defaultHTTPPortBase
	}
	if cfg.P2PPortBase == 0 {
		cfg.P2PPortBase = defaultP2PPortBase
	}
	log := cfg.Log
	if log == nil {
		log = logging.NewLogger(logging.INFO, false)
	}
	return &Cluster{cfg: cfg, log: log}
}

// Launch starts all nodes in index order with the configured inter-node
// delay, then waits for each HTTP endpoint to answer. Any failure kills
// whatever was already started and returns an error.
func (c *Cluster) Launch(ctx context.Context) error {
	if c.cfg.Nodes < 1 {
		return fmt.Errorf("node count must be >= 1, got %d", c.cfg.Nodes)
	}
	if len(c.nodes) > 0 {
		return fmt.Errorf("cluster already launched")
	}

	c.log.Info("Standing up cluster", map[string]interface{}{
		"nodes":    c.cfg.Nodes,
		"topology": string(c.cfg.Shape),
		"delay":    c.cfg.Delay.String(),
	})

	for i := 0; i < c.cfg.Nodes; i++ {
		if i > 0 && c.cfg.Delay > 0 {
			time.Sleep(c.cfg.Delay)
		}

		node, err := c.launchNode(i)
		if err != nil {
			c.KillAll()
			return fmt.Errorf("launching node %d: %w", i, err)
		}
		c.nodes = append(c.nodes, node)
	}

	if c.cfg.ReadyTimeout > 0 {
		for _, node := range c.nodes {
			if err := c.waitReady(ctx, node); err != nil {
				c.KillAll()
				return fmt.Errorf("node %d never became ready: %w", node.Index, err)
			}
		}
	}

	c.log.Info("Cluster is up")
	return nil
}

// launchNode builds directories, wires peers and starts one daemon.
func (c *Cluster) launchNode(i int) (*Node, error) {
	node := &Node{
		Index:     i,
		ConfigDir: filepath.Join(c.cfg.BaseDir, "etc", nodeName(i)),
		DataDir:   filepath.Join(c.cfg.BaseDir, "var", "lib", nodeName(i)),
		HTTPAddr:  fmt.Sprintf("127.0.0.1:%d", c.cfg.HTTPPortBase+i),
		P2PAddr:   fmt.Sprintf("127.0.0.1:%d", c.cfg.P2PPortBase+i),
		LogPath:   filepath.Join(c.cfg.BaseDir, "var", "log", nodeName(i)+".log"),
	}

	for _, dir := range []string{node.ConfigDir, node.DataDir, filepath.Dir(node.LogPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	logFile, err := os.OpenFile(node.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening node log: %w", err)
	}

	args := []string{
		"--config-dir", node.ConfigDir,
		"--data-dir", node.DataDir,
		"--http-server-address", node.HTTPAddr,
		"--p2p-listen-endpoint", node.P2PAddr,
		"--verbose-http-errors",
		"--http-validate-host=false",
	}
	for _, j := range peerIndexes(c.cfg.Shape, i, c.cfg.Nodes) {
		args = append(args, "--p2p-peer-address", fmt.Sprintf("127.0.0.1:%d", c.cfg.P2PPortBase+j))
	}

	cmd := exec.Command(c.cfg.Binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting %s: %w", c.cfg.Binary, err)
	}

	node.cmd = cmd
	node.done = make(chan error, 1)
	go func() {
		node.done <- cmd.Wait()
		logFile.Close()
	}()

	c.log.Debug("Node launched", map[string]interface{}{
		"node": i,
		"pid":  node.PID(),
		"http": node.HTTPAddr,
	})
	return node, nil
}

// waitReady polls the node's info endpoint with backoff until it answers
// or the ready deadline passes.
func (c *Cluster) waitReady(ctx context.Context, node *Node) error {
	deadline := time.Now().Add(c.cfg.ReadyTimeout)
	backoff := readyPollInitial
	client := &http.Client{Timeout: readyPollInitial}

	var lastErr error
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := client.Get(node.Endpoint() + "/v1/node/get_info")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				c.log.Debug("Node ready", map[string]interface{}{"node": node.Index})
				return nil
			}
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > readyPollMax {
			backoff = readyPollMax
		}
	}

	return fmt.Errorf("ready deadline %v exceeded: %w", c.cfg.ReadyTimeout, lastErr)
}

// KillAll hard-kills every launched node. Data directories are left as-is:
// the unclean shutdown marker they now contain is the point.
func (c *Cluster) KillAll() {
	for _, node := range c.nodes {
		if err := node.Kill(); err != nil {
			c.log.Warn(err.Error())
		}
	}
	if len(c.nodes) > 0 {
		c.log.Info("Cluster nodes killed", map[string]interface{}{"count": len(c.nodes)})
	}
}

// SweepStray kills any daemon instances left over from earlier runs,
// matching by exact binary name. Errors are ignored: no match is the
// normal case.
func (c *Cluster) SweepStray() {
	name := filepath.Base(c.cfg.Binary)
	c.log.Debug("Sweeping stray daemon instances", map[string]interface{}{"name": name})
	exec.Command("pkill", "-9", "-x", name).Run()
}

// Cleanup removes config, data and log trees from prior runs
func (c *Cluster) Cleanup() error {
	for _, sub := range []string{"etc", "var"} {
		dir := filepath.Join(c.cfg.BaseDir, sub)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

// RemoveLogs deletes the node log tree, honoring --keep-logs upstream
func (c *Cluster) RemoveLogs() error {
	dir := filepath.Join(c.cfg.BaseDir, "var", "log")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing logs: %w", err)
	}
	return nil
}

// Node returns the handle for node i
func (c *Cluster) Node(i int) (*Node, error) {
	if i < 0 || i >= len(c.nodes) {
		return nil, fmt.Errorf("no node %d (cluster has %d)", i, len(c.nodes))
	}
	return c.nodes[i], nil
}

// Nodes returns all launched node handles
func (c *Cluster) Nodes() []*Node {
	return c.nodes
}

// RelaunchArgs is the fixed argv used to restart node i's daemon against
// its existing (dirty) state.
func (c *Cluster) RelaunchArgs(i int) ([]string, error) {
	node, err := c.Node(i)
	if err != nil {
		return nil, err
	}
	return []string{
		c.cfg.Binary,
		"--config-dir", node.ConfigDir,
		"--data-dir", node.DataDir,
		"--verbose-http-errors",
		"--http-validate-host=false",
	}, nil
}

func nodeName(i int) string {
	return fmt.Sprintf("node_%02d", i)
}
