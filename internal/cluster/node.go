package cluster

import (
	"fmt"
	"os/exec"
	"syscall"
)

// Node is the handle for one launched daemon instance.
type Node struct {
	Index     int
	ConfigDir string
	DataDir   string
	HTTPAddr  string // host:port of the daemon's HTTP endpoint
	P2PAddr   string
	LogPath   string

	cmd  *exec.Cmd
	done chan error
}

// PID returns the daemon pid, or 0 if the node was never started
func (n *Node) PID() int {
	if n.cmd == nil || n.cmd.Process == nil {
		return 0
	}
	return n.cmd.Process.Pid
}

// Endpoint returns the node's HTTP base URL
func (n *Node) Endpoint() string {
	return "http://" + n.HTTPAddr
}

// Alive reports whether the daemon process currently exists
func (n *Node) Alive() bool {
	pid := n.PID()
	if pid == 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// Kill hard-kills the daemon's process group and reaps the exit. This is
// the unclean shutdown that leaves the data directory dirty.
func (n *Node) Kill() error {
	pid := n.PID()
	if pid == 0 {
		return nil
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if killErr := syscall.Kill(pid, syscall.SIGKILL); killErr != nil && n.Alive() {
			return fmt.Errorf("killing node %d (pid %d): %w", n.Index, pid, killErr)
		}
	}

	if n.done != nil {
		<-n.done // reap before reporting the node dead
		n.done = nil
	}
	return nil
}
