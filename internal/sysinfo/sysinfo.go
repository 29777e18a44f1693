// Package sysinfo snapshots the host the harness runs on, so failures can
// be correlated with the machine that produced them.
package sysinfo

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time host description.
type Snapshot struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
	CPUModel     string `json:"cpu_model"`
	CPUThreads   int    `json:"cpu_threads"`
	RAMBytes     uint64 `json:"ram_bytes"`
}

// Collect gathers the snapshot. Individual probe failures degrade the
// snapshot instead of failing it; a harness run must not abort because a
// hardware query did.
func Collect() Snapshot {
	snap := Snapshot{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		snap.CPUModel = infos[0].ModelName
	}
	if threads, err := cpu.Counts(true); err == nil {
		snap.CPUThreads = threads
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.RAMBytes = vm.Total
	}

	return snap
}

// Fields renders the snapshot as log fields
func (s Snapshot) Fields() map[string]interface{} {
	return map[string]interface{}{
		"hostname": s.Hostname,
		"os":       s.OS,
		"platform": s.Platform,
		"arch":     s.Architecture,
		"cpu":      fmt.Sprintf("%s (%d threads)", s.CPUModel, s.CPUThreads),
		"ram_gb":   fmt.Sprintf("%.1f", float64(s.RAMBytes)/(1<<30)),
	}
}
