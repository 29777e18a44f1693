package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/chainops/nodeharness/internal/sysinfo"
)

var sysinfoOutput string

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show the host snapshot the harness records at run start",
	RunE:  runSysinfo,
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
	sysinfoCmd.Flags().StringVarP(&sysinfoOutput, "output", "o", "table", "output format: table or json")
}

func runSysinfo(cmd *cobra.Command, args []string) error {
	snap := sysinfo.Collect()

	if sysinfoOutput == "json" {
		output, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("Hostname", snap.Hostname)
	table.Append("OS", snap.OS)
	table.Append("Platform", snap.Platform)
	table.Append("Architecture", snap.Architecture)
	table.Append("CPU", fmt.Sprintf("%s (%d threads)", snap.CPUModel, snap.CPUThreads))
	table.Append("RAM", fmt.Sprintf("%.1f GB", float64(snap.RAMBytes)/(1<<30)))

	table.Render()
	return nil
}
