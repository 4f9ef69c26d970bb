/*
Copyright (c) the execunit-ipc authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var procStartTime = time.Now()

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report the probe process's own resource usage",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	RootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	ConfigureVerbosity()

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	rows := [][]string{
		{"uptime", time.Since(procStartTime).Round(time.Second).String()},
	}
	if pct, err := proc.Percent(0); err == nil {
		rows = append(rows, []string{"cpu_pct", fmt.Sprintf("%.1f", pct)})
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		rows = append(rows, []string{"rss_bytes", fmt.Sprintf("%d", mem.RSS)})
		rows = append(rows, []string{"vms_bytes", fmt.Sprintf("%d", mem.VMS)})
	}
	if fds, err := proc.NumFDs(); err == nil {
		rows = append(rows, []string{"num_fds", fmt.Sprintf("%d", fds)})
	}
	if threads, err := proc.NumThreads(); err == nil {
		rows = append(rows, []string{"num_threads", fmt.Sprintf("%d", threads)})
	}

	printStatusTable(rows)
	return nil
}

// printStatusTable renders rows as a table, colorizing the header only when
// stdout is a real terminal — the same x/term.IsTerminal gate sa53fw uses
// before reaching for fatih/color.
func printStatusTable(rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	header := []string{"field", "value"}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		header[0] = color.CyanString(header[0])
	}
	table.SetHeader(header)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}
