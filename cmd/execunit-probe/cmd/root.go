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

// Package cmd implements the execunit-probe subcommands, one file per
// command the way cmd/ptpcheck/cmd does.
package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is the main entry point. Exported so execunit-probe could be
// extended without touching core functionality, same as ptpcheck.RootCmd.
var RootCmd = &cobra.Command{
	Use:   "execunit-probe",
	Short: "Diagnostic probe for the execution-unit IPC channel",
}

var (
	rootVerboseFlag       bool
	rootEndpointFlag      string
	rootSerialFlag        bool
	rootTimeoutFlag       time.Duration
	rootMetricsAddr       string
	rootSystemdNotify     bool
	rootReconnectAttempts int
	rootReconnectFormula  string
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVar(&rootEndpointFlag, "endpoint", "", "dial address: a Unix socket path, or a serial device with --serial")
	RootCmd.PersistentFlags().BoolVar(&rootSerialFlag, "serial", false, "dial --endpoint as a serial port instead of a Unix socket")
	RootCmd.PersistentFlags().DurationVar(&rootTimeoutFlag, "timeout", 5*time.Second, "connect timeout (requests wait for their response without a time limit)")
	RootCmd.PersistentFlags().StringVar(&rootMetricsAddr, "metrics-addr", "", "if set, serve prometheus metrics on this address while the probe runs")
	RootCmd.PersistentFlags().BoolVar(&rootSystemdNotify, "systemd", false, "notify systemd (READY=1) once connected")
	RootCmd.PersistentFlags().IntVar(&rootReconnectAttempts, "reconnect-attempts", 1, "number of connect attempts before giving up (1 disables retrying)")
	RootCmd.PersistentFlags().StringVar(&rootReconnectFormula, "reconnect-backoff", "", "govaluate expression over 'attempt' giving the wait in seconds before each retry (default: "+backoffDefaultFormula+")")
	_ = RootCmd.MarkPersistentFlagRequired("endpoint")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Every
// subcommand's RunE calls this first, matching ptpcheck.ConfigureVerbosity.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
