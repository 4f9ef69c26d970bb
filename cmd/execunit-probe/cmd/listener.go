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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shell-dot/execunit-ipc/channel/listener"
	"github.com/shell-dot/execunit-ipc/metrics"
)

var listenerMinVersionFlag string

func init() {
	getMetadataCmd := &cobra.Command{
		Use:   "get-metadata",
		Short: "Issue a get_metadata request and print the response",
		RunE:  runListenerRequest(listenerOpGetMetadata),
	}
	getDataCmd := &cobra.Command{
		Use:   "get-data-to-send",
		Short: "Issue a get_data_to_send request and print the response",
		RunE:  runListenerRequest(listenerOpGetDataToSend),
	}
	newDataCmd := &cobra.Command{
		Use:   "new-data [payload]",
		Short: "Send a new_data_from_c2 message (fire-and-forget)",
		Args:  cobra.ExactArgs(1),
		RunE:  runNewDataFromC2,
	}
	for _, c := range []*cobra.Command{getMetadataCmd, getDataCmd, newDataCmd} {
		c.Flags().StringVar(&listenerMinVersionFlag, "min-version", "", "warn if the handshake payload looks like a semver below this")
		RootCmd.AddCommand(c)
	}
}

type listenerOp func(l *listener.Listener) ([]byte, bool)

func listenerOpGetMetadata(l *listener.Listener) ([]byte, bool)   { return l.GetMetadata() }
func listenerOpGetDataToSend(l *listener.Listener) ([]byte, bool) { return l.GetDataToSend() }

func runListenerRequest(op listenerOp) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		return runProbe(func(rec *metrics.Recorder) error {
			l := listener.New(rootEndpointFlag, dialer())
			l.SetRecorder(rec)
			defer l.Close()

			handshake, err := connectWithRetry(context.Background(), func(ctx context.Context) ([]byte, error) {
				return l.Connect(ctx, rootTimeoutFlag)
			})
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", rootEndpointFlag, err)
			}
			if listenerMinVersionFlag != "" {
				warnIfBelowMinVersion(handshake, listenerMinVersionFlag)
			}
			notifySystemdReady()
			printHandshake(handshake)

			start := time.Now()
			payload, ok := op(l)
			rec.ObserveRTT(time.Since(start))
			if !ok {
				return fmt.Errorf("request did not complete (transport became inactive)")
			}
			printPayload("response", payload)
			return nil
		})
	}
}

func runNewDataFromC2(_ *cobra.Command, args []string) error {
	ConfigureVerbosity()
	return runProbe(func(rec *metrics.Recorder) error {
		l := listener.New(rootEndpointFlag, dialer())
		l.SetRecorder(rec)
		defer l.Close()

		handshake, err := connectWithRetry(context.Background(), func(ctx context.Context) ([]byte, error) {
			return l.Connect(ctx, rootTimeoutFlag)
		})
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", rootEndpointFlag, err)
		}
		if listenerMinVersionFlag != "" {
			warnIfBelowMinVersion(handshake, listenerMinVersionFlag)
		}
		notifySystemdReady()
		if !l.NewDataFromC2([]byte(args[0])) {
			return fmt.Errorf("new_data_from_c2 did not send (transport became inactive)")
		}
		log.Info("new_data_from_c2 sent")
		return nil
	})
}

func printHandshake(payload []byte) {
	fmt.Println(color.CyanString("handshake:"), string(payload))
}

func printPayload(label string, payload []byte) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{label + " (bytes)", fmt.Sprintf("%d", len(payload))})
	table.Append([]string{label + " (utf8)", string(payload)})
	table.Render()
}
