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
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shell-dot/execunit-ipc/channel/command"
	"github.com/shell-dot/execunit-ipc/metrics"
)

func init() {
	sendResultCmd := &cobra.Command{
		Use:   "send-result [payload]",
		Short: "Send a result message",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommandSend(func(c *command.Command, args []string) bool { return c.SendResult([]byte(args[0])) }),
	}
	sendErrorCmd := &cobra.Command{
		Use:   "send-error [payload]",
		Short: "Send an error message",
		Args:  cobra.ExactArgs(1),
		RunE:  runCommandSend(func(c *command.Command, args []string) bool { return c.SendError([]byte(args[0])) }),
	}
	sendReturnSuccessCmd := &cobra.Command{
		Use:   "send-return-success",
		Short: "Send an empty return-success message",
		Args:  cobra.NoArgs,
		RunE:  runCommandSend(func(c *command.Command, _ []string) bool { return c.SendReturnSuccess() }),
	}
	sendReturnFailedCmd := &cobra.Command{
		Use:   "send-return-failed",
		Short: "Send an empty return-failed message",
		Args:  cobra.NoArgs,
		RunE:  runCommandSend(func(c *command.Command, _ []string) bool { return c.SendReturnFailed() }),
	}
	sendConfOngoingCmd := &cobra.Command{
		Use:   "send-conf-ongoing-result",
		Short: "Send a conf message marking the operation as ongoing",
		Args:  cobra.NoArgs,
		RunE:  runCommandSend(func(c *command.Command, _ []string) bool { return c.SendConfOngoingResult() }),
	}
	sendConfStopWaitCmd := &cobra.Command{
		Use:   "send-conf-stop-wait [ms]",
		Short: "Send a conf message with a stop-wait duration in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: runCommandSend(func(c *command.Command, args []string) bool {
			ms, err := strconv.Atoi(args[0])
			if err != nil {
				log.Errorf("execunit-probe: %q is not an integer: %v", args[0], err)
				return false
			}
			return c.SendConfStopWait(int32(ms))
		}),
	}
	RootCmd.AddCommand(sendResultCmd, sendErrorCmd, sendReturnSuccessCmd, sendReturnFailedCmd, sendConfOngoingCmd, sendConfStopWaitCmd)
}

func runCommandSend(send func(c *command.Command, args []string) bool) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return runProbe(func(rec *metrics.Recorder) error {
			c := command.New(rootEndpointFlag, dialer())
			c.SetRecorder(rec)
			defer c.Close()

			handshake, err := connectWithRetry(context.Background(), func(ctx context.Context) ([]byte, error) {
				return c.Connect(ctx, rootTimeoutFlag)
			})
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", rootEndpointFlag, err)
			}
			notifySystemdReady()
			printHandshake(handshake)

			if !send(c, args) {
				return fmt.Errorf("send did not complete (transport became inactive)")
			}
			log.Info("sent")
			return nil
		})
	}
}
