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

package transportdial

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/shell-dot/execunit-ipc/channel"
)

// SerialBaudRate is the baud rate used by Serial. 115200 matches a typical
// modern USB-serial bridge; operators on slower hardware links should wrap
// their own Dialer if a different rate is required.
const SerialBaudRate = 115200

// Serial dials endpoint as a serial port device (e.g. "/dev/ttyUSB0"), the
// way sa53fw/mac opens its device port. serial.Port satisfies io.ReadWriteCloser,
// so it already implements channel.Stream; the timeout only bounds how long
// the initial open blocks, mirroring the other dialers' connect-phase
// timeout semantics (the port itself has no notion of "connect").
func Serial(_ context.Context, endpoint string, timeout time.Duration) (channel.Stream, error) {
	mode := &serial.Mode{BaudRate: SerialBaudRate}

	opened := make(chan struct{})
	var port serial.Port
	var openErr error
	go func() {
		port, openErr = serial.Open(endpoint, mode)
		close(opened)
	}()

	select {
	case <-opened:
		if openErr != nil {
			return nil, fmt.Errorf("transportdial: opening serial port %s: %w", endpoint, openErr)
		}
		return port, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("transportdial: opening serial port %s: %w", endpoint, context.DeadlineExceeded)
	}
}
