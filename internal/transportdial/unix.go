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

// Package transportdial supplies concrete channel.Dialer implementations.
// The CORE transport (channel.Transport) is deliberately agnostic to how
// the duplex stream is obtained — spec.md places the producer of the pipe
// endpoint out of scope — but a working repo needs at least one real
// dialer. This package provides two: a Unix-domain-socket dialer (the
// common case: the execution unit listens on a named pipe-like local
// socket) and a serial-port dialer for execution units reached over a
// serial link.
package transportdial

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/shell-dot/execunit-ipc/channel"
)

// socketBufferBytes tunes the socket's receive and send buffers; management-style
// traffic on this channel is bursty but low-volume, so a modest fixed
// buffer avoids the default scaling heuristics of the kernel's autotuning.
const socketBufferBytes = 256 * 1024

// Unix dials endpoint as a Unix domain socket path, the way
// fbclock/daemon's datafetcher connects to ptp4l's management socket.
func Unix(ctx context.Context, endpoint string, timeout time.Duration) (channel.Stream, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("transportdial: dialing unix socket %s: %w", endpoint, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return conn, nil
	}
	tuneUnixConn(uc)
	return uc, nil
}

func tuneUnixConn(uc *net.UnixConn) {
	raw, err := uc.SyscallConn()
	if err != nil {
		log.Debugf("transportdial: SyscallConn unavailable, skipping buffer tuning: %v", err)
		return
	}
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferBytes); err != nil {
			log.Debugf("transportdial: SO_RCVBUF: %v", err)
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferBytes); err != nil {
			log.Debugf("transportdial: SO_SNDBUF: %v", err)
		}
	})
	if ctrlErr != nil {
		log.Debugf("transportdial: tuning unix socket: %v", ctrlErr)
	}
}
