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

// Package channel implements the length-prefixed framed transport of §4.2:
// it wraps a duplex byte stream, owns the receive pump goroutine, serializes
// sends under a mutex, and implements graceful and forced shutdown. The
// correlated request/response protocol built on top lives in the sibling
// channel/listener and channel/command packages.
package channel

import (
	"context"
	"io"
	"time"
)

// Stream is the duplex byte stream contract required of the transport this
// package is layered on: reliable, in-order, connection-oriented, blocking
// reads and writes, with a detectable EOF on Read. Concrete dialers living
// in internal/transportdial produce values satisfying this interface; this
// package does not know or care whether the peer is a Unix socket, a
// Windows named pipe, or a serial port.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// streamCloseWriter is an optional capability: streams that support a
// half-close (e.g. *net.UnixConn, *net.TCPConn) can drain the write side
// before the hard Close in §4.2 step 3 ("best-effort wait for pipe drain").
type streamCloseWriter interface {
	CloseWrite() error
}

// Dialer opens the duplex stream to endpoint, honoring the connect-phase
// timeout described in §4.2 step 1. endpoint is opaque to this package.
type Dialer func(ctx context.Context, endpoint string, timeout time.Duration) (Stream, error)
