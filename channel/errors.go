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

package channel

import "errors"

var (
	// ErrNotActive is returned by outbound calls once the transport has
	// transitioned to inactive, without attempting any I/O.
	ErrNotActive = errors.New("channel: transport is not active")
	// ErrHandshake is returned by Connect when the first frame did not parse
	// as a well-formed leaf TLV. A failure to read that frame returns the
	// read error itself.
	ErrHandshake = errors.New("channel: handshake frame invalid")
	// ErrFrameTooLarge is returned when a frame's declared length exceeds
	// the configured ReadLimit. The spec places no ceiling on frame size,
	// but an unbounded length prefix from an untrusted peer must not drive
	// an unbounded allocation.
	ErrFrameTooLarge = errors.New("channel: frame exceeds read limit")
)
