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

// Recorder observes transport-level events for diagnostics and metrics
// (package metrics implements one backed by prometheus). A nil Recorder is
// valid everywhere it's accepted — every call site nil-checks first — so
// this package has no hard dependency on any metrics library.
type Recorder interface {
	FrameSent(bytes int)
	FrameReceived(bytes int)
	FrameDropped(reason string)
	PumpExited(err error)
}

func (t *Transport) recordSent(n int) {
	if t.rec != nil {
		t.rec.FrameSent(n)
	}
}

func (t *Transport) recordReceived(n int) {
	if t.rec != nil {
		t.rec.FrameReceived(n)
	}
}

func (t *Transport) recordDropped(reason string) {
	if t.rec != nil {
		t.rec.FrameDropped(reason)
	}
}

func (t *Transport) recordPumpExit(err error) {
	if t.rec != nil {
		t.rec.PumpExited(err)
	}
}
