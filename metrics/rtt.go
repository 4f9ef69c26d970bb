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

package metrics

import (
	"sync"
	"time"

	"github.com/eclesh/welford"
)

// RTTTracker keeps a running mean/variance of wait_for_response round-trip
// times using Welford's online algorithm, the same approach
// fbclock/daemon/math.go uses for offset/drift statistics — one pass, no
// stored sample history.
type RTTTracker struct {
	mu    sync.Mutex
	w     *welford.Stats
	count int64
}

// NewRTTTracker constructs an empty tracker.
func NewRTTTracker() *RTTTracker {
	return &RTTTracker{w: welford.New()}
}

// Observe records one round-trip duration.
func (t *RTTTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Add(float64(d))
	t.count++
}

// Mean returns the running mean round-trip time, zero if nothing has been
// observed yet.
func (t *RTTTracker) Mean() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return time.Duration(t.w.Mean())
}

// Stddev returns the running standard deviation of round-trip time, zero if
// fewer than two samples have been observed.
func (t *RTTTracker) Stddev() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count < 2 {
		return 0
	}
	return time.Duration(t.w.Stddev())
}
