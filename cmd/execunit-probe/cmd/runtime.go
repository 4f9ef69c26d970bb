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
	"strings"
	"time"
	"unicode"

	"github.com/coreos/go-systemd/daemon"
	"github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shell-dot/execunit-ipc/channel"
	"github.com/shell-dot/execunit-ipc/internal/transportdial"
	"github.com/shell-dot/execunit-ipc/metrics"
)

// dialer picks the Unix-socket or serial dialer per --serial, the two
// transportdial implementations the core transport is agnostic to.
func dialer() channel.Dialer {
	if rootSerialFlag {
		return transportdial.Serial
	}
	return transportdial.Unix
}

// runProbe runs op with a fresh metrics.Recorder, optionally serving it on
// --metrics-addr for the duration of op via an errgroup — the same
// "background server alongside the main operation" shape
// ptp/sptp/client.Run uses its errgroup for.
func runProbe(op func(rec *metrics.Recorder) error) error {
	rec := metrics.NewRecorder("execunit_probe")

	if rootMetricsAddr == "" {
		return op(rec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	exp := metrics.NewExporter(rootMetricsAddr, rec)
	g.Go(func() error { return exp.Run(gctx) })

	opErr := op(rec)
	cancel()
	waitErr := g.Wait()
	if opErr != nil {
		return opErr
	}
	return waitErr
}

// connectWithRetry calls connect up to --reconnect-attempts times, waiting
// between attempts per --reconnect-backoff, the retry shape ptp/sptp/client
// applies around its own transient connect failures.
func connectWithRetry(ctx context.Context, connect func(context.Context) ([]byte, error)) ([]byte, error) {
	attempts := rootReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff, err := newReconnectBackoff(rootReconnectFormula)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		handshake, err := connect(ctx)
		if err == nil {
			return handshake, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		wait, werr := backoff.wait(attempt)
		if werr != nil {
			return nil, werr
		}
		log.Warnf("execunit-probe: connect attempt %d/%d failed: %v, retrying in %s", attempt, attempts, err, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// notifySystemdReady sends READY=1 if --systemd was passed, the same call
// ptp/c4u.SdNotify makes.
func notifySystemdReady() {
	if !rootSystemdNotify {
		return
	}
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warnf("execunit-probe: systemd notify: %v", err)
	} else if !supported {
		log.Debugf("execunit-probe: systemd notification socket not present")
	}
}

// warnIfBelowMinVersion parses payload as a bare semver (trimming any
// leading non-digit prefix such as "v" or "fw-") and logs a warning if it is
// older than minVersion. Unparseable payloads are silently ignored: the
// handshake payload is opaque per spec and is not required to look like a
// version string, the way calnex/firmware only gates versions it can parse.
func warnIfBelowMinVersion(payload []byte, minVersion string) {
	text := strings.TrimLeftFunc(strings.TrimSpace(string(payload)), func(r rune) bool { return !unicode.IsDigit(r) })
	got, err := version.NewVersion(text)
	if err != nil {
		return
	}
	minVer, err := version.NewVersion(minVersion)
	if err != nil {
		return
	}
	if got.LessThan(minVer) {
		log.Warnf("execunit-probe: handshake version %s is below minimum %s", got, minVer)
	}
}
