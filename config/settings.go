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

// Package config loads the runtime settings of the agent side of the
// channel: where to dial, how long to wait, and how verbosely to log.
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Settings is the YAML-backed runtime configuration for a process driving
// channel.Transport, channel/listener.Listener or channel/command.Command.
type Settings struct {
	Endpoint            string        // dial address passed to the configured Dialer
	ConnectTimeout      time.Duration // connect-phase timeout Transport.Connect passes to the Dialer; the handshake read is not bounded by it
	ResponseWaitTimeout time.Duration // default timeout for Listener.WaitForResponse; 0 means wait indefinitely
	LogLevel            string        // logrus level name: "debug", "info", "warn", "error"
}

// EvalAndValidate checks that Settings is usable, the way
// fbclock/daemon.Config.EvalAndValidate gates a daemon's config before use.
func (s *Settings) EvalAndValidate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("bad config: 'endpoint' must not be empty")
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("bad config: 'connecttimeout' must be positive")
	}
	if s.ResponseWaitTimeout < 0 {
		return fmt.Errorf("bad config: 'responsewaittimeout' must not be negative")
	}
	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("bad config: unrecognized 'loglevel' %q", s.LogLevel)
	}
	return nil
}

// ReadSettings reads path and unmarshals it from YAML into Settings.
func ReadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	s := Settings{}
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &s, nil
}
