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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := "" +
		"endpoint: /var/run/execunit/agent.sock\n" +
		"connecttimeout: 5s\n" +
		"responsewaittimeout: 30s\n" +
		"loglevel: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	s, err := ReadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "/var/run/execunit/agent.sock", s.Endpoint)
	require.Equal(t, 5*time.Second, s.ConnectTimeout)
	require.Equal(t, 30*time.Second, s.ResponseWaitTimeout)
	require.Equal(t, "debug", s.LogLevel)
	require.NoError(t, s.EvalAndValidate())
}

func TestReadSettingsRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: x\nconnecttimeout: 1s\ntypo: true\n"), 0o600))

	_, err := ReadSettings(path)
	require.Error(t, err)
}

func TestEvalAndValidate(t *testing.T) {
	cases := []struct {
		name string
		s    Settings
		ok   bool
	}{
		{"missing endpoint", Settings{ConnectTimeout: time.Second}, false},
		{"zero connect timeout", Settings{Endpoint: "x"}, false},
		{"negative wait timeout", Settings{Endpoint: "x", ConnectTimeout: time.Second, ResponseWaitTimeout: -1}, false},
		{"bad log level", Settings{Endpoint: "x", ConnectTimeout: time.Second, LogLevel: "verbose"}, false},
		{"valid minimal", Settings{Endpoint: "x", ConnectTimeout: time.Second}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.s.EvalAndValidate()
			if c.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
