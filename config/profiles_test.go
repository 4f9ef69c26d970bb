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

	"github.com/stretchr/testify/require"
)

func TestReadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.ini")
	contents := "" +
		"[probe-rack-3]\n" +
		"endpoint = /var/run/execunit/probe-rack-3.sock\n" +
		"\n" +
		"[bench-serial]\n" +
		"endpoint = /dev/ttyUSB0\n" +
		"baud = 9600\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	profiles, err := ReadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	p, ok := profiles.Lookup("probe-rack-3")
	require.True(t, ok)
	require.Equal(t, "/var/run/execunit/probe-rack-3.sock", p.Endpoint)
	require.Zero(t, p.Baud)

	p, ok = profiles.Lookup("bench-serial")
	require.True(t, ok)
	require.Equal(t, "/dev/ttyUSB0", p.Endpoint)
	require.Equal(t, 9600, p.Baud)

	_, ok = profiles.Lookup("missing")
	require.False(t, ok)
}

func TestReadProfilesRejectsMissingEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.ini")
	require.NoError(t, os.WriteFile(path, []byte("[no-endpoint]\nbaud = 9600\n"), 0o600))

	_, err := ReadProfiles(path)
	require.Error(t, err)
}
