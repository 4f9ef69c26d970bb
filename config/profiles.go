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
	"fmt"

	"github.com/go-ini/ini"
)

// Profile is one named execution unit an operator can dial by name instead
// of a raw endpoint string.
type Profile struct {
	Endpoint string
	Baud     int // only meaningful for a serial endpoint; 0 means "use the dialer's default"
}

// Profiles is a name -> Profile catalog, loaded from an INI file the way
// calnex/api loads its own section-keyed settings file. Each profile is one
// INI section; the section name is the profile name.
type Profiles map[string]Profile

// ReadProfiles reads path, one INI section per named endpoint:
//
//	[probe-rack-3]
//	endpoint = /var/run/execunit/probe-rack-3.sock
//
//	[bench-serial]
//	endpoint = /dev/ttyUSB0
//	baud = 115200
func ReadProfiles(path string) (Profiles, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading profiles from %s: %w", path, err)
	}

	profiles := make(Profiles)
	for _, s := range f.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}
		endpoint := s.Key("endpoint").String()
		if endpoint == "" {
			return nil, fmt.Errorf("config: profile %q missing 'endpoint'", s.Name())
		}
		var baud int
		if s.HasKey("baud") {
			baud, err = s.Key("baud").Int()
			if err != nil {
				return nil, fmt.Errorf("config: profile %q has non-integer 'baud': %w", s.Name(), err)
			}
		}
		profiles[s.Name()] = Profile{Endpoint: endpoint, Baud: baud}
	}
	return profiles, nil
}

// Lookup returns the named profile, or false if it is not in the catalog.
func (p Profiles) Lookup(name string) (Profile, bool) {
	prof, ok := p[name]
	return prof, ok
}
