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

package tlv

import "golang.org/x/exp/constraints"

// checkedAdd adds a and b, reporting ok=false instead of silently wrapping.
// full_size accounting (§4.1, §4.1 AddChild) must never overflow its u32.
func checkedAdd[T constraints.Unsigned](a, b T) (sum T, ok bool) {
	sum = a + b
	return sum, sum >= a
}
