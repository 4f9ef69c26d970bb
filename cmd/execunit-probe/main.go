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

// Command execunit-probe is a one-shot diagnostic CLI for the agent side of
// the channel: it dials an execution unit, prints the handshake payload, and
// issues a single Listener or Command operation. It is not a consumer of
// decoded payloads — it prints bytes, it does not interpret them.
package main

import "github.com/shell-dot/execunit-ipc/cmd/execunit-probe/cmd"

func main() {
	cmd.Execute()
}
