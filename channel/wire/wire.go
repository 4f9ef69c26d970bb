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

// Package wire collects the fixed, one-byte type codes of §6. The type
// space has no version byte; per §9's "no schema evolution" design note,
// these are exhaustive for the current protocol.
package wire

// Listener role top-level types.
const (
	TypeCallback       uint8 = 0x20 // inbound, unsolicited
	TypeGetMetadata    uint8 = 0x21 // outbound request / inbound response
	TypeGetDataToSend  uint8 = 0x22 // outbound request / inbound response
	TypeNewDataFromC2  uint8 = 0x23 // outbound, fire-and-forget
)

// Command role top-level types.
const (
	TypeResult            uint8 = 0x30 // outbound
	TypeConf              uint8 = 0x31 // outbound, parent
	TypeError             uint8 = 0x32 // outbound
	TypeReturnSuccess     uint8 = 0x33 // outbound
	TypeReturnFailed      uint8 = 0x34 // outbound
	TypeNewData           uint8 = 0x39 // inbound
	TypeStop              uint8 = 0x3F // inbound
)

// Child types used inside Listener request/response TLVs.
const (
	ChildCommandSelector uint8 = 0x01 // request: 1-byte command selector
	ChildSequence        uint8 = 0x02 // request/response: 4-byte little-endian sequence number
	ChildCallbackData    uint8 = 0x04 // callback/response: opaque payload
)

// Child types used inside the Command role's TypeConf parent.
const (
	ChildConfOngoing  uint8 = 0x01 // 1-byte boolean
	ChildConfStopWait uint8 = 0x03 // 4-byte little-endian milliseconds
)

// CommandSelectorGetMetadata is the single byte value §4.3 specifies for
// the command-selector child of a get_metadata / get_data_to_send request.
const CommandSelectorGetMetadata uint8 = 0x01
