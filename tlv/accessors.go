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

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Typed accessors are only valid on leaves; calling one on a parent, or with
// a payload length that does not match the accessor's width, is a
// programming error and panics — except the non-fatal variants used on the
// sequence-correlation hot path (AsI32Ok), which report failure instead.

func (n *Node) mustLeaf(width int, name string) []byte {
	if n.isParent {
		panic(fmt.Sprintf("tlv: %s called on parent node (type %d)", name, n.typ))
	}
	if width >= 0 && len(n.data) != width {
		panic(fmt.Sprintf("tlv: %s called on node of length %d, want %d", name, len(n.data), width))
	}
	return n.data
}

// AsByte interprets the leaf payload as an unsigned 8-bit integer.
func (n *Node) AsByte() uint8 { return n.mustLeaf(1, "AsByte")[0] }

// AsSByte interprets the leaf payload as a signed 8-bit integer.
func (n *Node) AsSByte() int8 { return int8(n.mustLeaf(1, "AsSByte")[0]) }

// AsBool interprets the leaf payload as a boolean: false iff the byte is 0.
func (n *Node) AsBool() bool { return n.mustLeaf(1, "AsBool")[0] != 0 }

// AsI16 interprets the leaf payload as a little-endian signed 16-bit integer.
func (n *Node) AsI16() int16 {
	return int16(binary.LittleEndian.Uint16(n.mustLeaf(2, "AsI16")))
}

// AsU16 interprets the leaf payload as a little-endian unsigned 16-bit integer.
func (n *Node) AsU16() uint16 {
	return binary.LittleEndian.Uint16(n.mustLeaf(2, "AsU16"))
}

// AsI32 interprets the leaf payload as a little-endian signed 32-bit integer.
// Panics on misuse; callers on the pump path must use AsI32Ok instead.
func (n *Node) AsI32() int32 {
	return int32(binary.LittleEndian.Uint32(n.mustLeaf(4, "AsI32")))
}

// AsU32 interprets the leaf payload as a little-endian unsigned 32-bit integer.
func (n *Node) AsU32() uint32 {
	return binary.LittleEndian.Uint32(n.mustLeaf(4, "AsU32"))
}

// AsI64 interprets the leaf payload as a little-endian signed 64-bit integer.
func (n *Node) AsI64() int64 {
	return int64(binary.LittleEndian.Uint64(n.mustLeaf(8, "AsI64")))
}

// AsU64 interprets the leaf payload as a little-endian unsigned 64-bit integer.
func (n *Node) AsU64() uint64 {
	return binary.LittleEndian.Uint64(n.mustLeaf(8, "AsU64"))
}

// AsF32 interprets the leaf payload as an IEEE-754 single, little-endian.
func (n *Node) AsF32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(n.mustLeaf(4, "AsF32")))
}

// AsF64 interprets the leaf payload as an IEEE-754 double, little-endian.
func (n *Node) AsF64() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(n.mustLeaf(8, "AsF64")))
}

// AsString decodes the leaf payload as UTF-8. The producer is responsible
// for validity; invalid sequences are not rejected.
func (n *Node) AsString() string {
	return string(n.mustLeaf(-1, "AsString"))
}

// AsBytes returns a defensive copy of the leaf payload. Callers must not
// assume the result aliases the node's internal storage.
func (n *Node) AsBytes() []byte {
	src := n.mustLeaf(-1, "AsBytes")
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// AsI32Ok is the non-fatal counterpart of AsI32: it returns (0, false)
// instead of panicking when n is a parent or its payload is not exactly 4
// bytes. The sequence-correlation path in channel/listener uses this, since
// a malformed child must not crash the single pump goroutine.
func (n *Node) AsI32Ok() (int32, bool) {
	if n.isParent || len(n.data) != 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(n.data)), true
}
