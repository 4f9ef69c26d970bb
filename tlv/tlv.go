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

// Package tlv implements the recursive, typed, length-delimited binary node
// used as the payload of every frame on the agent/execution-unit channel.
//
// A Node is either a leaf (opaque bytes) or a parent (children grouped by
// child type, insertion-ordered within a group). Wire format, little-endian
// throughout:
//
//	byte 0        : (is_parent << 7) | (type & 0x7F)
//	bytes 1..4    : value_length : u32
//	bytes 5..5+L  : value bytes — leaf: raw payload, parent: concatenation of
//	                encoded child TLVs in depth-first preorder
//
// There is no version byte and no checksum; see the package doc of channel
// for the frame that carries a Node on the wire.
package tlv

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the number of bytes occupied by the type/flag byte plus the
// u32 length field, for both leaves and parents.
const headerSize = 5

// maxType is the largest type code representable in 7 bits.
const maxType = 0x7F

// Node is a single TLV value: either a leaf carrying opaque bytes, or a
// parent carrying children grouped by child type. The zero Node is not
// valid; use NewLeaf or NewParent.
type Node struct {
	typ      uint8
	isParent bool
	data     []byte
	order    []uint8            // child types in first-seen order, for stable traversal
	children map[uint8][]*Node   // grouped by child type, insertion-ordered within a group
	fullSize uint32
}

// NewLeaf builds a leaf node of the given type carrying data. data must not
// be nil; an empty slice is fine. Fails if the encoded size would overflow
// a u32.
func NewLeaf(typ uint8, data []byte) (*Node, error) {
	if data == nil {
		return nil, fmt.Errorf("tlv: leaf data must not be nil")
	}
	if err := checkType(typ); err != nil {
		return nil, err
	}
	size, err := checkedAddU32(headerSize, uint32(len(data)))
	if err != nil {
		return nil, fmt.Errorf("tlv: leaf too large: %w", err)
	}
	return &Node{
		typ:      typ,
		data:     data,
		fullSize: size,
	}, nil
}

// NewParent builds a parent node of the given type with no children.
func NewParent(typ uint8) (*Node, error) {
	if err := checkType(typ); err != nil {
		return nil, err
	}
	return &Node{
		typ:      typ,
		isParent: true,
		children: make(map[uint8][]*Node),
		fullSize: headerSize,
	}, nil
}

func checkType(typ uint8) error {
	if typ > maxType {
		return fmt.Errorf("tlv: type %d does not fit in 7 bits", typ)
	}
	return nil
}

// Type returns the node's 7-bit type code.
func (n *Node) Type() uint8 { return n.typ }

// IsParent reports whether the node is a parent (as opposed to a leaf).
func (n *Node) IsParent() bool { return n.isParent }

// FullSize returns the exact number of bytes this node occupies on the wire.
func (n *Node) FullSize() uint32 { return n.fullSize }

// AddChild appends child to n's child-type group. It fails if n is a leaf
// or if accounting for child's size would overflow a u32.
func (n *Node) AddChild(child *Node) error {
	if !n.isParent {
		return fmt.Errorf("tlv: AddChild called on a leaf node (type %d)", n.typ)
	}
	size, err := checkedAddU32(n.fullSize, child.fullSize)
	if err != nil {
		return fmt.Errorf("tlv: adding child overflows full_size: %w", err)
	}
	n.order = append(n.order, child.typ)
	n.children[child.typ] = append(n.children[child.typ], child)
	n.fullSize = size
	return nil
}

// GetChildCount returns the number of children of the given type, or 0 if
// n is a leaf or has none of that type.
func (n *Node) GetChildCount(typ uint8) int {
	if !n.isParent {
		return 0
	}
	return len(n.children[typ])
}

// GetChild returns the index-th child of the given type in insertion order,
// or nil if there is no such child.
func (n *Node) GetChild(typ uint8, index int) *Node {
	if !n.isParent {
		return nil
	}
	group := n.children[typ]
	if index < 0 || index >= len(group) {
		return nil
	}
	return group[index]
}

// checkedAddU32 adds a and b, failing rather than silently wrapping past
// the u32 range. Both §4.1 construction and §4.1 AddChild rely on this.
func checkedAddU32(a, b uint32) (uint32, error) {
	sum, ok := checkedAdd(a, b)
	if !ok {
		return 0, fmt.Errorf("u32 addition overflow: %d + %d", a, b)
	}
	return sum, nil
}

// FullBuffer serializes n to exactly FullSize() bytes.
func (n *Node) FullBuffer() ([]byte, error) {
	buf := make([]byte, n.fullSize)
	if _, err := n.encodeInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// encodeInto writes n's wire representation into buf (which must be at
// least FullSize() bytes) and returns the number of bytes written.
func (n *Node) encodeInto(buf []byte) (int, error) {
	if uint32(len(buf)) < n.fullSize {
		return 0, fmt.Errorf("tlv: buffer too small: need %d, have %d", n.fullSize, len(buf))
	}
	header := n.typ & maxType
	if n.isParent {
		header |= 0x80
	}
	buf[0] = header
	valueLen := n.fullSize - headerSize
	binary.LittleEndian.PutUint32(buf[1:5], valueLen)

	if !n.isParent {
		copy(buf[headerSize:], n.data)
		return int(n.fullSize), nil
	}

	off := headerSize
	// Depth-first preorder: walk each type group in first-seen order, then
	// each child within the group in insertion order.
	seen := make(map[uint8]bool, len(n.order))
	for _, typ := range n.order {
		if seen[typ] {
			continue
		}
		seen[typ] = true
		for _, child := range n.children[typ] {
			written, err := child.encodeInto(buf[off:])
			if err != nil {
				return 0, err
			}
			off += written
		}
	}
	return off, nil
}

// Load parses a Node from buf starting at offset, returning the parsed node
// and true on success. It never trusts the encoded length field without a
// bounds check, and never allocates before that check passes at the current
// recursion level. On failure the returned node is nil.
func Load(buf []byte, offset int) (*Node, bool) {
	n, _, ok := load(buf, offset)
	return n, ok
}

// load returns the parsed node, the offset immediately past it, and success.
func load(buf []byte, offset int) (*Node, int, bool) {
	if offset < 0 || len(buf)-offset < headerSize {
		return nil, offset, false
	}
	header := buf[offset]
	typ := header & maxType
	isParent := header&0x80 != 0
	length := binary.LittleEndian.Uint32(buf[offset+1 : offset+5])

	remaining := len(buf) - (offset + headerSize)
	if remaining < 0 || uint64(length) > uint64(remaining) {
		return nil, offset, false
	}

	valueStart := offset + headerSize
	valueEnd := valueStart + int(length)

	if !isParent {
		data := make([]byte, length)
		copy(data, buf[valueStart:valueEnd])
		return &Node{
			typ:      typ,
			data:     data,
			fullSize: length + headerSize,
		}, valueEnd, true
	}

	parent := &Node{
		typ:      typ,
		isParent: true,
		children: make(map[uint8][]*Node),
		fullSize: length + headerSize,
	}
	pos := valueStart
	left := int(length)
	for left > 0 {
		child, next, ok := load(buf, pos)
		if !ok {
			return nil, offset, false
		}
		consumed := next - pos
		if consumed <= 0 || consumed > left {
			return nil, offset, false
		}
		parent.order = append(parent.order, child.typ)
		parent.children[child.typ] = append(parent.children[child.typ], child)
		pos = next
		left -= consumed
	}
	return parent, pos, true
}
