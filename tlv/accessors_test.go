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
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessorsHappyPath(t *testing.T) {
	b, _ := NewLeaf(1, []byte{0xFE})
	require.Equal(t, uint8(0xFE), b.AsByte())
	require.Equal(t, int8(-2), b.AsSByte())

	tru, _ := NewLeaf(1, []byte{1})
	require.True(t, tru.AsBool())
	fls, _ := NewLeaf(1, []byte{0})
	require.False(t, fls.AsBool())

	u16 := make([]byte, 2)
	binary.LittleEndian.PutUint16(u16, 4660)
	n, _ := NewLeaf(1, u16)
	require.EqualValues(t, 4660, n.AsU16())
	require.EqualValues(t, 4660, n.AsI16())

	i32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(i32, uint32(int32(-42)))
	n, _ = NewLeaf(1, i32)
	require.EqualValues(t, -42, n.AsI32())
	v, ok := n.AsI32Ok()
	require.True(t, ok)
	require.EqualValues(t, -42, v)

	u64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(u64, 1<<40)
	n, _ = NewLeaf(1, u64)
	require.EqualValues(t, 1<<40, n.AsU64())
	require.EqualValues(t, 1<<40, n.AsI64())

	f32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(f32, math.Float32bits(3.5))
	n, _ = NewLeaf(1, f32)
	require.InDelta(t, 3.5, float64(n.AsF32()), 1e-9)

	f64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(f64, math.Float64bits(-1.25))
	n, _ = NewLeaf(1, f64)
	require.InDelta(t, -1.25, n.AsF64(), 1e-12)

	s, _ := NewLeaf(1, []byte("hello"))
	require.Equal(t, "hello", s.AsString())

	original := []byte{1, 2, 3}
	leaf, _ := NewLeaf(1, original)
	cp := leaf.AsBytes()
	cp[0] = 0xFF
	require.Equal(t, byte(1), original[0], "AsBytes must not alias node storage")
}

func TestAccessorsPanicOnParent(t *testing.T) {
	parent, _ := NewParent(1)
	require.Panics(t, func() { parent.AsByte() })
}

func TestAccessorsPanicOnWrongLength(t *testing.T) {
	n, _ := NewLeaf(1, []byte{1, 2, 3})
	require.Panics(t, func() { n.AsI32() })
}

func TestAsI32OkNonFatal(t *testing.T) {
	parent, _ := NewParent(1)
	_, ok := parent.AsI32Ok()
	require.False(t, ok)

	n, _ := NewLeaf(1, []byte{1, 2, 3})
	_, ok = n.AsI32Ok()
	require.False(t, ok)
}
