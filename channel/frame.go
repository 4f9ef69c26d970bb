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

package channel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// defaultReadLimit bounds how much a single frame's declared length may
// claim before we refuse to allocate for it. 16 MiB comfortably covers any
// metadata/result payload this protocol carries.
const defaultReadLimit uint32 = 16 * 1024 * 1024

// writeFrame writes length-prefixed body to w: a 4-byte little-endian
// length followed by body, per §6's frame format.
func writeFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame from r: a 4-byte little-endian
// length followed by that many bytes. It returns io.EOF unmodified when the
// peer closes cleanly before any bytes of a new frame arrive.
func readFrame(r io.Reader, limit uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if limit > 0 && length > limit {
		return nil, ErrFrameTooLarge
	}
	body := make([]byte, length)
	if length == 0 {
		return body, nil
	}
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
