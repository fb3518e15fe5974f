// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire provides the bounded byte buffer and checksum primitives
// shared by the DF1 link layer and the PCCC client library.
package wire

import (
	"encoding/binary"
	"io"
)

// Buf is a bounded byte container with an append end and a consume cursor.
// Appends fail once the fixed capacity is reached; reads advance the cursor
// until it meets the append end. A Buf is not safe for concurrent use.
type Buf struct {
	data  []byte
	index int
}

// NewBuf allocates an empty buffer with the given fixed capacity.
func NewBuf(capacity int) *Buf {
	return &Buf{data: make([]byte, 0, capacity)}
}

// Len returns the number of bytes appended to the buffer.
func (b *Buf) Len() int { return len(b.data) }

// Cap returns the buffer's fixed capacity.
func (b *Buf) Cap() int { return cap(b.data) }

// Reset empties the buffer and rewinds the consume cursor.
func (b *Buf) Reset() {
	b.data = b.data[:0]
	b.index = 0
}

// Bytes returns the appended contents. The slice aliases the buffer's
// storage and is valid until the next append or Reset.
func (b *Buf) Bytes() []byte { return b.data }

// At returns the byte at absolute position i, independent of the cursor.
func (b *Buf) At(i int) byte { return b.data[i] }

// SetIndex positions the consume cursor at an absolute offset.
func (b *Buf) SetIndex(i int) { b.index = i }

// AppendByte appends one byte. It reports false if the buffer is full.
func (b *Buf) AppendByte(v byte) bool {
	if len(b.data) == cap(b.data) {
		return false
	}
	b.data = append(b.data, v)
	return true
}

// AppendWord appends a 16-bit value in little-endian byte order.
func (b *Buf) AppendWord(v uint16) bool {
	if len(b.data)+2 > cap(b.data) {
		return false
	}
	b.data = binary.LittleEndian.AppendUint16(b.data, v)
	return true
}

// AppendLong appends a 32-bit value in little-endian byte order.
func (b *Buf) AppendLong(v uint32) bool {
	if len(b.data)+4 > cap(b.data) {
		return false
	}
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
	return true
}

// Append appends the contents of p. Nothing is copied on overflow.
func (b *Buf) Append(p []byte) bool {
	if len(b.data)+len(p) > cap(b.data) {
		return false
	}
	b.data = append(b.data, p...)
	return true
}

// AppendBuf appends the full contents of src (cursor position ignored).
func (b *Buf) AppendBuf(src *Buf) bool {
	return b.Append(src.data)
}

// GetByte consumes and returns the next byte at the cursor.
func (b *Buf) GetByte() (byte, bool) {
	if b.index == len(b.data) {
		return 0, false
	}
	v := b.data[b.index]
	b.index++
	return v, true
}

// GetWord consumes a little-endian 16-bit value at the cursor.
func (b *Buf) GetWord() (uint16, bool) {
	if b.index+2 > len(b.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(b.data[b.index:])
	b.index += 2
	return v, true
}

// GetLong consumes a little-endian 32-bit value at the cursor.
func (b *Buf) GetLong() (uint32, bool) {
	if b.index+4 > len(b.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(b.data[b.index:])
	b.index += 4
	return v, true
}

// Remaining returns the unconsumed bytes from the cursor to the append end.
func (b *Buf) Remaining() []byte { return b.data[b.index:] }

// WriteReady reports whether the buffer holds bytes not yet drained.
func (b *Buf) WriteReady() bool {
	return len(b.data) > 0 && b.index != len(b.data)
}

// Fill overwrites the buffer with one read from r.
func (b *Buf) Fill(r io.Reader) (int, error) {
	b.data = b.data[:cap(b.data)]
	n, err := r.Read(b.data)
	if n < 0 {
		n = 0
	}
	b.data = b.data[:n]
	b.index = 0
	return n, err
}

// Drain writes the unconsumed contents to w, advancing the cursor by the
// number of bytes written. The buffer is emptied once fully drained.
func (b *Buf) Drain(w io.Writer) (int, error) {
	n, err := w.Write(b.data[b.index:])
	b.index += n
	if b.index == len(b.data) {
		b.Reset()
	}
	return n, err
}
