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

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBCCSum(t *testing.T) {
	// Echo scenario payload: sum is 0x4F (mod 256), BCC is its two's complement.
	payload := []byte{0x01, 0x02, 0x06, 0x00, 0x34, 0x12, 0x00, 0xAA, 0x55, 0x01}
	assert.Equal(t, byte(0xB1), BCCSum(payload))
}

func TestBCCSumWraps(t *testing.T) {
	assert.Equal(t, byte(0x00), BCCSum([]byte{0x80, 0x80}))
	assert.Equal(t, byte(0x80), BCCSum([]byte{0x80}))
	assert.Equal(t, byte(0x00), BCCSum(nil))
}

func TestCRC16Incremental(t *testing.T) {
	data := []byte{0x07, 0x11, 0x41, 0x00, 0x53, 0xB9, 0x00, 0x00, 0x00, 0x00, 0x03}
	var c CRC16
	for _, b := range data {
		c.Add(b)
	}
	assert.Equal(t, CRC16Sum(data), c.Sum())
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/ARC shares the 0xA001 reflected polynomial and zero init.
	assert.Equal(t, uint16(0xBB3D), CRC16Sum([]byte("123456789")))
}

func TestBufAppendConsume(t *testing.T) {
	b := NewBuf(8)
	require.True(t, b.AppendByte(0x01))
	require.True(t, b.AppendWord(0x1234))
	require.True(t, b.AppendLong(0xAABBCCDD))
	assert.Equal(t, 7, b.Len())
	assert.Equal(t, []byte{0x01, 0x34, 0x12, 0xDD, 0xCC, 0xBB, 0xAA}, b.Bytes())

	v, ok := b.GetByte()
	require.True(t, ok)
	assert.Equal(t, byte(0x01), v)
	w, ok := b.GetWord()
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), w)
	l, ok := b.GetLong()
	require.True(t, ok)
	assert.Equal(t, uint32(0xAABBCCDD), l)
	_, ok = b.GetByte()
	assert.False(t, ok)
}

func TestBufOverflow(t *testing.T) {
	b := NewBuf(2)
	require.True(t, b.AppendByte(1))
	assert.False(t, b.AppendWord(0xFFFF))
	require.True(t, b.AppendByte(2))
	assert.False(t, b.AppendByte(3))
	assert.Equal(t, 2, b.Len())
}

func TestBufWriteReady(t *testing.T) {
	b := NewBuf(4)
	assert.False(t, b.WriteReady())
	b.AppendByte(0x42)
	assert.True(t, b.WriteReady())
	_, _ = b.GetByte()
	assert.False(t, b.WriteReady())
}
