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

package pccc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeo-scada/df1/wire"
)

func TestDecodeIntegerArray(t *testing.T) {
	b := wire.NewBuf(16)
	b.Append([]byte{0x02, 0x00, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x80})
	got := make([]int16, 4)
	require.NoError(t, decodeArray(b, FileInteger, got))
	assert.Equal(t, []int16{2, 1, -1, -32768}, got)
}

func TestIntegerArrayRoundTrip(t *testing.T) {
	src := []int16{0, -1, 32767, -32768, 1234}
	b := wire.NewBuf(64)
	require.NoError(t, encodeArray(b, FileInteger, src))
	assert.Equal(t, len(src)*SizeInteger, b.Len())
	got := make([]int16, len(src))
	require.NoError(t, decodeArray(b, FileInteger, got))
	assert.Equal(t, src, got)
}

func TestFloatArrayRoundTrip(t *testing.T) {
	src := []float32{0, 1.5, -2.25, 3.1415926}
	b := wire.NewBuf(64)
	require.NoError(t, encodeArray(b, FileFloat, src))
	got := make([]float32, len(src))
	require.NoError(t, decodeArray(b, FileFloat, got))
	assert.Equal(t, src, got)
}

func TestTimerBitPacking(t *testing.T) {
	src := []Timer{{Preset: 100, Accumulator: 42, Base: TimeBase1Sec, EN: true, TT: true, DN: false}}
	b := wire.NewBuf(16)
	require.NoError(t, encodeArray(b, FileTimer, src))
	// EN|TT plus the one second time base bit, then preset, accumulator.
	assert.Equal(t, []byte{0x00, 0xC2, 0x64, 0x00, 0x2A, 0x00}, b.Bytes())

	got := make([]Timer, 1)
	require.NoError(t, decodeArray(b, FileTimer, got))
	assert.Equal(t, src, got)
}

func TestCounterBitPacking(t *testing.T) {
	src := []CounterElem{{Preset: -5, Accumulator: 7, CU: true, DN: true, UA: true}}
	b := wire.NewBuf(16)
	require.NoError(t, encodeArray(b, FileCounter, src))
	assert.Equal(t, []byte{0x00, 0xA4, 0xFB, 0xFF, 0x07, 0x00}, b.Bytes())

	got := make([]CounterElem, 1)
	require.NoError(t, decodeArray(b, FileCounter, got))
	assert.Equal(t, src, got)
}

func TestControlBitPacking(t *testing.T) {
	src := []Control{{Length: 10, Position: 3, EN: true, ER: true, FD: true}}
	b := wire.NewBuf(16)
	require.NoError(t, encodeArray(b, FileControl, src))
	// EN=0x8000, ER=0x0800, FD=0x0100; then length, position.
	assert.Equal(t, []byte{0x00, 0x89, 0x0A, 0x00, 0x03, 0x00}, b.Bytes())

	got := make([]Control, 1)
	require.NoError(t, decodeArray(b, FileControl, got))
	assert.Equal(t, src, got)
}

func TestStringPairSwap(t *testing.T) {
	var s PString
	s.SetText("AB")
	b := wire.NewBuf(128)
	require.NoError(t, encodeArray(b, FileString, []PString{s}))
	require.Equal(t, SizeString, b.Len())
	data := b.Bytes()
	// Length word, then each character pair swapped on the wire.
	assert.Equal(t, []byte{0x02, 0x00}, data[:2])
	assert.Equal(t, byte('B'), data[2])
	assert.Equal(t, byte('A'), data[3])
}

func TestStringOddLengthTrailingZero(t *testing.T) {
	var s PString
	s.SetText("ABC")
	b := wire.NewBuf(128)
	require.NoError(t, encodeArray(b, FileString, []PString{s}))
	data := b.Bytes()
	assert.Equal(t, byte('B'), data[2])
	assert.Equal(t, byte('A'), data[3])
	// The word holding the odd last character leads with a zero byte.
	assert.Equal(t, byte(0x00), data[4])
	assert.Equal(t, byte('C'), data[5])
}

func TestStringRoundTrip(t *testing.T) {
	for _, text := range []string{"", "A", "AB", "ABC", "hello, world", "0123456789012345678901234567890123456789012345678901234567890123456789012345678901"} {
		var s PString
		s.SetText(text)
		b := wire.NewBuf(128)
		require.NoError(t, encodeArray(b, FileString, []PString{s}))
		got := make([]PString, 1)
		require.NoError(t, decodeArray(b, FileString, got))
		assert.Equal(t, s.String(), got[0].String(), "text %q", text)
		assert.Equal(t, byte(0), got[0].Text[got[0].Len])
	}
}

func TestStringTooLongRejected(t *testing.T) {
	s := PString{Len: 83}
	b := wire.NewBuf(128)
	err := encodeArray(b, FileString, []PString{s})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestUnsupportedTypeIsInvalidParameter(t *testing.T) {
	b := wire.NewBuf(16)
	err := encodeArray(b, FileASCII, []int16{1})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	err = decodeArray(b, FileBCD, []int16{0})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	// Slice type not matching the declared file type is also a caller error.
	err = encodeArray(b, FileInteger, []float32{1})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestTypeDataParameterSmallValues(t *testing.T) {
	b := wire.NewBuf(16)
	require.NoError(t, encodeTypeData(b, 4, 2))
	assert.Equal(t, []byte{0x42}, b.Bytes())

	typ, size, err := decodeTypeData(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), typ)
	assert.Equal(t, uint64(2), size)
}

func TestTypeDataParameterExtended(t *testing.T) {
	b := wire.NewBuf(32)
	require.NoError(t, encodeTypeData(b, 0x1234, 9))
	typ, size, err := decodeTypeData(b)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), typ)
	assert.Equal(t, uint64(9), size)
}

func TestTypeDataParameterTooLarge(t *testing.T) {
	b := wire.NewBuf(32)
	err := encodeTypeData(b, 1<<56, 0)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	err = encodeTypeData(b, 0, 1<<56)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}
