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

func TestAddrLevelRoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 1, 127, 254, 255, 256, 999, 1000, 32767, 65535} {
		b := wire.NewBuf(8)
		require.True(t, encodeAddrLevel(b, v))
		if v <= 254 {
			assert.Equal(t, 1, b.Len(), "value %d should use the one byte form", v)
		} else {
			assert.Equal(t, 3, b.Len(), "value %d should use the three byte form", v)
			assert.Equal(t, byte(0xFF), b.At(0))
		}
		got, ok := decodeAddrLevel(b)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}
}

func TestAddrLevelDecodeShortBuffer(t *testing.T) {
	b := wire.NewBuf(2)
	b.AppendByte(0xFF)
	b.AppendByte(0x01)
	_, ok := decodeAddrLevel(b)
	assert.False(t, ok)
}

func TestBinaryAddressEncoding(t *testing.T) {
	b := wire.NewBuf(16)
	addr := BinaryAddress(0, 7, 300)
	require.NoError(t, addr.encode(b))
	// Mask 0x07 for three levels, then 0, 7, and 0xFF 2C 01 for 300.
	assert.Equal(t, []byte{0x07, 0x00, 0x07, 0xFF, 0x2C, 0x01}, b.Bytes())
}

func TestBinaryAddressValidation(t *testing.T) {
	b := wire.NewBuf(32)

	addr := BinaryAddress()
	err := addr.encode(b)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	addr = BinaryAddress(1, 2, 3, 4, 5, 6, 7, 8)
	err = addr.encode(b)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	addr = BinaryAddress(1000)
	err = addr.encode(b)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestASCIIAddressEncoding(t *testing.T) {
	b := wire.NewBuf(32)
	addr := ASCIIAddress("N7:0")
	require.NoError(t, addr.encode(b))
	assert.Equal(t, []byte{0x00, '$', 'N', '7', ':', '0', 0x00}, b.Bytes())
}

func TestASCIIAddressValidation(t *testing.T) {
	b := wire.NewBuf(32)

	addr := ASCIIAddress("")
	assert.True(t, errors.Is(addr.encode(b), ErrInvalidParameter))

	addr = ASCIIAddress("ABCDEFGHIJKLMNO") // 15 characters, one too many
	assert.True(t, errors.Is(addr.encode(b), ErrInvalidParameter))

	addr = ASCIIAddress("ABCDEFGHIJKLMN") // 14 is the maximum
	b.Reset()
	assert.NoError(t, addr.encode(b))
}
