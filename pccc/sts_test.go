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
)

// reply builds a minimal reply message: dst, src, cmd|0x40, sts, tns,
// then extra bytes.
func reply(src, cmd, sts byte, extra ...byte) []byte {
	msg := []byte{0x02, src, cmd | 0x40, sts, 0x34, 0x12}
	return append(msg, extra...)
}

func TestSTSSuccess(t *testing.T) {
	assert.NoError(t, stsCheck(reply(1, 0x0F, 0x00)))
}

func TestSTSLocalError(t *testing.T) {
	err := stsCheck(reply(1, 0x06, 0x05))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReply))
	assert.Contains(t, err.Error(), "local node 1")
	assert.Contains(t, err.Error(), "timed out")
}

func TestSTSRemoteError(t *testing.T) {
	err := stsCheck(reply(3, 0x0F, 0x10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote node 3")
	assert.Contains(t, err.Error(), "illegal command or format")
}

func TestSTSUndefined(t *testing.T) {
	err := stsCheck(reply(1, 0x06, 0x0B))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined STS 0x0B")
}

func TestExtSTSTypeMismatch(t *testing.T) {
	err := stsCheck(reply(1, 0x0F, 0xF0, 0x17))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestExtSTSFileOpenOwnerNode(t *testing.T) {
	// Byte 5 (the TNS high byte position) carries the owning node for
	// EXT STS 0x1A.
	msg := []byte{0x02, 0x01, 0x4F, 0xF0, 0x34, 0x09, 0x1A}
	err := stsCheck(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is open")
	assert.Contains(t, err.Error(), "node 9")
}

func TestExtSTSUndefinedNeverFails(t *testing.T) {
	err := stsCheck(reply(1, 0x0F, 0xF0, 0x99))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined EXT STS 0x99 for CMD 0x0F")

	err = stsCheck(reply(1, 0x0B, 0xF0, 0x42))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined EXT STS 0x42 for CMD 0x0B")
}

func TestExtSTSUnexpectedCommand(t *testing.T) {
	err := stsCheck(reply(1, 0x06, 0xF0, 0x01))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected EXT STS")
}
