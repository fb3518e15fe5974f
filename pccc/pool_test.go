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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExhaustionAndRecycle(t *testing.T) {
	p := newPool(2)
	a := p.getFree()
	b := p.getFree()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Nil(t, p.getFree())

	a.isCmd = true
	a.tns = 100
	p.register(a)
	p.release(a)
	assert.Equal(t, slotUnused, a.state)
	assert.Nil(t, p.findCmd(100))
	assert.NotNil(t, p.getFree())
}

func TestPoolFindCmdByTNS(t *testing.T) {
	p := newPool(3)
	m := p.getFree()
	m.isCmd = true
	m.tns = 0xBEEF
	m.state = slotTX
	p.register(m)

	assert.Equal(t, m, p.findCmd(0xBEEF))
	assert.Nil(t, p.findCmd(0xDEAD))
}

func TestPoolCursor(t *testing.T) {
	p := newPool(3)
	m := p.slots[2]
	p.setCurrent(m)
	assert.Equal(t, m, p.current())
}
