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
	"encoding/binary"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/edgeo-scada/df1/wire"
)

const slotBufSize = 300

// Slot lifecycle bits. A command is complete once it has been written,
// acknowledged by the link layer, and answered by the remote node.
const (
	slotUnused    = 0
	slotPend      = 1 << 0 // pending transmission to the link layer
	slotTX        = 1 << 1 // written, pending link layer acknowledgement
	slotACKRcvd   = 1 << 2 // acknowledged by the link layer
	slotReplyRcvd = 1 << 3 // reply received from the remote node
	slotCmdDone   = slotTX | slotACKRcvd | slotReplyRcvd
)

// NotifyFunc is called once when a non-blocking command completes. A nil
// err means the command succeeded and any read data has been decoded into
// the caller's slice.
type NotifyFunc func(s *Session, err error, udata any)

// replyFunc decodes a reply's data portion into the command's user data.
// The reply buffer cursor is positioned at the first data byte.
type replyFunc func(reply *wire.Buf, cmd *slot) error

// slot holds one outstanding command or reply message.
type slot struct {
	state int
	buf   *wire.Buf // message bytes sent over the link
	isCmd bool

	tns      uint16
	fileType FileType
	bytes    int   // wire bytes read or written
	value    Value // destination/source data slice
	udata    any   // opaque user value handed back to notify
	notify   NotifyFunc
	reply    replyFunc
	expires  time.Time
	result   error
}

// flush clears a slot and marks it unused.
func (m *slot) flush() {
	m.state = slotUnused
	m.expires = time.Time{}
	m.buf.Reset()
	m.value = nil
	m.udata = nil
	m.notify = nil
	m.reply = nil
	m.result = nil
}

// pool is a fixed-count table of message slots. Reply correlation runs
// through a concurrent map keyed by transaction number. Only the map is
// safe for concurrent use; slot state is not synchronised, so the pool is
// used from the single goroutine driving its Session.
type pool struct {
	slots []*slot
	cur   int // cursor of the slot currently being transmitted
	byTNS *xsync.MapOf[uint16, *slot]
}

func newPool(n int) *pool {
	p := &pool{
		slots: make([]*slot, n),
		byTNS: xsync.NewMapOf[uint16, *slot](),
	}
	for i := range p.slots {
		p.slots[i] = &slot{buf: wire.NewBuf(slotBufSize)}
	}
	return p
}

// getFree claims the first unused slot.
func (p *pool) getFree() *slot {
	for _, m := range p.slots {
		if m.state == slotUnused {
			m.state = slotPend
			return m
		}
	}
	return nil
}

// register indexes a command slot by its transaction number.
func (p *pool) register(m *slot) {
	p.byTNS.Store(m.tns, m)
}

// findCmd locates the outstanding command matching a reply's transaction
// number.
func (p *pool) findCmd(tns uint16) *slot {
	m, ok := p.byTNS.Load(tns)
	if !ok || m.state == slotUnused || !m.isCmd {
		return nil
	}
	return m
}

// release flushes a slot and drops its transaction index entry.
func (p *pool) release(m *slot) {
	if m.isCmd {
		p.byTNS.Delete(m.tns)
	}
	m.flush()
}

// current returns the slot at the transmit cursor.
func (p *pool) current() *slot {
	return p.slots[p.cur]
}

// setCurrent points the transmit cursor at a specific slot.
func (p *pool) setCurrent(m *slot) {
	for i, s := range p.slots {
		if s == m {
			p.cur = i
			return
		}
	}
}

// Message header accessors. The assembled message layout is
// dst(1) src(1) cmd(1) sts(1) tns(2 LE) [fnc(1)] data...

func msgSrc(m []byte) byte     { return m[1] }
func msgCmd(m []byte) byte     { return m[2] &^ 0x40 }
func msgIsReply(m []byte) bool { return m[2]&0x40 != 0 }
func msgSTS(m []byte) byte     { return m[3] }
func msgTNS(m []byte) uint16   { return binary.LittleEndian.Uint16(m[4:6]) }
func msgExtSTS(m []byte) byte  { return m[6] }
func msgDataLen(m []byte) int  { return len(m) - 6 }

// msgOwnerNode extracts the owning node carried by some extended status
// replies.
func msgOwnerNode(m []byte) (byte, bool) {
	if len(m) < 6 {
		return 0, false
	}
	return m[5], true
}
