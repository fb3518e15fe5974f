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

package link

import (
	"log/slog"

	"github.com/edgeo-scada/df1/wire"
)

const rxBufSize = 512

type rxState int

const (
	rxIdle rxState = iota
	rxApp          // DLE STX received, parsing application message bytes
	rxCS1          // DLE ETX received, reading first checksum byte
	rxCS2          // reading second checksum byte, CRC only
	rxPend         // message received ok, pending client acceptance
)

func (s rxState) String() string {
	switch s {
	case rxApp:
		return "app"
	case rxCS1:
		return "cs1"
	case rxCS2:
		return "cs2"
	case rxPend:
		return "pend"
	default:
		return "idle"
	}
}

// receiver assembles link-layer bytes into application messages.
type receiver struct {
	state      rxState
	app        *wire.Buf
	dup        [4]byte // bytes used to detect a duplicate packet
	eticks     uint
	tticks     uint
	lastWasACK bool
	overflow   bool
	dupDetect  bool
	prevDLE    bool
	client     *client // client that received the pending message

	accCRC wire.CRC16
	accBCC wire.BCC
	msgCS  uint16 // checksum received from the message
}

func (rx *receiver) init(dupDetect bool, tticks uint) {
	rx.app = wire.NewBuf(rxBufSize)
	rx.dupDetect = dupDetect
	rx.lastWasACK = false
	rx.state = rxIdle
	rx.tticks = tticks
}

// active reports whether the receiver is mid-frame.
func (rx *receiver) active() bool {
	return rx.state != rxIdle && rx.state != rxPend
}

// rxStart begins reception of a new message after a DLE STX.
func (c *Connection) rxStart() {
	c.rx.app.Reset()
	c.rx.eticks = 0
	c.rx.prevDLE = false
	c.rx.overflow = false
	c.rx.accCRC = 0
	c.rx.accBCC = 0
	c.rx.state = rxApp
}

// rxByte feeds one post-symbol-layer byte to the receiver.
func (c *Connection) rxByte(b byte) {
	switch c.rx.state {
	case rxApp:
		c.rxAppByte(b)
	case rxCS1:
		if c.useCRC {
			c.rx.msgCS = uint16(b)
			c.rx.state = rxCS2
		} else {
			c.rx.msgCS = uint16(b)
			c.rxAccept()
		}
	case rxCS2:
		c.rx.msgCS |= uint16(b) << 8
		c.rxAccept()
	case rxIdle, rxPend:
	}
}

// rxAppByte handles one byte of the application portion of a frame,
// stripping DLE stuffing and detecting the frame terminator and embedded
// responses.
func (c *Connection) rxAppByte(b byte) {
	switch b {
	case SymETX:
		if c.rx.prevDLE {
			c.logger.Debug("received DLE ETX", slog.String("conn", c.name))
			if c.useCRC { // the ETX is included in CRC checksums
				c.rx.accCRC.Add(SymETX)
			}
			c.rx.state = rxCS1
			return
		}
	case SymDLE:
		if !c.rx.prevDLE {
			c.rx.prevDLE = true
			return
		}
	case SymACK, SymNAK:
		if c.rx.prevDLE { // embedded response
			c.rx.prevDLE = false
			c.embedResponse(b)
			return
		}
	default: // anything else after a DLE is not allowed
		if c.rx.prevDLE {
			c.rx.prevDLE = false
			c.rx.lastWasACK = false
			return
		}
	}
	c.rx.prevDLE = false
	if !c.rx.overflow && !c.rx.app.AppendByte(b) {
		c.logger.Debug("received message overflow", slog.String("conn", c.name))
		c.rx.overflow = true
		c.Counters.RxOverflow.Add(1)
	}
	if c.useCRC {
		c.rx.accCRC.Add(b)
	} else {
		c.rx.accBCC.Add(b)
	}
}

// rxAccept finishes a frame: validates length and checksum, suppresses
// duplicates, and hands good messages to the client registry.
func (c *Connection) rxAccept() {
	switch {
	case c.rx.app.Len() < 6:
		c.logger.Debug("received message is too small", slog.String("conn", c.name))
		c.Counters.Runts.Add(1)
		c.rxNAK()
	case c.rxChecksumOK():
		if c.rxDuplicate() { // duplicate messages are ACKed
			c.rxACK()
		} else { // ACK/NAK is sent after the client accepts or rejects
			c.Counters.MsgRx.Add(1)
			c.rx.state = rxPend
			c.clientMsgRx()
		}
	default:
		c.Counters.BadChecksum.Add(1)
		c.rxNAK()
	}
}

func (c *Connection) rxChecksumOK() bool {
	var acc uint16
	if c.useCRC {
		acc = c.rx.accCRC.Sum()
	} else {
		acc = uint16(c.rx.accBCC.Sum())
	}
	c.logger.Debug("checksum compare",
		slog.String("conn", c.name),
		slog.Uint64("accumulated", uint64(acc)),
		slog.Uint64("received", uint64(c.rx.msgCS)))
	return acc == c.rx.msgCS
}

// rxDuplicate tests the received message against the stored detection
// quadruple and updates the quadruple. Identical frames in a row collapse
// to the first.
func (c *Connection) rxDuplicate() bool {
	if !c.rx.dupDetect {
		return false
	}
	data := c.rx.app.Bytes()
	dup := data[1] == c.rx.dup[0] && data[2] == c.rx.dup[1] &&
		data[4] == c.rx.dup[2] && data[5] == c.rx.dup[3]
	if dup {
		c.logger.Debug("received duplicate message", slog.String("conn", c.name))
		c.Counters.Dups.Add(1)
	}
	c.rx.dup[0] = data[1]
	c.rx.dup[1] = data[2]
	c.rx.dup[2] = data[4]
	c.rx.dup[3] = data[5]
	return dup
}

// rxACK places a DLE ACK in the line output buffer.
func (c *Connection) rxACK() {
	c.logger.Debug("sending DLE ACK", slog.String("conn", c.name))
	if !c.lineOut.AppendByte(SymDLE) || !c.lineOut.AppendByte(SymACK) {
		c.logger.Error("failed to send ACK, line buffer full", slog.String("conn", c.name))
	}
	c.rx.lastWasACK = true
	c.rx.state = rxIdle
	c.rx.client = nil
	c.Counters.ACKsOut.Add(1)
}

// rxNAK places a DLE NAK in the line output buffer.
func (c *Connection) rxNAK() {
	c.logger.Debug("sending DLE NAK", slog.String("conn", c.name))
	if !c.lineOut.AppendByte(SymDLE) || !c.lineOut.AppendByte(SymNAK) {
		c.logger.Error("failed to send NAK, line buffer full", slog.String("conn", c.name))
	}
	c.rx.lastWasACK = false
	c.rx.state = rxIdle
	c.rx.client = nil
	c.Counters.NAKsOut.Add(1)
}

// rxENQ handles an ENQ from the remote station: re-emit the last response,
// or acknowledge on the client's behalf if it is still deciding.
func (c *Connection) rxENQ() {
	c.logger.Debug("received DLE ENQ", slog.String("conn", c.name))
	if c.rx.state == rxPend {
		c.logger.Error("remote transmitter timed out before client acknowledged message",
			slog.String("conn", c.name), slog.String("client", c.rx.client.name))
		c.rx.client.Counters.RxTimeouts.Add(1)
		c.rxACK()
		return
	}
	if c.rx.lastWasACK {
		c.rxACK()
	} else {
		c.rxNAK()
	}
}

// rxTick advances the receive timeout. A frame that does not complete
// within the budget is abandoned.
func (c *Connection) rxTick() {
	if !c.rx.active() {
		return
	}
	c.rx.eticks++
	if c.rx.eticks > c.rx.tticks {
		c.logger.Debug("message reception timeout", slog.String("conn", c.name))
		c.rx.state = rxIdle
		c.rx.lastWasACK = false
	}
}

// embedResponse delivers an ACK or NAK found inside an application frame
// to the transmitter and latches the embedded-response flag.
func (c *Connection) embedResponse(rsp byte) {
	if !c.embedRsp {
		c.embedRsp = true
		c.logger.Info("detected embedded responses", slog.String("conn", c.name))
	}
	if rsp == SymACK {
		c.txACK()
	} else {
		c.txNAK()
	}
}
