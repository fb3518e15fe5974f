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

const txBufSize = 512

type txState int

const (
	txIdle      txState = iota
	txPendWrite         // frame staged in line output buffer, pending write
	txPendResp          // frame completely written, awaiting ACK/NAK
)

func (s txState) String() string {
	switch s {
	case txPendWrite:
		return "pend-write"
	case txPendResp:
		return "pend-resp"
	default:
		return "idle"
	}
}

// transmitter sends one framed message at a time over the line.
type transmitter struct {
	state  txState
	maxNAK uint
	maxENQ uint
	nakCnt uint
	enqCnt uint
	eticks uint
	tticks uint
	msg    *wire.Buf
	client *client // originator of the current message, nil if defunct
}

func (tx *transmitter) init(maxNAK, maxENQ, tticks uint) {
	tx.msg = wire.NewBuf(txBufSize)
	tx.maxNAK = maxNAK
	tx.maxENQ = maxENQ
	tx.state = txIdle
	tx.tticks = tticks
}

func (tx *transmitter) busy() bool {
	return tx.state != txIdle
}

// flush discards the current message and resets the retry counters.
func (tx *transmitter) flush() {
	tx.nakCnt = 0
	tx.enqCnt = 0
	tx.msg.Reset()
	tx.state = txIdle
}

// txMsg frames a client's staged message and starts its transmission.
func (c *Connection) txMsg(cl *client) {
	c.logger.Debug("beginning message transmission",
		slog.String("conn", c.name), slog.String("client", cl.name))
	var crc wire.CRC16
	var bcc wire.BCC
	overflow := !c.tx.msg.AppendByte(SymDLE) || !c.tx.msg.AppendByte(SymSTX)
	for {
		b, ok := cl.df1TX.GetByte()
		if !ok {
			break
		}
		if !c.tx.msg.AppendByte(b) {
			overflow = true
		}
		if c.useCRC {
			crc.Add(b)
		} else {
			bcc.Add(b)
		}
		if b == SymDLE { // a literal DLE is doubled on the wire
			if !c.tx.msg.AppendByte(SymDLE) {
				overflow = true
			}
		}
	}
	if !c.tx.msg.AppendByte(SymDLE) || !c.tx.msg.AppendByte(SymETX) {
		overflow = true
	}
	if c.useCRC {
		crc.Add(SymETX)
		if !c.tx.msg.AppendWord(crc.Sum()) {
			overflow = true
		}
	} else if !c.tx.msg.AppendByte(bcc.Sum()) {
		overflow = true
	}
	c.tx.client = cl
	if overflow {
		c.logger.Error("message dropped due to buffer overflow",
			slog.String("conn", c.name), slog.String("client", cl.name))
	}
	c.txSend()
	c.Counters.TxAttempts.Add(1)
}

// txSend copies the staged frame to the line output buffer.
func (c *Connection) txSend() {
	c.tx.state = txPendWrite
	if !c.lineOut.AppendBuf(c.tx.msg) {
		c.logger.Error("message transmission failed, line output buffer full",
			slog.String("conn", c.name))
		c.tx.flush()
		c.clientMsgTxFail()
	}
}

// txSendENQ appends a DLE ENQ to solicit the remote's last response.
func (c *Connection) txSendENQ() {
	c.tx.state = txPendWrite
	c.logger.Debug("sending DLE ENQ", slog.String("conn", c.name))
	if !c.lineOut.AppendByte(SymDLE) || !c.lineOut.AppendByte(SymENQ) {
		c.logger.Error("ENQ transmission failed, line output buffer full",
			slog.String("conn", c.name))
		c.tx.flush()
		c.clientMsgTxFail()
	}
	c.Counters.ENQsOut.Add(1)
}

// txDataSent notifies the transmitter that its staged bytes were written
// to the line in full.
func (c *Connection) txDataSent() {
	if c.tx.state == txPendWrite {
		c.tx.state = txPendResp
		c.tx.eticks = 0
	}
}

// txTick advances the response timeout. While the remote interleaves
// responses inside its own frames the clock holds during reception, so an
// ACK arriving at the tail of a long inbound frame is not falsely timed
// out. Unvalidated against half-duplex hardware.
func (c *Connection) txTick() {
	if c.embedRsp && c.rx.active() {
		return
	}
	if c.tx.state != txPendResp {
		return
	}
	c.tx.eticks++
	if c.tx.eticks <= c.tx.tticks {
		return
	}
	c.logger.Debug("transmitter timeout", slog.String("conn", c.name))
	c.Counters.RespTimeouts.Add(1)
	c.tx.enqCnt++
	if c.tx.enqCnt > c.tx.maxENQ {
		c.logger.Error("message transmission failed, no response",
			slog.String("conn", c.name), slog.Uint64("enqs", uint64(c.tx.maxENQ)))
		c.tx.flush()
		c.Counters.TxFail.Add(1)
		c.clientMsgTxFail()
		return
	}
	c.txSendENQ()
}

// txACK handles an ACK symbol from the line.
func (c *Connection) txACK() {
	c.logger.Debug("received DLE ACK", slog.String("conn", c.name))
	if c.tx.state == txPendResp {
		c.tx.flush()
		c.Counters.TxSuccess.Add(1)
		c.clientMsgTxOK()
		return
	}
	c.logger.Error("received unexpected ACK", slog.String("conn", c.name))
	c.rx.lastWasACK = false
	c.Counters.BytesIgnored.Add(2)
}

// txNAK handles a NAK symbol from the line.
func (c *Connection) txNAK() {
	c.logger.Debug("received DLE NAK", slog.String("conn", c.name))
	if c.tx.state == txPendResp {
		c.tx.nakCnt++
		if c.tx.nakCnt >= c.tx.maxNAK {
			c.logger.Error("message transmission failed, too many NAKs",
				slog.String("conn", c.name), slog.Uint64("naks", uint64(c.tx.maxNAK)))
			c.tx.flush()
			c.Counters.TxFail.Add(1)
			c.clientMsgTxFail()
			return
		}
		c.txSend() // retransmission
		return
	}
	c.logger.Error("received unexpected NAK", slog.String("conn", c.name))
	c.rx.lastWasACK = false
	c.Counters.BytesIgnored.Add(2)
}
