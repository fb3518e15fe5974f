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
	"fmt"
	"log/slog"
	"net"

	"github.com/edgeo-scada/df1/wire"
)

const (
	clientBufSize = 512

	// MaxClientNameLen is the longest client name accepted at registration.
	MaxClientNameLen = 16
)

type clientState int

const (
	clientConnected clientState = iota // accepted, pending registration
	clientRegLen                       // next byte is the name length
	clientRegName                      // receiving client name
	clientIdle                         // registered, ready for messages
	clientMsgLen                       // next byte is application message length
	clientMsg                          // receiving application message
	clientMsgReady                     // application message completely received
	clientMsgPend                      // message submitted to the transmitter
)

// client is one registered peer on a connection. All fields are owned by
// the connection's loop goroutine except Counters.
type client struct {
	id    int
	conn  net.Conn
	name  string
	addr  byte // source node address
	state clientState

	nameLen   int
	nameBytes []byte
	newMsgLen int

	df1TX   *wire.Buf // message to be transmitted on behalf of the client
	sockOut *wire.Buf // data to be transmitted to the client

	Counters ClientCounters
}

// registered reports whether the client has completed registration.
func (cl *client) registered() bool {
	return cl.state >= clientIdle
}

// acceptClient admits a newly-connected peer in the pre-registration state.
func (c *Connection) acceptClient(conn net.Conn) *client {
	c.nextClientID++
	cl := &client{
		id:      c.nextClientID,
		conn:    conn,
		name:    "*!REG*",
		state:   clientConnected,
		df1TX:   wire.NewBuf(clientBufSize),
		sockOut: wire.NewBuf(clientBufSize),
	}
	c.clients = append(c.clients, cl)
	remote := "?"
	if conn != nil {
		remote = conn.RemoteAddr().String()
	}
	c.logger.Info("client connected",
		slog.String("conn", c.name), slog.String("remote", remote))
	return cl
}

// parseClientData runs a client's framing state machine over bytes read
// from its socket. A non-nil error means the client must be closed.
func (c *Connection) parseClientData(cl *client, data []byte) error {
	for _, b := range data {
		switch cl.state {
		case clientConnected: // first byte is the requested node address
			cl.addr = b
			cl.state = clientRegLen
		case clientRegLen:
			if b == 0 || int(b) > MaxClientNameLen {
				return fmt.Errorf("%w: bad name length %d", ErrProtocol, b)
			}
			cl.nameLen = int(b)
			cl.nameBytes = cl.nameBytes[:0]
			cl.state = clientRegName
		case clientRegName:
			cl.nameBytes = append(cl.nameBytes, b)
			if len(cl.nameBytes) == cl.nameLen {
				cl.name = string(cl.nameBytes)
				if err := c.regClient(cl); err != nil {
					return err
				}
			}
		case clientIdle:
			if b == MsgSOH {
				c.logger.Debug("receiving new application message from client",
					slog.String("conn", c.name), slog.String("client", cl.name))
				cl.state = clientMsgLen
				break
			}
			if err := c.clientResponse(cl, b); err != nil {
				return err
			}
		case clientMsgReady, clientMsgPend:
			if err := c.clientResponse(cl, b); err != nil {
				return err
			}
		case clientMsgLen:
			cl.newMsgLen = int(b)
			cl.state = clientMsg
		case clientMsg:
			if !cl.df1TX.AppendByte(b) {
				c.logger.Error("buffer overflow while receiving application data",
					slog.String("conn", c.name), slog.String("client", cl.name))
				return ErrBufferFull
			}
			// Queue the message for transmission once complete.
			if cl.df1TX.Len() == cl.newMsgLen {
				cl.state = clientMsgReady
				c.findNextTx(cl)
			}
		}
	}
	return nil
}

// clientResponse handles the single-byte responses a client sends about a
// message delivered to it. It runs whether or not the client has a message
// of its own queued; a MsgSOH while one is queued is a protocol violation.
func (c *Connection) clientResponse(cl *client, b byte) error {
	switch b {
	case MsgSOH: // only one outstanding message allowed at a time
		c.logger.Error("message received from client while one is pending transmission",
			slog.String("conn", c.name), slog.String("client", cl.name))
		return ErrProtocol
	case MsgACK: // client accepted a received message
		if c.rx.client == cl {
			c.logger.Debug("client accepted message from receiver",
				slog.String("conn", c.name), slog.String("client", cl.name))
			c.rxACK()
			cl.Counters.MsgAccept.Add(1)
		} else {
			c.logger.Error("received unexpected ACK from client",
				slog.String("conn", c.name), slog.String("client", cl.name))
		}
	case MsgNAK: // client rejected a received message
		if c.rx.client == cl {
			c.logger.Debug("client rejected message from receiver",
				slog.String("conn", c.name), slog.String("client", cl.name))
			c.rxNAK()
			cl.Counters.MsgReject.Add(1)
		} else {
			c.logger.Error("received unexpected NAK from client",
				slog.String("conn", c.name), slog.String("client", cl.name))
		}
	default:
		c.logger.Error("received unknown message type from client",
			slog.String("conn", c.name), slog.String("client", cl.name))
		return ErrProtocol
	}
	return nil
}

// regClient completes a registration, rejecting duplicate node addresses.
func (c *Connection) regClient(cl *client) error {
	if other := c.findAddr(cl.addr); other != nil {
		c.logger.Error("client tried to register at an address already in use",
			slog.String("conn", c.name), slog.String("client", cl.name),
			slog.Uint64("addr", uint64(cl.addr)), slog.String("holder", other.name))
		return ErrAddressInUse
	}
	c.logger.Info("client registered",
		slog.String("conn", c.name), slog.String("client", cl.name),
		slog.Uint64("addr", uint64(cl.addr)))
	cl.state = clientIdle
	return nil
}

// findAddr returns the registered client holding a node address.
func (c *Connection) findAddr(addr byte) *client {
	for _, cl := range c.clients {
		if cl.registered() && cl.addr == addr {
			return cl
		}
	}
	return nil
}

func (c *Connection) clientIndex(target *client) int {
	for i, cl := range c.clients {
		if cl == target {
			return i
		}
	}
	return -1
}

// clientMsgTxOK notifies the originating client of a delivered message and
// schedules the next transmission.
func (c *Connection) clientMsgTxOK() {
	if cl := c.tx.client; cl != nil {
		c.logger.Debug("sending transmission success message to client",
			slog.String("conn", c.name), slog.String("client", cl.name))
		if !cl.sockOut.AppendByte(MsgACK) {
			c.logger.Error("could not notify client of success, socket buffer full",
				slog.String("conn", c.name), slog.String("client", cl.name))
		}
		cl.state = clientIdle
		cl.Counters.TxSuccess.Add(1)
	} else { // client departed mid-transmission
		c.logger.Error("message transmission completed for defunct client",
			slog.String("conn", c.name))
	}
	c.findNextTx(nil)
}

// clientMsgTxFail notifies the originating client of a failed transmission.
func (c *Connection) clientMsgTxFail() {
	if cl := c.tx.client; cl != nil {
		c.logger.Debug("sending transmission failure message to client",
			slog.String("conn", c.name), slog.String("client", cl.name))
		if !cl.sockOut.AppendByte(MsgNAK) {
			c.logger.Error("could not notify client of failure, socket buffer full",
				slog.String("conn", c.name), slog.String("client", cl.name))
		}
		cl.state = clientIdle
		cl.Counters.TxFail.Add(1)
	} else {
		c.logger.Error("message transmission failed for defunct client",
			slog.String("conn", c.name))
	}
	c.findNextTx(nil)
}

// clientMsgRx routes a received application message to the client holding
// its destination node address.
func (c *Connection) clientMsgRx() {
	dst := c.rx.app.At(0)
	cl := c.findAddr(dst)
	if cl == nil {
		c.logger.Error("message received for unknown destination address",
			slog.String("conn", c.name), slog.Uint64("dst", uint64(dst)))
		c.Counters.UnknownDst.Add(1)
		c.rxACK() // acknowledge on the absent client's behalf
		return
	}
	c.logger.Debug("sending received message to client",
		slog.String("conn", c.name), slog.String("client", cl.name))
	if cl.sockOut.Len()+c.rx.app.Len()+2 > cl.sockOut.Cap() {
		c.logger.Error("received message dropped, client socket buffer full",
			slog.String("conn", c.name), slog.String("client", cl.name))
		c.rxNAK()
		cl.Counters.SinkFull.Add(1)
		return
	}
	cl.sockOut.AppendByte(MsgSOH)
	cl.sockOut.AppendByte(byte(c.rx.app.Len()))
	cl.sockOut.AppendBuf(c.rx.app)
	c.rx.client = cl
	cl.Counters.MsgRx.Add(1)
}

// findNextTx searches the client ring for the next message to transmit.
// With start nil the scan begins at the successor of the last-served
// client but still covers the full ring, so a client that became ready
// while holding the cursor is served too.
func (c *Connection) findNextTx(start *client) {
	if c.tx.busy() || len(c.clients) == 0 {
		return
	}
	idx := 0
	if start != nil {
		if i := c.clientIndex(start); i >= 0 {
			idx = i
		}
	} else if c.tx.client != nil {
		if i := c.clientIndex(c.tx.client); i >= 0 {
			idx = (i + 1) % len(c.clients)
		}
	}
	for n := 0; n < len(c.clients); n++ {
		cl := c.clients[(idx+n)%len(c.clients)]
		if cl.state == clientMsgReady {
			c.txMsg(cl)
			cl.df1TX.Reset()
			cl.state = clientMsgPend
			cl.Counters.TxAttempts.Add(1)
			return
		}
	}
}

// closeClient removes a client, untangling it from any in-flight receive
// or transmit state.
func (c *Connection) closeClient(cl *client) {
	c.logger.Info("closing client",
		slog.String("conn", c.name), slog.String("client", cl.name),
		slog.Int64("msgs_tx", cl.Counters.TxAttempts.Value()),
		slog.Int64("msgs_rx", cl.Counters.MsgRx.Value()))
	// The transmission in progress completes, but nobody is notified.
	if c.tx.client == cl {
		c.tx.client = nil
	}
	// Acknowledge a delivered-but-unanswered message on the way out.
	if c.rx.client == cl {
		c.rxACK()
	}
	if i := c.clientIndex(cl); i >= 0 {
		c.clients = append(c.clients[:i], c.clients[i+1:]...)
	}
	if cl.conn != nil {
		cl.conn.Close()
	}
}

// closeAllClients closes every client on the connection.
func (c *Connection) closeAllClients() {
	for len(c.clients) > 0 {
		c.closeClient(c.clients[0])
	}
}
