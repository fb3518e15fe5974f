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
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/edgeo-scada/df1/wire"
)

const (
	sessionBufSize = 512

	msgSOH byte = 0x01
	msgACK byte = 0x06
	msgNAK byte = 0x15
)

type readMode int

const (
	readIdle readMode = iota
	readMsgLen
	readMsg
)

// Session is a connection to a DF1 link layer service. Commands may be
// issued non-blocking with a completion callback, in which case the
// caller owns the I/O loop and drives Read, Write, and Tick, or one at a
// time with a nil callback, in which case the command function blocks
// until the reply arrives or the timeout expires.
//
// A Session must not be driven from multiple goroutines.
type Session struct {
	conn    net.Conn
	srcAddr uint8
	timeout time.Duration

	tns       uint16
	pool      *pool
	sockIn    *wire.Buf
	sockOut   *wire.Buf
	msgIn     *wire.Buf
	readMode  readMode
	msgInLen  int
	connected bool

	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session's logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session that will register with the link layer
// service as srcAddr. timeout bounds the wait for each command's reply;
// slots is the number of outstanding message buffers, at least one.
func NewSession(srcAddr uint8, timeout time.Duration, slots int, opts ...SessionOption) (*Session, error) {
	if timeout <= 0 {
		return nil, codeErr(InvalidParameter, "timeout must be positive")
	}
	if slots < 1 {
		return nil, codeErr(InvalidParameter, "at least one message slot required")
	}
	s := &Session{
		srcAddr: srcAddr,
		timeout: timeout,
		pool:    newPool(slots),
		sockIn:  wire.NewBuf(sessionBufSize),
		sockOut: wire.NewBuf(sessionBufSize),
		msgIn:   wire.NewBuf(slotBufSize),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Randomize the starting transaction number, never zero.
	s.tns = uint16(rand.Uint32())
	if s.tns == 0 {
		s.tns = 42
	}
	return s, nil
}

// Connect dials the link layer service and sends the registration
// message. Registration failures surface as a closed connection on the
// next read or write, exactly as the service behaves.
func (s *Session) Connect(addr, clientName string) error {
	if s.connected {
		return codeErr(LinkError, "already connected")
	}
	if clientName == "" {
		return codeErr(InvalidParameter, "client name cannot be empty")
	}
	if len(clientName) > MaxNameLen {
		return codeErr(InvalidParameter, "client name too long, %d characters max", MaxNameLen)
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return codeErr(LinkError, "failed to connect: %v", err)
	}
	s.conn = conn
	s.connected = true
	s.sockOut.AppendByte(s.srcAddr)
	s.sockOut.AppendByte(byte(len(clientName)))
	s.sockOut.Append([]byte(clientName))
	if err := s.Write(); err != nil {
		s.conn.Close()
		s.connected = false
		return codeErr(LinkError, "failed to send registration message: %v", err)
	}
	s.logger.Debug("registered with link layer service",
		slog.String("addr", addr),
		slog.Uint64("node", uint64(s.srcAddr)),
		slog.String("name", clientName))
	return nil
}

// Conn exposes the underlying socket so non-blocking callers can include
// it in their own readiness loop.
func (s *Session) Conn() net.Conn { return s.conn }

// Connected reports whether the session is connected to a service.
func (s *Session) Connected() bool { return s.connected }

// Read performs one read from the service socket and processes whatever
// arrives: link acknowledgements, reply messages, and their callbacks.
// Non-blocking callers invoke it when the socket is readable.
func (s *Session) Read() error {
	if !s.connected {
		return codeErr(NoConnection, "not connected")
	}
	n, err := s.sockIn.Fill(s.conn)
	if n > 0 {
		s.parseLink()
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return codeErr(Timeout, "read deadline expired")
		}
		s.fail(codeErr(LinkError, "error reading: %v", err))
		return codeErr(LinkError, "error reading: %v", err)
	}
	if n == 0 {
		s.fail(ErrLink)
		return codeErr(LinkError, "remote end closed connection")
	}
	return nil
}

// WriteReady reports whether bytes are pending transmission to the
// service.
func (s *Session) WriteReady() (bool, error) {
	if !s.connected {
		return false, codeErr(NoConnection, "not connected")
	}
	return s.sockOut.WriteReady(), nil
}

// Write drains pending bytes to the service socket.
func (s *Session) Write() error {
	if !s.connected {
		return codeErr(NoConnection, "not connected")
	}
	if !s.sockOut.WriteReady() {
		return nil
	}
	if _, err := s.sockOut.Drain(s.conn); err != nil {
		s.fail(codeErr(LinkError, "error writing: %v", err))
		return codeErr(LinkError, "error writing: %v", err)
	}
	return nil
}

// Tick expires outstanding commands. Non-blocking callers should invoke
// it at least once per second; expired commands get their callback with a
// timeout error.
func (s *Session) Tick() {
	if !s.connected {
		return
	}
	now := time.Now()
	for _, m := range s.pool.slots {
		if m.isCmd && !m.expires.IsZero() && !now.Before(m.expires) {
			notify, udata := m.notify, m.udata
			s.pool.release(m)
			if notify != nil {
				notify(s, ErrTimeout, udata)
			}
		}
	}
}

// Close drops the service connection. Outstanding commands get their
// callback with a link error.
func (s *Session) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	s.abortAll()
	s.sockIn.Reset()
	s.sockOut.Reset()
	s.msgIn.Reset()
	s.readMode = readIdle
	s.pool.cur = 0
	return s.conn.Close()
}

// fail flips the session to disconnected and aborts outstanding work.
func (s *Session) fail(err error) {
	if !s.connected {
		return
	}
	s.connected = false
	s.conn.Close()
	s.abortAll()
	s.logger.Debug("session failed", slog.String("error", err.Error()))
}

// abortAll notifies every outstanding message with a link error.
func (s *Session) abortAll() {
	for _, m := range s.pool.slots {
		if m.state != slotUnused {
			notify, udata := m.notify, m.udata
			s.pool.release(m)
			if notify != nil {
				notify(s, codeErr(LinkError, "connection closed"), udata)
			}
		}
	}
}

// parseLink runs the service-framing state machine over received bytes.
func (s *Session) parseLink() {
	for {
		b, ok := s.sockIn.GetByte()
		if !ok {
			return
		}
		switch s.readMode {
		case readIdle:
			switch b {
			case msgSOH:
				s.msgIn.Reset()
				s.readMode = readMsgLen
			case msgACK:
				s.rcvACK()
			case msgNAK:
				s.rcvNAK()
			}
		case readMsgLen:
			s.msgInLen = int(b)
			s.readMode = readMsg
		case readMsg:
			s.msgIn.AppendByte(b)
			if s.msgIn.Len() == s.msgInLen {
				s.readMode = readIdle
				s.parseMsg()
			}
		}
	}
}

// parseMsg handles one complete message from the service: correlate a
// reply to its command by transaction number, acknowledge delivery, and
// complete the command if the link ACK has already arrived.
func (s *Session) parseMsg() {
	msg := s.msgIn.Bytes()
	if len(msg) < 6 {
		s.logger.Debug("runt message from link layer service ignored")
		return
	}
	if !msgIsReply(msg) {
		// An unsolicited command addressed to us. Accept delivery so the
		// remote is not retried; command serving is not implemented.
		s.logger.Debug("inbound command dropped",
			slog.Uint64("src", uint64(msgSrc(msg))))
		s.sockOut.AppendByte(msgACK)
		return
	}
	cmd := s.pool.findCmd(msgTNS(msg))
	s.sockOut.AppendByte(msgACK)
	if cmd == nil {
		s.logger.Debug("reply with no matching command dropped",
			slog.Uint64("tns", uint64(msgTNS(msg))))
		return
	}
	cmd.state |= slotReplyRcvd
	if cmd.notify == nil {
		// One-at-a-time: the blocked sender decodes the reply itself.
		return
	}
	s.msgIn.SetIndex(6) // first data byte
	cmd.result = s.decodeReply(cmd)
	if cmd.state == slotCmdDone {
		notify, udata, result := cmd.notify, cmd.udata, cmd.result
		s.pool.release(cmd)
		notify(s, result, udata)
	}
}

// decodeReply checks the reply's STS and runs the command's decoder.
func (s *Session) decodeReply(cmd *slot) error {
	if err := stsCheck(s.msgIn.Bytes()); err != nil {
		return err
	}
	if cmd.reply != nil {
		if err := cmd.reply(s.msgIn, cmd); err != nil {
			return err
		}
	}
	return nil
}

// rcvACK handles the link layer acknowledging delivery of the message at
// the transmit cursor.
func (s *Session) rcvACK() {
	cur := s.pool.current()
	cur.state |= slotACKRcvd
	if cur.isCmd {
		// Reply waiting starts once the command is on the wire.
		if cur.notify != nil {
			cur.expires = time.Now().Add(s.timeout + time.Second)
		}
		// The ACK can arrive after the reply already has. A blocking
		// sender still owns its slot; only callback commands complete
		// here.
		if cur.state == slotCmdDone && cur.notify != nil {
			notify, udata, result := cur.notify, cur.udata, cur.result
			s.pool.release(cur)
			notify(s, result, udata)
		}
	} else { // acknowledged message was a reply of ours
		s.pool.release(cur)
	}
	s.sendNext()
}

// rcvNAK handles the link layer failing to deliver the message at the
// transmit cursor.
func (s *Session) rcvNAK() {
	cur := s.pool.current()
	notify, udata, isCmd := cur.notify, cur.udata, cur.isCmd
	s.pool.release(cur)
	if isCmd && notify != nil {
		notify(s, codeErr(NoDeliver, "link layer could not deliver command"), udata)
	}
	s.sendNext()
}

// queueSend copies the message at the transmit cursor into the socket
// output buffer with the service framing prefix.
func (s *Session) queueSend() error {
	cur := s.pool.current()
	if !s.sockOut.AppendByte(msgSOH) ||
		!s.sockOut.AppendByte(byte(cur.buf.Len())) ||
		!s.sockOut.AppendBuf(cur.buf) {
		return codeErr(BufferOverflow, "queueing message to link layer")
	}
	cur.state = slotTX
	return nil
}

// sendNext advances the transmit cursor to the next pending message and
// queues it. Transmission to the link layer is one message at a time.
func (s *Session) sendNext() error {
	if s.pool.current().state == slotTX {
		return nil
	}
	n := len(s.pool.slots)
	s.pool.cur = (s.pool.cur + 1) % n
	for i := 0; i < n; i++ {
		if s.pool.current().state == slotPend {
			return s.queueSend()
		}
		s.pool.cur = (s.pool.cur + 1) % n
	}
	return nil
}

// cmdInit claims a slot and assembles the common command header.
func (s *Session) cmdInit(cmd, fnc, dnode uint8, udata any, notify NotifyFunc, reply replyFunc) (*slot, error) {
	if !s.connected {
		return nil, codeErr(LinkError, "not connected")
	}
	m := s.pool.getFree()
	if m == nil {
		return nil, codeErr(NoBuffer, "all %d message slots in use", len(s.pool.slots))
	}
	m.isCmd = true
	m.udata = udata
	m.notify = notify
	m.reply = reply
	m.tns = s.tns
	s.tns++
	if s.tns == 0 {
		s.tns = 1
	}
	ok := m.buf.AppendByte(dnode) &&
		m.buf.AppendByte(s.srcAddr) &&
		m.buf.AppendByte(cmd) &&
		m.buf.AppendByte(0) && // STS placeholder
		m.buf.AppendWord(m.tns)
	switch cmd {
	case 0x00, 0x01, 0x02, 0x04, 0x05, 0x08: // headerless beyond the TNS
	default:
		ok = ok && m.buf.AppendByte(fnc)
	}
	if !ok {
		s.pool.release(m)
		return nil, codeErr(BufferOverflow, "assembling command header")
	}
	s.pool.register(m)
	return m, nil
}

// cmdSend dispatches an assembled command: blocking when the command has
// no callback, queued for the caller's write loop otherwise.
func (s *Session) cmdSend(cmd *slot) error {
	if cmd.notify == nil {
		return s.sendBlocking(cmd)
	}
	return s.sendNext()
}

// sendBlocking transmits one command and blocks until its reply is
// decoded, the link layer reports failure, or the timeout expires.
func (s *Session) sendBlocking(cmd *slot) error {
	s.pool.setCurrent(cmd)
	if err := s.queueSend(); err != nil {
		s.pool.release(cmd)
		return err
	}
	if err := s.Write(); err != nil {
		return err
	}
	deadline := time.Now().Add(s.timeout)
	for {
		if time.Now().After(deadline) {
			s.pool.release(cmd)
			return codeErr(Timeout, "no reply within %s", s.timeout)
		}
		s.conn.SetReadDeadline(deadline)
		err := s.Read()
		s.conn.SetReadDeadline(time.Time{})
		if err != nil {
			if CodeOf(err) == Timeout {
				s.pool.release(cmd)
				return codeErr(Timeout, "no reply within %s", s.timeout)
			}
			return err
		}
		// A link layer NAK released the slot: the command was undeliverable.
		if cmd.state == slotUnused {
			return codeErr(NoDeliver, "link layer could not deliver command")
		}
		if cmd.state&slotReplyRcvd != 0 {
			// Push out the delivery ACK queued by parseMsg.
			if err := s.Write(); err != nil {
				return err
			}
			break
		}
	}
	s.msgIn.SetIndex(6)
	err := s.decodeReply(cmd)
	s.pool.release(cmd)
	return err
}
