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
	"net"
	"sync"
	"time"

	"github.com/edgeo-scada/df1/wire"
)

const lineBufSize = 1024

// Connection owns one serial line, its receiver and transmitter state
// machines, and the set of TCP clients sharing the line. All protocol
// state is owned by the single loop goroutine started by Start; external
// access is limited to Counters snapshots and Close.
type Connection struct {
	name string
	line ByteChannel
	opts *connOptions

	useCRC   bool
	readSym  bool // previous link-layer byte was a DLE
	embedRsp bool // embedded responses detected on this line

	lineOut *wire.Buf
	rx      receiver
	tx      transmitter

	clients      []*client
	nextClientID int

	Counters ConnCounters
	logger   *slog.Logger

	lineCh   chan []byte
	clientCh chan clientEvent
	acceptCh chan net.Conn
	listener net.Listener

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type clientEvent struct {
	id   int
	data []byte
	err  error
}

// NewConnection creates a connection over the given line. Start must be
// called to begin servicing it.
func NewConnection(name string, line ByteChannel, opts ...Option) *Connection {
	options := defaultConnOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Connection{
		name:     name,
		line:     line,
		opts:     options,
		useCRC:   options.checksum == ChecksumCRC,
		lineOut:  wire.NewBuf(lineBufSize),
		logger:   options.logger,
		lineCh:   make(chan []byte, 8),
		clientCh: make(chan clientEvent, 8),
		acceptCh: make(chan net.Conn, 4),
		done:     make(chan struct{}),
	}
	c.rx.init(options.dupDetect, ticks(options.rxTimeout, options.tickPeriod))
	c.tx.init(options.maxNAK, options.maxENQ, ticks(options.ackTimeout, options.tickPeriod))
	c.logger.Info("connection initialized",
		slog.String("conn", name),
		slog.String("checksum", options.checksum.String()),
		slog.String("duplex", options.duplex.String()),
		slog.Bool("dup_detect", options.dupDetect))
	return c
}

func ticks(d, period time.Duration) uint {
	t := uint(d / period)
	if t == 0 {
		t = 1
	}
	return t
}

// Name returns the connection's configured name.
func (c *Connection) Name() string { return c.name }

// Start launches the connection's scheduler loop and line reader, and
// begins accepting clients from the listener if one is given.
func (c *Connection) Start(listener net.Listener) {
	c.listener = listener
	c.wg.Add(2)
	go c.readLine()
	go c.run()
	if listener != nil {
		c.wg.Add(1)
		go c.acceptLoop(listener)
	}
}

// Close shuts the connection down and closes all of its clients.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.line.Close()
		if c.listener != nil {
			c.listener.Close()
		}
	})
	c.wg.Wait()
	return nil
}

func (c *Connection) acceptLoop(listener net.Listener) {
	defer c.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("accept error",
					slog.String("conn", c.name), slog.String("error", err.Error()))
			}
			return
		}
		select {
		case c.acceptCh <- conn:
		case <-c.done:
			conn.Close()
			return
		}
	}
}

// readLine pumps raw bytes from the serial line into the loop. The
// channel closes when the line fails, which is fatal for the connection.
func (c *Connection) readLine() {
	defer c.wg.Done()
	defer close(c.lineCh)
	buf := make([]byte, lineBufSize)
	for {
		n, err := c.line.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case c.lineCh <- data:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("line read error",
					slog.String("conn", c.name), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// readClient pumps one client's socket into the loop.
func (c *Connection) readClient(id int, conn net.Conn) {
	defer c.wg.Done()
	buf := make([]byte, clientBufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case c.clientCh <- clientEvent{id: id, data: data}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case c.clientCh <- clientEvent{id: id, err: err}:
			case <-c.done:
			}
			return
		}
	}
}

// run is the connection's scheduler: a 10 ms tick plus readiness on the
// line, the listener, and every client socket, all serviced by this one
// goroutine.
func (c *Connection) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			c.closeAllClients()
			return
		case <-ticker.C:
			c.tick()
			c.flush()
		case data, ok := <-c.lineCh:
			if !ok {
				c.logger.Error("line failed, closing connection", slog.String("conn", c.name))
				c.closeAllClients()
				return
			}
			c.parseLine(data)
			c.flush()
		case conn := <-c.acceptCh:
			cl := c.acceptClient(conn)
			c.wg.Add(1)
			go c.readClient(cl.id, conn)
		case ev := <-c.clientCh:
			c.handleClientEvent(ev)
			c.flush()
		}
	}
}

func (c *Connection) handleClientEvent(ev clientEvent) {
	cl := c.findClientID(ev.id)
	if cl == nil {
		return
	}
	if ev.err != nil {
		c.logger.Info("client disconnected",
			slog.String("conn", c.name), slog.String("client", cl.name))
		c.closeClient(cl)
		return
	}
	if err := c.parseClientData(cl, ev.data); err != nil {
		c.logger.Error("closing client",
			slog.String("conn", c.name), slog.String("client", cl.name),
			slog.String("error", err.Error()))
		c.closeClient(cl)
	}
}

func (c *Connection) findClientID(id int) *client {
	for _, cl := range c.clients {
		if cl.id == id {
			return cl
		}
	}
	return nil
}

// tick advances the receiver and transmitter timers.
func (c *Connection) tick() {
	c.rxTick()
	c.txTick()
}

// parseLine scans raw line bytes for link symbols. Application bytes
// while a frame is open go to the receiver, which strips its own DLE
// stuffing.
func (c *Connection) parseLine(data []byte) {
	for _, b := range data {
		if c.rx.active() {
			c.rxByte(b)
			continue
		}
		if c.readSym { // previous link layer byte was a DLE
			c.readSym = false
			switch b {
			case SymSTX:
				c.logger.Debug("received DLE STX", slog.String("conn", c.name))
				c.rxStart()
				continue
			case SymENQ:
				c.Counters.ENQsIn.Add(1)
				c.rxENQ()
				continue
			case SymACK:
				c.Counters.ACKsIn.Add(1)
				c.txACK()
				continue
			case SymNAK:
				c.Counters.NAKsIn.Add(1)
				c.txNAK()
				continue
			default: // any other character after a DLE is invalid
				c.logger.Debug("spurious byte received", slog.String("conn", c.name))
				c.Counters.BytesIgnored.Add(1)
				c.rx.lastWasACK = false
			}
		}
		if b == SymDLE {
			c.readSym = true
		} else { // link data not prefixed with a DLE is ignored
			c.logger.Debug("spurious byte received", slog.String("conn", c.name))
			c.Counters.BytesIgnored.Add(1)
			c.rx.lastWasACK = false
			c.readSym = false
		}
	}
}

// flush drains the line output buffer and every client's socket buffer.
func (c *Connection) flush() {
	if c.lineOut.WriteReady() {
		if _, err := c.lineOut.Drain(c.line); err != nil {
			c.logger.Error("line write error",
				slog.String("conn", c.name), slog.String("error", err.Error()))
			return
		}
	}
	if !c.lineOut.WriteReady() {
		c.txDataSent()
	}
	for i := 0; i < len(c.clients); i++ {
		cl := c.clients[i]
		if cl.conn == nil || !cl.sockOut.WriteReady() {
			continue
		}
		cl.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if _, err := cl.sockOut.Drain(cl.conn); err != nil {
			c.logger.Error("client write error",
				slog.String("conn", c.name), slog.String("client", cl.name),
				slog.String("error", err.Error()))
			c.closeClient(cl)
			i--
		}
	}
}
