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
	"bytes"
	"errors"
	"testing"
)

func TestRegistrationRejectsDuplicateAddress(t *testing.T) {
	c := newTestConn(t)
	registerClient(t, c, 5, "first")

	second := c.acceptClient(nil)
	err := c.parseClientData(second, []byte{5, 3, 'd', 'u', 'p'})
	if !errors.Is(err, ErrAddressInUse) {
		t.Fatalf("expected ErrAddressInUse, got %v", err)
	}

	// Node addresses on a connection stay a set.
	seen := map[byte]int{}
	for _, cl := range c.clients {
		if cl.registered() {
			seen[cl.addr]++
		}
	}
	for addr, n := range seen {
		if n > 1 {
			t.Errorf("address %d registered %d times", addr, n)
		}
	}
}

func TestRegistrationRejectsBadNameLength(t *testing.T) {
	c := newTestConn(t)
	cl := c.acceptClient(nil)
	if err := c.parseClientData(cl, []byte{5, 0}); !errors.Is(err, ErrProtocol) {
		t.Errorf("zero name length: got %v", err)
	}
	cl = c.acceptClient(nil)
	if err := c.parseClientData(cl, []byte{6, 17}); !errors.Is(err, ErrProtocol) {
		t.Errorf("oversize name length: got %v", err)
	}
}

func TestSecondMessageWhilePendingIsViolation(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumBCC))
	cl := registerClient(t, c, 2, "busy")
	submitMsg(t, c, cl, []byte{0x01, 0x02, 0x06, 0x00, 0x34, 0x12})
	if cl.state != clientMsgPend {
		t.Fatalf("client state: %v", cl.state)
	}
	err := c.parseClientData(cl, []byte{MsgSOH})
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("expected protocol violation, got %v", err)
	}
}

func TestRegistryRoundRobinFairness(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumBCC))
	a := registerClient(t, c, 1, "a")
	b := registerClient(t, c, 2, "b")

	// Both clients submit while the transmitter is busy with a's message.
	submitMsg(t, c, a, []byte{0x09, 0x01, 0x06, 0x00, 0x11, 0x11})
	submitMsg(t, c, b, []byte{0x09, 0x02, 0x06, 0x00, 0x22, 0x22})
	if c.tx.client != a {
		t.Fatalf("first transmission should belong to a")
	}
	drainLine(c)
	c.parseLine([]byte{SymDLE, SymACK})
	if c.tx.client != b {
		t.Fatalf("round robin did not advance to b")
	}
}

func TestRegistryServesCurrentCursor(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumBCC))
	a := registerClient(t, c, 1, "a")

	// a transmits, completes, then becomes ready again while it is the
	// transmitter's last-served client. The scan must still reach it.
	submitMsg(t, c, a, []byte{0x09, 0x01, 0x06, 0x00, 0x11, 0x11})
	drainLine(c)
	c.parseLine([]byte{SymDLE, SymACK})
	if c.tx.busy() {
		t.Fatal("transmitter should be idle")
	}
	submitMsg(t, c, a, []byte{0x09, 0x01, 0x06, 0x00, 0x22, 0x22})
	if c.tx.client != a || !c.tx.busy() {
		t.Fatal("client at the cursor position was not served")
	}
}

func TestDepartingClientDetachesFromTransmitter(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumBCC))
	a := registerClient(t, c, 1, "gone")
	submitMsg(t, c, a, []byte{0x09, 0x01, 0x06, 0x00, 0x11, 0x11})
	drainLine(c)

	c.closeClient(a)
	if c.tx.client != nil {
		t.Fatal("transmitter still points at a closed client")
	}
	// The transmission completes with nobody to notify.
	c.parseLine([]byte{SymDLE, SymACK})
	if c.Counters.TxSuccess.Value() != 1 {
		t.Errorf("tx_success = %d, want 1", c.Counters.TxSuccess.Value())
	}
}

func TestDepartingClientACKsPendingReceive(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumCRC))
	cl := registerClient(t, c, 7, "gone")
	frame := buildFrame([]byte{0x07, 0x02, 0x46, 0x00, 0x34, 0x12}, true)
	c.parseLine(frame)
	if c.rx.state != rxPend {
		t.Fatalf("rx state: %v", c.rx.state)
	}

	c.closeClient(cl)
	if got := drainLine(c); !bytes.Equal(got, []byte{0x10, 0x06}) {
		t.Errorf("expected ACK on departure, got %x", got)
	}
	if c.rx.state != rxIdle {
		t.Errorf("rx state after departure: %v", c.rx.state)
	}
}

func TestSinkFullNAKs(t *testing.T) {
	c := newTestConn(t, WithChecksum(ChecksumCRC))
	cl := registerClient(t, c, 7, "full")
	// Fill the client's socket buffer so the next delivery cannot fit.
	for cl.sockOut.AppendByte(0) {
	}

	frame := buildFrame([]byte{0x07, 0x02, 0x46, 0x00, 0x34, 0x12}, true)
	c.parseLine(frame)
	if cl.Counters.SinkFull.Value() != 1 {
		t.Errorf("sink_full = %d, want 1", cl.Counters.SinkFull.Value())
	}
	if got := drainLine(c); !bytes.Equal(got, []byte{0x10, 0x15}) {
		t.Errorf("expected NAK when client buffer full, got %x", got)
	}
}
