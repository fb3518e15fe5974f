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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession wires a session straight to one end of an in-memory
// pipe, bypassing Connect, with a known starting transaction number.
func newTestSession(t *testing.T, slots int, timeout time.Duration) (*Session, net.Conn) {
	t.Helper()
	s, err := NewSession(2, timeout, slots)
	require.NoError(t, err)
	client, server := net.Pipe()
	s.conn = client
	s.connected = true
	s.tns = 0x1234
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return s, server
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	buf := make([]byte, 512)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return append([]byte(nil), buf[:n]...)
}

func writeAll(t *testing.T, conn net.Conn, data []byte) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := conn.Write(data)
	require.NoError(t, err)
}

func TestEchoBlockingRoundTrip(t *testing.T) {
	s, server := newTestSession(t, 1, 2*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		frame := readFrame(t, server)
		want := []byte{msgSOH, 0x0A, 0x01, 0x02, 0x06, 0x00, 0x34, 0x12, 0x00, 0xAA, 0x55, 0x01}
		assert.Equal(t, want, frame)

		writeAll(t, server, []byte{msgACK})
		rply := []byte{0x02, 0x01, 0x46, 0x00, 0x34, 0x12, 0xAA, 0x55, 0x01}
		writeAll(t, server, append([]byte{msgSOH, byte(len(rply))}, rply...))
		// The session acknowledges delivery of the reply.
		ack := readFrame(t, server)
		assert.Equal(t, []byte{msgACK}, ack)
	}()

	err := s.Echo(nil, 1, []byte{0xAA, 0x55, 0x01})
	assert.NoError(t, err)
	<-done
}

func TestEchoReplyMismatch(t *testing.T) {
	s, server := newTestSession(t, 1, 2*time.Second)

	go func() {
		readFrame(t, server)
		writeAll(t, server, []byte{msgACK})
		rply := []byte{0x02, 0x01, 0x46, 0x00, 0x34, 0x12, 0xAA, 0x55, 0xFF}
		writeAll(t, server, append([]byte{msgSOH, byte(len(rply))}, rply...))
		readFrame(t, server)
	}()

	err := s.Echo(nil, 1, []byte{0xAA, 0x55, 0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReply))
}

func TestCommandNAKedByService(t *testing.T) {
	s, server := newTestSession(t, 1, 2*time.Second)

	go func() {
		readFrame(t, server)
		writeAll(t, server, []byte{msgNAK})
	}()

	err := s.Echo(nil, 1, []byte{0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDeliver))
}

func TestBlockingTimeout(t *testing.T) {
	s, server := newTestSession(t, 1, 200*time.Millisecond)

	go func() {
		readFrame(t, server)
		writeAll(t, server, []byte{msgACK})
		// Silence: no reply ever arrives.
	}()

	err := s.Echo(nil, 1, []byte{0x01})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	// The slot is recycled and a new command may be issued.
	assert.Equal(t, slotUnused, s.pool.slots[0].state)
}

func TestEchoValidation(t *testing.T) {
	s, _ := newTestSession(t, 1, time.Second)
	assert.True(t, errors.Is(s.Echo(nil, 1, nil), ErrInvalidParameter))
	assert.True(t, errors.Is(s.Echo(nil, 1, make([]byte, 244)), ErrInvalidParameter))
}

func TestNotConnectedFailsFast(t *testing.T) {
	s, err := NewSession(2, time.Second, 1)
	require.NoError(t, err)
	err = s.Echo(nil, 1, []byte{0x01})
	assert.True(t, errors.Is(err, ErrLink))
}

func TestNoBufferWhenPoolExhausted(t *testing.T) {
	s, _ := newTestSession(t, 1, time.Second)
	notify := func(*Session, error, any) {}
	// First command occupies the only slot and is queued for writing.
	require.NoError(t, s.Echo(notify, 1, []byte{0x01}))
	err := s.Echo(notify, 1, []byte{0x02})
	assert.True(t, errors.Is(err, ErrNoBuffer))
}

func TestNonBlockingEchoCallback(t *testing.T) {
	s, server := newTestSession(t, 4, time.Second)

	var result error
	called := 0
	notify := func(_ *Session, err error, udata any) {
		called++
		result = err
	}
	require.NoError(t, s.Echo(notify, 1, []byte{0xAA}))
	tns := s.tns - 1

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		frame := readFrame(t, server)
		assert.Equal(t, byte(msgSOH), frame[0])
		writeAll(t, server, []byte{msgACK})
		rply := []byte{0x02, 0x01, 0x46, 0x00, byte(tns), byte(tns >> 8), 0xAA}
		writeAll(t, server, append([]byte{msgSOH, byte(len(rply))}, rply...))
	}()

	require.NoError(t, s.Write())
	require.NoError(t, s.Read()) // link ACK
	require.NoError(t, s.Read()) // reply
	<-serverDone

	assert.Equal(t, 1, called)
	assert.NoError(t, result)
	assert.Equal(t, slotUnused, s.pool.slots[0].state)
}

func TestNonBlockingTypedReadCallback(t *testing.T) {
	s, server := newTestSession(t, 2, time.Second)

	values := make([]int16, 4)
	var result error
	notify := func(_ *Session, err error, udata any) {
		result = err
	}
	require.NoError(t, s.ProtectedTypedLogicalRead3AddressFields(notify, 1, values, FileInteger, 7, 0, 0))
	tns := s.tns - 1

	// The command body after the header is: byte count, file, type,
	// element, sub-element.
	cmd := s.pool.slots[0].buf.Bytes()
	assert.Equal(t, []byte{0x08, 0x07, 0x89, 0x00, 0x00}, cmd[7:])

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		readFrame(t, server)
		writeAll(t, server, []byte{msgACK})
		rply := []byte{0x02, 0x01, 0x4F, 0x00, byte(tns), byte(tns >> 8),
			0x02, 0x00, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x80}
		writeAll(t, server, append([]byte{msgSOH, byte(len(rply))}, rply...))
	}()

	require.NoError(t, s.Write())
	require.NoError(t, s.Read())
	require.NoError(t, s.Read())
	<-serverDone

	assert.NoError(t, result)
	assert.Equal(t, []int16{2, 1, -1, -32768}, values)
}

func TestCommandTimeoutFromTick(t *testing.T) {
	s, server := newTestSession(t, 2, time.Second)

	var result error
	called := 0
	notify := func(_ *Session, err error, udata any) {
		called++
		result = err
	}
	require.NoError(t, s.Echo(notify, 1, []byte{0x01}))

	go func() {
		readFrame(t, server)
		writeAll(t, server, []byte{msgACK})
	}()
	require.NoError(t, s.Write())
	require.NoError(t, s.Read())

	// Force the expiry into the past and run the tick path.
	s.pool.slots[0].expires = time.Now().Add(-time.Second)
	s.Tick()

	assert.Equal(t, 1, called)
	assert.True(t, errors.Is(result, ErrTimeout))
	assert.Equal(t, slotUnused, s.pool.slots[0].state)
}

func TestCloseAbortsOutstanding(t *testing.T) {
	s, _ := newTestSession(t, 2, time.Second)

	var result error
	called := 0
	notify := func(_ *Session, err error, udata any) {
		called++
		result = err
	}
	require.NoError(t, s.Echo(notify, 1, []byte{0x01}))
	require.NoError(t, s.Close())

	assert.Equal(t, 1, called)
	assert.True(t, errors.Is(result, ErrLink))
	err := s.Echo(nil, 1, []byte{0x01})
	assert.True(t, errors.Is(err, ErrLink))
}

func TestTransactionNumbersDistinct(t *testing.T) {
	s, _ := newTestSession(t, 4, time.Second)
	notify := func(*Session, error, any) {}
	seen := map[uint16]bool{}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Echo(notify, 1, []byte{byte(i + 1)}))
	}
	for i := 0; i < 3; i++ {
		m := s.pool.slots[i]
		require.True(t, m.state != slotUnused)
		assert.False(t, seen[m.tns], "duplicate TNS %04X", m.tns)
		seen[m.tns] = true
	}
}

func TestUnmatchedReplyDropped(t *testing.T) {
	s, server := newTestSession(t, 1, time.Second)

	go func() {
		rply := []byte{0x02, 0x01, 0x46, 0x00, 0x99, 0x99, 0x01}
		writeAll(t, server, append([]byte{msgSOH, byte(len(rply))}, rply...))
		readFrame(t, server) // the delivery ACK still goes out
	}()

	require.NoError(t, s.Read())
	require.NoError(t, s.Write())
}
