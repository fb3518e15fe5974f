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

import "sync/atomic"

// Counter is a simple atomic counter. Counters are written by the
// connection's loop goroutine and may be read from any goroutine.
type Counter struct {
	value int64
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Reset resets the counter to zero.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// ConnCounters holds per-connection diagnostic counters.
type ConnCounters struct {
	TxAttempts   Counter // messages attempted to send
	TxSuccess    Counter // messages successfully sent
	MsgRx        Counter // messages successfully received
	ACKsIn       Counter // ACKs received
	NAKsIn       Counter // NAKs received
	RespTimeouts Counter // timeouts awaiting a response
	ENQsOut      Counter // ENQs sent
	TxFail       Counter // messages that could not be sent
	ACKsOut      Counter // ACKs sent
	NAKsOut      Counter // NAKs sent
	ENQsIn       Counter // ENQs received
	Runts        Counter // messages too small
	BadChecksum  Counter // received bad checksums
	UnknownDst   Counter // destination node not found
	BytesIgnored Counter // spurious bytes received
	Dups         Counter // duplicate messages received
	RxOverflow   Counter // receiver overflows
}

// ClientCounters holds per-client diagnostic counters.
type ClientCounters struct {
	TxAttempts Counter // message transmission attempts
	TxSuccess  Counter // messages successfully transmitted
	TxFail     Counter // messages failed to transmit
	SinkFull   Counter // messages rejected because socket buffer full
	MsgRx      Counter // messages received destined for client
	MsgReject  Counter // received messages rejected by client
	MsgAccept  Counter // received messages accepted by client
	RxTimeouts Counter // timed out awaiting response from client
}
