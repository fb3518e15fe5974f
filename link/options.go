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
	"time"
)

// Option is a functional option for configuring a Connection.
type Option func(*connOptions)

type connOptions struct {
	checksum   ChecksumMode
	duplex     DuplexMode
	maxNAK     uint
	maxENQ     uint
	ackTimeout time.Duration
	rxTimeout  time.Duration
	dupDetect  bool
	tickPeriod time.Duration
	logger     *slog.Logger
}

func defaultConnOptions() *connOptions {
	return &connOptions{
		checksum:   ChecksumCRC,
		duplex:     DuplexFull,
		maxNAK:     3,
		maxENQ:     3,
		ackTimeout: 500 * time.Millisecond,
		rxTimeout:  500 * time.Millisecond,
		dupDetect:  true,
		tickPeriod: 10 * time.Millisecond,
		logger:     slog.Default(),
	}
}

// WithChecksum selects CRC-16 or BCC error detection.
func WithChecksum(m ChecksumMode) Option {
	return func(o *connOptions) {
		o.checksum = m
	}
}

// WithDuplex records the line's duplex mode.
func WithDuplex(m DuplexMode) Option {
	return func(o *connOptions) {
		o.duplex = m
	}
}

// WithMaxNAK sets the NAK limit of a transmission: each NAK below the limit
// triggers a retransmission, and the NAK that reaches it fails the
// transmission.
func WithMaxNAK(n uint) Option {
	return func(o *connOptions) {
		o.maxNAK = n
	}
}

// WithMaxENQ sets how many ENQs are solicited before a transmission fails.
func WithMaxENQ(n uint) Option {
	return func(o *connOptions) {
		o.maxENQ = n
	}
}

// WithACKTimeout sets how long the transmitter waits for an ACK per attempt.
func WithACKTimeout(d time.Duration) Option {
	return func(o *connOptions) {
		o.ackTimeout = d
	}
}

// WithReceiveTimeout sets the budget from the first application byte of a
// frame through its checksum.
func WithReceiveTimeout(d time.Duration) Option {
	return func(o *connOptions) {
		o.rxTimeout = d
	}
}

// WithDuplicateDetect enables or disables receiver duplicate suppression.
func WithDuplicateDetect(enable bool) Option {
	return func(o *connOptions) {
		o.dupDetect = enable
	}
}

// WithTickPeriod overrides the 10 ms scheduler tick. Intended for tests.
func WithTickPeriod(d time.Duration) Option {
	return func(o *connOptions) {
		o.tickPeriod = d
	}
}

// WithLogger sets the connection's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *connOptions) {
		o.logger = logger
	}
}
