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

// Package serialport opens and configures the serial line a DF1
// connection runs over. DF1 lines are 8N1 at one of the standard baud
// rates.
package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// Rates are the baud rates accepted by the daemon's configuration.
var Rates = []int{110, 300, 600, 1200, 2400, 9600, 19200, 38400}

// ValidRate reports whether a baud rate is one of the accepted values.
func ValidRate(rate int) bool {
	for _, r := range Rates {
		if r == rate {
			return true
		}
	}
	return false
}

// Port is an open serial line. It satisfies link.ByteChannel.
type Port struct {
	port serial.Port
}

// Open opens a serial device at the given baud rate, 8N1, and flushes
// any stale bytes from its buffers.
func Open(device string, rate int) (*Port, error) {
	if !ValidRate(rate) {
		return nil, fmt.Errorf("serialport: unsupported baud rate %d", rate)
	}
	p, err := serial.Open(device, &serial.Mode{
		BaudRate: rate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", device, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("serialport: flush %s: %w", device, err)
	}
	if err := p.ResetOutputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("serialport: flush %s: %w", device, err)
	}
	return &Port{port: p}, nil
}

// Read reads available bytes from the line, blocking until at least one
// byte arrives.
func (p *Port) Read(buf []byte) (int, error) {
	return p.port.Read(buf)
}

// Write writes bytes to the line.
func (p *Port) Write(buf []byte) (int, error) {
	return p.port.Write(buf)
}

// Close closes the line.
func (p *Port) Close() error {
	return p.port.Close()
}
