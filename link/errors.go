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

import "errors"

// Common errors.
var (
	// ErrLineClosed indicates the serial line failed or was shut down.
	ErrLineClosed = errors.New("df1: line closed")

	// ErrAddressInUse indicates a client tried to register a node address
	// already held by another client on the same connection.
	ErrAddressInUse = errors.New("df1: node address already registered")

	// ErrProtocol indicates a client violated the service framing protocol.
	ErrProtocol = errors.New("df1: client protocol violation")

	// ErrBufferFull indicates an internal staging buffer overflowed.
	ErrBufferFull = errors.New("df1: buffer full")

	// ErrConnClosed indicates the connection has been shut down.
	ErrConnClosed = errors.New("df1: connection closed")
)
