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
	"fmt"
)

// Code classifies the outcome of a PCCC operation.
type Code int

const (
	Success Code = iota
	WReady       // no error, data pending to be written to the link layer
	NoConnection
	LinkError
	InvalidParameter
	Fatal
	BufferOverflow
	NoBuffer
	NoDeliver
	Timeout
	ReplyError
)

// String returns the canonical phrase for a result code.
func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case WReady:
		return "success, data pending to be written to link layer"
	case NoConnection:
		return "not connected to link layer service"
	case LinkError:
		return "link layer service connection error"
	case InvalidParameter:
		return "invalid parameter specified"
	case Fatal:
		return "fatal error"
	case BufferOverflow:
		return "buffer overflow"
	case NoBuffer:
		return "no message buffers available to process command"
	case NoDeliver:
		return "link layer service could not deliver command"
	case Timeout:
		return "timed out awaiting a reply"
	case ReplyError:
		return "reply contained an error"
	default:
		return "unknown error"
	}
}

// Error is a PCCC failure carrying its taxonomy code and descriptive
// detail.
type Error struct {
	Code   Code
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail == "" {
		return "pccc: " + e.Code.String()
	}
	return fmt.Sprintf("pccc: %s: %s", e.Code, e.Detail)
}

// Is reports a match against another *Error or a taxonomy sentinel with
// the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func codeErr(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Taxonomy sentinels for errors.Is comparisons.
var (
	ErrNoConnection     = &Error{Code: NoConnection}
	ErrLink             = &Error{Code: LinkError}
	ErrInvalidParameter = &Error{Code: InvalidParameter}
	ErrFatal            = &Error{Code: Fatal}
	ErrBufferOverflow   = &Error{Code: BufferOverflow}
	ErrNoBuffer         = &Error{Code: NoBuffer}
	ErrNoDeliver        = &Error{Code: NoDeliver}
	ErrTimeout          = &Error{Code: Timeout}
	ErrReply            = &Error{Code: ReplyError}
)

// CodeOf recovers the taxonomy code from an error returned by this
// package. A nil error is Success; a foreign error is LinkError.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return LinkError
}
