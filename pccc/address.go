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

import "github.com/edgeo-scada/df1/wire"

// AddressKind discriminates the PLC logical address forms.
type AddressKind int

const (
	// AddrLogicalBinary is a numeric multi-level address.
	AddrLogicalBinary AddressKind = iota
	// AddrLogicalASCII is a symbolic text address such as "N7:0",
	// without the '$' prefix, which the codec supplies.
	AddrLogicalASCII
)

// MaxASCIIAddrLen is the longest logical ASCII address accepted,
// excluding the terminator the codec appends.
const MaxASCIIAddrLen = 14

// Address is a PLC logical address in either logical-binary or
// logical-ASCII form. Exactly one form is meaningful, selected by Kind.
//
// PLC-3s use up to six levels (data table area, context, section, file,
// structure, word); PLC-5s up to four (section, file, element,
// sub-element); PLC-5/250s up to seven.
type Address struct {
	Kind   AddressKind
	Levels []uint16 // logical binary: 1-7 level values, each 0-999
	ASCII  string   // logical ASCII: 1-14 characters
}

// BinaryAddress builds a logical-binary address from level values.
func BinaryAddress(levels ...uint16) Address {
	return Address{Kind: AddrLogicalBinary, Levels: levels}
}

// ASCIIAddress builds a logical-ASCII address.
func ASCIIAddress(text string) Address {
	return Address{Kind: AddrLogicalASCII, ASCII: text}
}

// encodeAddrLevel appends one address level value. Values above 254 are
// expanded into a three byte sequence prefixed with 0xFF.
func encodeAddrLevel(dst *wire.Buf, v uint16) bool {
	if v > 254 {
		return dst.AppendByte(0xFF) && dst.AppendWord(v)
	}
	return dst.AppendByte(byte(v))
}

// decodeAddrLevel consumes a one or three byte address level value.
func decodeAddrLevel(src *wire.Buf) (uint16, bool) {
	first, ok := src.GetByte()
	if !ok {
		return 0, false
	}
	if first == 0xFF {
		return src.GetWord()
	}
	return uint16(first), true
}

// encode appends the address in its wire form.
func (a *Address) encode(dst *wire.Buf) error {
	switch a.Kind {
	case AddrLogicalBinary:
		return a.encodeBinary(dst)
	case AddrLogicalASCII:
		return a.encodeASCII(dst)
	}
	return codeErr(InvalidParameter, "unknown PLC address type")
}

// encodeBinary emits a mask byte with one bit per used level, then each
// level value.
func (a *Address) encodeBinary(dst *wire.Buf) error {
	n := len(a.Levels)
	if n == 0 {
		return codeErr(InvalidParameter, "number of address levels must be non-zero")
	}
	if n > 7 {
		return codeErr(InvalidParameter, "number of address levels cannot be greater than seven")
	}
	var mask byte
	for i, v := range a.Levels {
		if v > 999 {
			return codeErr(InvalidParameter, "address level values must be less than 1000")
		}
		mask |= 1 << i
	}
	if !dst.AppendByte(mask) {
		return codeErr(BufferOverflow, "encoding logical binary address")
	}
	for _, v := range a.Levels {
		if !encodeAddrLevel(dst, v) {
			return codeErr(BufferOverflow, "encoding logical binary address")
		}
	}
	return nil
}

// encodeASCII emits NUL, '$', the address text, and a terminating NUL.
func (a *Address) encodeASCII(dst *wire.Buf) error {
	if len(a.ASCII) == 0 {
		return codeErr(InvalidParameter, "logical ASCII address cannot be empty")
	}
	if len(a.ASCII) > MaxASCIIAddrLen {
		return codeErr(InvalidParameter, "logical ASCII address too long")
	}
	if !dst.AppendByte(0) || !dst.AppendByte('$') ||
		!dst.Append([]byte(a.ASCII)) || !dst.AppendByte(0) {
		return codeErr(BufferOverflow, "encoding logical ASCII address")
	}
	return nil
}
