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
	"math"

	"github.com/edgeo-scada/df1/wire"
)

// Bit positions for the boolean members of structured data types, packed
// into the first word of the wire form.
const (
	bitTmrEN = 0x8000
	bitTmrTT = 0x4000
	bitTmrDN = 0x2000
	bitTmrTB = 0x0200 // set for a one second time base

	bitCntCU = 0x8000
	bitCntCD = 0x4000
	bitCntDN = 0x2000
	bitCntOV = 0x1000
	bitCntUN = 0x0800
	bitCntUA = 0x0400

	bitCtlEN = 0x8000
	bitCtlEU = 0x4000
	bitCtlDN = 0x2000
	bitCtlEM = 0x1000
	bitCtlER = 0x0800
	bitCtlUL = 0x0400
	bitCtlIN = 0x0200
	bitCtlFD = 0x0100
)

// Value is the host-side form of a data-table array: a typed Go slice.
// Supported element types are []int16 (INT), []uint16 (BIN and STATUS),
// []float32 (FLOAT), []Timer, []CounterElem, []Control, and []PString.
type Value any

// elementCount returns the number of elements in a Value, or -1 for an
// unsupported slice type.
func elementCount(v Value) int {
	switch s := v.(type) {
	case []int16:
		return len(s)
	case []uint16:
		return len(s)
	case []float32:
		return len(s)
	case []Timer:
		return len(s)
	case []CounterElem:
		return len(s)
	case []Control:
		return len(s)
	case []PString:
		return len(s)
	}
	return -1
}

// valueMatchesType reports whether a Value slice is the correct host type
// for a declared file type.
func valueMatchesType(v Value, ft FileType) bool {
	switch ft {
	case FileInteger:
		_, ok := v.([]int16)
		return ok
	case FileBinary, FileStatus:
		_, ok := v.([]uint16)
		return ok
	case FileFloat:
		_, ok := v.([]float32)
		return ok
	case FileTimer:
		_, ok := v.([]Timer)
		return ok
	case FileCounter:
		_, ok := v.([]CounterElem)
		return ok
	case FileControl:
		_, ok := v.([]Control)
		return ok
	case FileString:
		_, ok := v.([]PString)
		return ok
	}
	return false
}

// wireSize returns the transfer size in bytes of one element of a file
// type, or 0 if the type cannot be transferred by the typed commands.
func wireSize(ft FileType) int {
	switch ft {
	case FileInteger:
		return SizeInteger
	case FileBinary:
		return SizeBinary
	case FileStatus:
		return SizeStatus
	case FileFloat:
		return SizeFloat
	case FileTimer:
		return SizeTimer
	case FileCounter:
		return SizeCounter
	case FileControl:
		return SizeControl
	case FileString:
		return SizeString
	}
	return 0
}

func fileTypeCode(ft FileType) (byte, bool) {
	switch ft {
	case FileStatus:
		return ftCodeStatus, true
	case FileBinary:
		return ftCodeBinary, true
	case FileTimer:
		return ftCodeTimer, true
	case FileCounter:
		return ftCodeCounter, true
	case FileControl:
		return ftCodeControl, true
	case FileInteger:
		return ftCodeInteger, true
	case FileFloat:
		return ftCodeFloat, true
	case FileString:
		return ftCodeString, true
	}
	return 0, false
}

func fileTypeFromCode(code byte) (FileType, bool) {
	switch code {
	case ftCodeOutput:
		return FileOutput, true
	case ftCodeInput:
		return FileInput, true
	case ftCodeStatus:
		return FileStatus, true
	case ftCodeBinary:
		return FileBinary, true
	case ftCodeTimer:
		return FileTimer, true
	case ftCodeCounter:
		return FileCounter, true
	case ftCodeControl:
		return FileControl, true
	case ftCodeInteger:
		return FileInteger, true
	case ftCodeFloat:
		return FileFloat, true
	case ftCodeString:
		return FileString, true
	case ftCodeASCII:
		return FileASCII, true
	case ftCodeBCD:
		return FileBCD, true
	}
	return 0, false
}

// encodeArray appends the wire form of every element of value.
// Unsupported host/file type pairings are invalid parameters, not an
// internal error.
func encodeArray(dst *wire.Buf, ft FileType, value Value) error {
	if !valueMatchesType(value, ft) {
		return codeErr(InvalidParameter, "unsupported file type or mismatched data slice")
	}
	ok := true
	switch s := value.(type) {
	case []int16:
		for _, v := range s {
			ok = ok && dst.AppendWord(uint16(v))
		}
	case []uint16:
		for _, v := range s {
			ok = ok && dst.AppendWord(v)
		}
	case []float32:
		for _, v := range s {
			ok = ok && dst.AppendLong(math.Float32bits(v))
		}
	case []Timer:
		for i := range s {
			ok = ok && encodeTimer(dst, &s[i])
		}
	case []CounterElem:
		for i := range s {
			ok = ok && encodeCounter(dst, &s[i])
		}
	case []Control:
		for i := range s {
			ok = ok && encodeControl(dst, &s[i])
		}
	case []PString:
		for i := range s {
			if err := encodeString(dst, &s[i]); err != nil {
				return err
			}
		}
	}
	if !ok {
		return codeErr(BufferOverflow, "encoding data array")
	}
	return nil
}

// decodeArray consumes the wire form of every element of value from src.
func decodeArray(src *wire.Buf, ft FileType, value Value) error {
	if !valueMatchesType(value, ft) {
		return codeErr(InvalidParameter, "unsupported file type or mismatched data slice")
	}
	ok := true
	switch s := value.(type) {
	case []int16:
		for i := range s {
			var w uint16
			w, ok = src.GetWord()
			if !ok {
				break
			}
			s[i] = int16(w)
		}
	case []uint16:
		for i := range s {
			s[i], ok = src.GetWord()
			if !ok {
				break
			}
		}
	case []float32:
		for i := range s {
			var l uint32
			l, ok = src.GetLong()
			if !ok {
				break
			}
			s[i] = math.Float32frombits(l)
		}
	case []Timer:
		for i := range s {
			if ok = decodeTimer(src, &s[i]); !ok {
				break
			}
		}
	case []CounterElem:
		for i := range s {
			if ok = decodeCounter(src, &s[i]); !ok {
				break
			}
		}
	case []Control:
		for i := range s {
			if ok = decodeControl(src, &s[i]); !ok {
				break
			}
		}
	case []PString:
		for i := range s {
			if ok = decodeString(src, &s[i]); !ok {
				break
			}
		}
	}
	if !ok {
		return codeErr(BufferOverflow, "decoding data array")
	}
	return nil
}

func encodeTimer(dst *wire.Buf, t *Timer) bool {
	var bits uint16
	if t.EN {
		bits |= bitTmrEN
	}
	if t.TT {
		bits |= bitTmrTT
	}
	if t.DN {
		bits |= bitTmrDN
	}
	if t.Base == TimeBase1Sec {
		bits |= bitTmrTB
	}
	return dst.AppendWord(bits) &&
		dst.AppendWord(uint16(t.Preset)) &&
		dst.AppendWord(uint16(t.Accumulator))
}

func decodeTimer(src *wire.Buf, t *Timer) bool {
	bits, ok1 := src.GetWord()
	pre, ok2 := src.GetWord()
	acc, ok3 := src.GetWord()
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	t.EN = bits&bitTmrEN != 0
	t.TT = bits&bitTmrTT != 0
	t.DN = bits&bitTmrDN != 0
	if bits&bitTmrTB != 0 {
		t.Base = TimeBase1Sec
	} else {
		t.Base = TimeBase100th
	}
	t.Preset = int16(pre)
	t.Accumulator = int16(acc)
	return true
}

func encodeCounter(dst *wire.Buf, c *CounterElem) bool {
	var bits uint16
	if c.CU {
		bits |= bitCntCU
	}
	if c.CD {
		bits |= bitCntCD
	}
	if c.DN {
		bits |= bitCntDN
	}
	if c.OV {
		bits |= bitCntOV
	}
	if c.UN {
		bits |= bitCntUN
	}
	if c.UA {
		bits |= bitCntUA
	}
	return dst.AppendWord(bits) &&
		dst.AppendWord(uint16(c.Preset)) &&
		dst.AppendWord(uint16(c.Accumulator))
}

func decodeCounter(src *wire.Buf, c *CounterElem) bool {
	bits, ok1 := src.GetWord()
	pre, ok2 := src.GetWord()
	acc, ok3 := src.GetWord()
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	c.CU = bits&bitCntCU != 0
	c.CD = bits&bitCntCD != 0
	c.DN = bits&bitCntDN != 0
	c.OV = bits&bitCntOV != 0
	c.UN = bits&bitCntUN != 0
	c.UA = bits&bitCntUA != 0
	c.Preset = int16(pre)
	c.Accumulator = int16(acc)
	return true
}

func encodeControl(dst *wire.Buf, c *Control) bool {
	var bits uint16
	if c.EN {
		bits |= bitCtlEN
	}
	if c.EU {
		bits |= bitCtlEU
	}
	if c.DN {
		bits |= bitCtlDN
	}
	if c.EM {
		bits |= bitCtlEM
	}
	if c.ER {
		bits |= bitCtlER
	}
	if c.UL {
		bits |= bitCtlUL
	}
	if c.IN {
		bits |= bitCtlIN
	}
	if c.FD {
		bits |= bitCtlFD
	}
	return dst.AppendWord(bits) &&
		dst.AppendWord(uint16(c.Length)) &&
		dst.AppendWord(uint16(c.Position))
}

func decodeControl(src *wire.Buf, c *Control) bool {
	bits, ok1 := src.GetWord()
	length, ok2 := src.GetWord()
	pos, ok3 := src.GetWord()
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	c.EN = bits&bitCtlEN != 0
	c.EU = bits&bitCtlEU != 0
	c.DN = bits&bitCtlDN != 0
	c.EM = bits&bitCtlEM != 0
	c.ER = bits&bitCtlER != 0
	c.UL = bits&bitCtlUL != 0
	c.IN = bits&bitCtlIN != 0
	c.FD = bits&bitCtlFD != 0
	c.Length = int16(length)
	c.Position = int16(pos)
	return true
}

// encodeString emits a string element: 16-bit length, then 82 text bytes
// with every character pair byte-swapped. The word holding the last
// character of an odd-length string carries a zero in its first byte.
func encodeString(dst *wire.Buf, s *PString) error {
	if s.Len > 82 {
		return codeErr(InvalidParameter, "string element with invalid length %d, 82 maximum", s.Len)
	}
	ok := dst.AppendWord(uint16(s.Len))
	i := 0
	for i < s.Len {
		var c byte
		if i&1 == 1 {
			c = s.Text[i-1]
		} else {
			c = s.Text[i+1]
		}
		i++
		if i == s.Len && i&1 == 1 {
			ok = ok && dst.AppendByte(0)
			ok = ok && dst.AppendByte(s.Text[i-1])
			i++
		} else {
			ok = ok && dst.AppendByte(c)
		}
	}
	for ; i < 82; i++ {
		ok = ok && dst.AppendByte(0)
	}
	if !ok {
		return codeErr(BufferOverflow, "encoding string element")
	}
	return nil
}

// decodeString consumes a string element, reversing the character pair
// swap and guaranteeing NUL termination at the decoded length.
func decodeString(src *wire.Buf, s *PString) bool {
	length, ok := src.GetWord()
	if !ok {
		return false
	}
	s.Len = int(length)
	if s.Len > 82 {
		s.Len = 82
	}
	for i := 0; i < 82; i++ {
		c, ok := src.GetByte()
		if !ok {
			return false
		}
		if i&1 == 1 {
			s.Text[i-1] = c
		} else {
			s.Text[i+1] = c
		}
	}
	s.Text[s.Len] = 0
	return true
}

// encodeTypeData appends a type/data parameter: a flag byte holding the
// type value in its upper nibble and the size value in its lower nibble,
// or extended-length byte counts when either value is eight or larger.
func encodeTypeData(dst *wire.Buf, typ, size uint64) error {
	if typ>>56 != 0 {
		return codeErr(InvalidParameter, "type/data 'type' value doesn't fit within seven bytes")
	}
	if size>>56 != 0 {
		return codeErr(InvalidParameter, "type/data 'size' value doesn't fit within seven bytes")
	}
	flagPos := dst.Len()
	if !dst.AppendByte(0) {
		return codeErr(BufferOverflow, "encoding type/data parameter")
	}
	var flag byte
	if typ < 8 {
		flag = byte(typ) << 4
	} else {
		flag = 0x80
		n, ok := appendTypeDataValue(dst, typ)
		if !ok {
			return codeErr(BufferOverflow, "encoding type/data parameter")
		}
		flag |= byte(n) << 4
	}
	if size < 8 {
		flag |= byte(size)
	} else {
		flag |= 0x08
		n, ok := appendTypeDataValue(dst, size)
		if !ok {
			return codeErr(BufferOverflow, "encoding type/data parameter")
		}
		flag |= byte(n)
	}
	dst.Bytes()[flagPos] = flag
	return nil
}

// decodeTypeData consumes a type/data parameter.
func decodeTypeData(src *wire.Buf) (typ, size uint64, err error) {
	flag, ok := src.GetByte()
	if !ok {
		return 0, 0, codeErr(BufferOverflow, "unexpected end of buffer in type/data parameter")
	}
	if flag&0x80 != 0 {
		typ, ok = getTypeDataValue(src, int(flag&0x70)>>4)
	} else {
		typ = uint64(flag&0x70) >> 4
	}
	if ok && flag&0x08 != 0 {
		size, ok = getTypeDataValue(src, int(flag&0x07))
	} else if ok {
		size = uint64(flag & 0x07)
	}
	if !ok {
		return 0, 0, codeErr(BufferOverflow, "unexpected end of buffer in type/data parameter")
	}
	return typ, size, nil
}

// appendTypeDataValue emits a value larger than seven as little-endian
// bytes, returning the encoded length.
func appendTypeDataValue(dst *wire.Buf, x uint64) (int, bool) {
	n := 0
	for ; x != 0; n++ {
		if !dst.AppendByte(byte(x)) {
			return 0, false
		}
		x >>= 8
	}
	return n, true
}

func getTypeDataValue(src *wire.Buf, bytes int) (uint64, bool) {
	var x uint64
	for i := 0; i < bytes; i++ {
		b, ok := src.GetByte()
		if !ok {
			return 0, false
		}
		x |= uint64(b) << (i * 8)
	}
	return x, true
}
