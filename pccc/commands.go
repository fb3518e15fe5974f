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

// Command functions. Each assembles one PCCC command and dispatches it.
// With a nil notify the call blocks until the command completes and the
// outcome is the return value; with a callback the call returns once the
// command is queued and the callback fires exactly once with the outcome.

// maxTypedTransfer caps the data bytes moved by one protected typed
// logical read or write.
const maxTypedTransfer = 236

// Echo transmits up to 243 bytes to the destination node's interface
// module and verifies the reply returns them unchanged. SLC 500, 5/01,
// and 5/02 processors accept at most 95 bytes; 5/03 and later 236.
func (s *Session) Echo(notify NotifyFunc, dnode uint8, data []byte) error {
	if len(data) == 0 {
		return codeErr(InvalidParameter, "number of bytes must not be zero")
	}
	if len(data) > 243 {
		return codeErr(InvalidParameter, "number of bytes too large")
	}
	cmd, err := s.cmdInit(0x06, 0x00, dnode, data, notify, replyEcho)
	if err != nil {
		return err
	}
	if !cmd.buf.Append(data) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling echo command")
	}
	cmd.bytes = len(data)
	return s.cmdSend(cmd)
}

// SetVariables sets an interface module's timeout cycles, maximum NAKs,
// and maximum ENQs in one command.
func (s *Session) SetVariables(notify NotifyFunc, dnode uint8, cycles, naks, enqs uint8) error {
	cmd, err := s.cmdInit(0x06, 0x02, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendByte(cycles) || !cmd.buf.AppendByte(naks) || !cmd.buf.AppendByte(enqs) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling set variables command")
	}
	return s.cmdSend(cmd)
}

// SetTimeout sets the maximum time an interface module waits for a
// message acknowledgement, in cycles of the module's internal clock.
func (s *Session) SetTimeout(notify NotifyFunc, dnode uint8, cycles uint8) error {
	cmd, err := s.cmdInit(0x06, 0x04, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendByte(cycles) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling set timeout command")
	}
	return s.cmdSend(cmd)
}

// SetNAKs sets the maximum NAKs an interface module accepts per message
// transmission.
func (s *Session) SetNAKs(notify NotifyFunc, dnode uint8, naks uint8) error {
	cmd, err := s.cmdInit(0x06, 0x05, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendByte(naks) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling set NAKs command")
	}
	return s.cmdSend(cmd)
}

// SetENQs sets the maximum ENQs an interface module issues per message
// transmission.
func (s *Session) SetENQs(notify NotifyFunc, dnode uint8, enqs uint8) error {
	cmd, err := s.cmdInit(0x06, 0x06, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendByte(enqs) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling set ENQs command")
	}
	return s.cmdSend(cmd)
}

// ReadLinkParam reads the DH-485 maximum solicit address parameter into
// *dst.
func (s *Session) ReadLinkParam(notify NotifyFunc, dnode uint8, dst *uint8) error {
	if dst == nil {
		return codeErr(InvalidParameter, "destination pointer cannot be nil")
	}
	cmd, err := s.cmdInit(0x06, 0x09, dnode, dst, notify, replyReadLinkParam)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendWord(0) || !cmd.buf.AppendByte(1) { // address, size
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling read link param command")
	}
	return s.cmdSend(cmd)
}

// SetLinkParam sets the DH-485 maximum solicit address parameter.
func (s *Session) SetLinkParam(notify NotifyFunc, dnode uint8, max uint8) error {
	cmd, err := s.cmdInit(0x06, 0x0A, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendWord(0) || !cmd.buf.AppendByte(1) || !cmd.buf.AppendByte(max) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling set link param command")
	}
	return s.cmdSend(cmd)
}

// ChangeModeMicroLogix1000 changes a MicroLogix 1000 processor's mode.
// Supported modes are ModeProgram and ModeRun.
func (s *Session) ChangeModeMicroLogix1000(notify NotifyFunc, dnode uint8, mode Mode) error {
	var val byte
	switch mode {
	case ModeProgram:
		val = 0x01
	case ModeRun:
		val = 0x02
	default:
		return codeErr(InvalidParameter, "command does not support selected processor mode")
	}
	return s.sendModeChange(notify, dnode, 0x3A, val)
}

// ChangeModeSLC500 changes a SLC processor's mode. For 5/03 and 5/04
// processors the keyswitch must be in the REM position.
func (s *Session) ChangeModeSLC500(notify NotifyFunc, dnode uint8, mode Mode) error {
	var val byte
	switch mode {
	case ModeProgram:
		val = 0x01
	case ModeRun:
		val = 0x06
	case ModeTestContinuous:
		val = 0x07
	case ModeTestSingle:
		val = 0x08
	case ModeTestDebug:
		val = 0x09
	default:
		return codeErr(InvalidParameter, "command does not support selected processor mode")
	}
	return s.sendModeChange(notify, dnode, 0x80, val)
}

// SetCPUMode sets a PLC-5 or MicroLogix processor's operating mode at the
// next I/O scan. The processor must be in remote mode. Supported modes
// are ModeProgram, ModeRemoteTest, and ModeRemoteRun.
func (s *Session) SetCPUMode(notify NotifyFunc, dnode uint8, mode Mode) error {
	var val byte
	switch mode {
	case ModeProgram:
		val = 0x00
	case ModeRemoteTest:
		val = 0x01
	case ModeRemoteRun:
		val = 0x02
	default:
		return codeErr(InvalidParameter, "command does not support selected processor mode")
	}
	return s.sendModeChange(notify, dnode, 0x3A, val)
}

func (s *Session) sendModeChange(notify NotifyFunc, dnode uint8, fnc, val byte) error {
	cmd, err := s.cmdInit(0x0F, fnc, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendByte(val) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling mode change command")
	}
	return s.cmdSend(cmd)
}

// ProtectedTypedLogicalRead2AddressFields reads elements from a SLC data
// file addressed by file and element number. The number of elements read
// is the length of value, which must be the slice type matching fileType.
func (s *Session) ProtectedTypedLogicalRead2AddressFields(notify NotifyFunc, dnode uint8, value Value, fileType FileType, file, element uint16) error {
	cmd, err := s.ptlInit(notify, dnode, value, 0xA1, fileType, file, element, 0)
	if err != nil {
		return err
	}
	return s.cmdSend(cmd)
}

// ProtectedTypedLogicalRead3AddressFields reads elements from a SLC data
// file addressed by file, element, and sub-element number. Sub-element
// access is not supported; subElement must be zero.
func (s *Session) ProtectedTypedLogicalRead3AddressFields(notify NotifyFunc, dnode uint8, value Value, fileType FileType, file, element, subElement uint16) error {
	if subElement != 0 {
		return codeErr(InvalidParameter, "nonzero subelement values not supported")
	}
	cmd, err := s.ptlInit(notify, dnode, value, 0xA2, fileType, file, element, subElement)
	if err != nil {
		return err
	}
	return s.cmdSend(cmd)
}

// ProtectedTypedLogicalWrite2AddressFields writes the elements of value
// to a SLC data file addressed by file and element number.
func (s *Session) ProtectedTypedLogicalWrite2AddressFields(notify NotifyFunc, dnode uint8, value Value, fileType FileType, file, element uint16) error {
	cmd, err := s.ptlInit(notify, dnode, value, 0xA9, fileType, file, element, 0)
	if err != nil {
		return err
	}
	if err := encodeArray(cmd.buf, fileType, value); err != nil {
		s.pool.release(cmd)
		return err
	}
	return s.cmdSend(cmd)
}

// ProtectedTypedLogicalWrite3AddressFields writes the elements of value
// to a SLC data file addressed by file, element, and sub-element number.
// Sub-element access is not supported; subElement must be zero.
func (s *Session) ProtectedTypedLogicalWrite3AddressFields(notify NotifyFunc, dnode uint8, value Value, fileType FileType, file, element, subElement uint16) error {
	if subElement != 0 {
		return codeErr(InvalidParameter, "nonzero subelement values not supported")
	}
	cmd, err := s.ptlInit(notify, dnode, value, 0xAA, fileType, file, element, subElement)
	if err != nil {
		return err
	}
	if err := encodeArray(cmd.buf, fileType, value); err != nil {
		s.pool.release(cmd)
		return err
	}
	return s.cmdSend(cmd)
}

// ProtectedTypedLogicalWriteWithMask writes bit data through a mask: only
// bit positions set in mask are modified in the destination words. The
// file type must be word shaped: integer, binary, or status.
func (s *Session) ProtectedTypedLogicalWriteWithMask(notify NotifyFunc, dnode uint8, value Value, mask uint16, fileType FileType, file, element, subElement uint16) error {
	switch fileType {
	case FileInteger, FileBinary, FileStatus:
	default:
		return codeErr(InvalidParameter, "file type not supported")
	}
	if subElement != 0 {
		return codeErr(InvalidParameter, "nonzero subelement values not supported")
	}
	cmd, err := s.ptlInit(notify, dnode, value, 0xAB, fileType, file, element, subElement)
	if err != nil {
		return err
	}
	if !cmd.buf.AppendWord(mask) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling masked write command")
	}
	if err := encodeArray(cmd.buf, fileType, value); err != nil {
		s.pool.release(cmd)
		return err
	}
	return s.cmdSend(cmd)
}

// ReadSLCFileInfo determines a SLC data file's type and size.
func (s *Session) ReadSLCFileInfo(notify NotifyFunc, dnode uint8, info *SLCFileInfo, fileNum uint8) error {
	if info == nil {
		return codeErr(InvalidParameter, "file info pointer cannot be nil")
	}
	cmd, err := s.cmdInit(0x0F, 0x94, dnode, info, notify, replyReadSLCFileInfo)
	if err != nil {
		return err
	}
	// Mask, major file type (0x80 for data table files), file number.
	if !cmd.buf.AppendByte(0x06) || !cmd.buf.AppendByte(0x80) || !cmd.buf.AppendByte(fileNum) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling read file info command")
	}
	return s.cmdSend(cmd)
}

// DisableForces disables I/O forcing. Forcing data remains intact but is
// ignored.
func (s *Session) DisableForces(notify NotifyFunc, dnode uint8) error {
	cmd, err := s.cmdInit(0x0F, 0x41, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	return s.cmdSend(cmd)
}

// BitWrite modifies specified bits in a single word. Bits in set are
// turned on, bits in reset turned off; the masks must not overlap.
func (s *Session) BitWrite(notify NotifyFunc, dnode uint8, addr Address, set, reset uint16) error {
	if set&reset != 0 {
		return codeErr(InvalidParameter, "bits must be mutually exclusive in masks")
	}
	cmd, err := s.cmdInit(0x0F, 0x02, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	if err := addr.encode(cmd.buf); err != nil {
		s.pool.release(cmd)
		return err
	}
	if !cmd.buf.AppendWord(set) || !cmd.buf.AppendWord(reset) {
		s.pool.release(cmd)
		return codeErr(BufferOverflow, "assembling bit write command")
	}
	return s.cmdSend(cmd)
}

// ReadModifyWrite sets or resets bits in data table words. Set i is the
// address addrs[i] with AND mask and[i] and OR mask or[i]: bits cleared
// in the AND mask are reset, bits set in the OR mask are set. The
// controller may modify a word between the read and the write back, so
// use this only on words the controller reads.
func (s *Session) ReadModifyWrite(notify NotifyFunc, dnode uint8, addrs []Address, and, or []uint16) error {
	if len(addrs) == 0 {
		return codeErr(InvalidParameter, "number of sets must be non-zero")
	}
	if len(and) != len(addrs) || len(or) != len(addrs) {
		return codeErr(InvalidParameter, "address, AND mask, and OR mask counts must match")
	}
	cmd, err := s.cmdInit(0x0F, 0x26, dnode, nil, notify, nil)
	if err != nil {
		return err
	}
	for i := range addrs {
		if err := addrs[i].encode(cmd.buf); err != nil {
			s.pool.release(cmd)
			return err
		}
		if !cmd.buf.AppendWord(and[i]) || !cmd.buf.AppendWord(or[i]) {
			s.pool.release(cmd)
			return codeErr(BufferOverflow, "assembling read-modify-write command")
		}
		if cmd.buf.Len()-7 > 243 {
			s.pool.release(cmd)
			return codeErr(InvalidParameter, "number of sets exceeded maximum command size")
		}
	}
	return s.cmdSend(cmd)
}

// ptlInit assembles the common body of the protected typed logical
// read/write family: byte count, file, file type, element, and for the
// three-field variants the sub-element.
func (s *Session) ptlInit(notify NotifyFunc, dnode uint8, value Value, fnc byte, fileType FileType, file, element, subElement uint16) (*slot, error) {
	elements := elementCount(value)
	if elements < 0 || !valueMatchesType(value, fileType) {
		return nil, codeErr(InvalidParameter, "file type not supported or data slice mismatched")
	}
	if elements == 0 {
		return nil, codeErr(InvalidParameter, "number of elements must be non-zero")
	}
	perElement := wireSize(fileType)
	bytes := perElement * elements
	if bytes > maxTypedTransfer {
		return nil, codeErr(InvalidParameter, "too many elements, data type allows %d elements max", maxTypedTransfer/perElement)
	}
	var reply replyFunc
	if fnc == 0xA1 || fnc == 0xA2 { // write functions have no reply data
		reply = replyProtectedTypedLogicalRead
	}
	cmd, err := s.cmdInit(0x0F, fnc, dnode, value, notify, reply)
	if err != nil {
		return nil, err
	}
	ok := cmd.buf.AppendByte(byte(bytes))
	ok = ok && encodeAddrLevel(cmd.buf, file)
	ftValue, _ := fileTypeCode(fileType)
	ok = ok && cmd.buf.AppendByte(ftValue)
	ok = ok && encodeAddrLevel(cmd.buf, element)
	// Only the three-field variants carry the sub-element.
	if fnc == 0xA2 || fnc == 0xAA || fnc == 0xAB {
		ok = ok && encodeAddrLevel(cmd.buf, subElement)
	}
	if !ok {
		s.pool.release(cmd)
		return nil, codeErr(BufferOverflow, "assembling typed logical command")
	}
	cmd.fileType = fileType
	cmd.bytes = bytes
	cmd.value = value
	return cmd, nil
}
