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

import "fmt"

// stsCheck evaluates the STS byte of a reply. A nil return means success;
// otherwise the error describes the local or remote failure. The
// diagnoser never fails: unmapped codes render as text.
func stsCheck(msg []byte) error {
	sts := msgSTS(msg)
	if sts == 0 {
		return nil
	}
	var str string
	remote := false
	switch sts {
	// Local STS error codes.
	case 0x01:
		str = "destination node is out of buffer space"
	case 0x02:
		str = "cannot guarantee delivery, link layer"
	case 0x03:
		str = "duplicate token holder detected"
	case 0x04:
		str = "local port is disconnected"
	case 0x05:
		str = "application layer timed out waiting for response"
	case 0x06:
		str = "duplicate node detected"
	case 0x07:
		str = "station is offline"
	case 0x08:
		str = "hardware fault"
	// Remote STS error codes.
	case 0x10:
		str = "illegal command or format"
		remote = true
	case 0x20:
		str = "host has a problem and will not communicate"
		remote = true
	case 0x30:
		str = "remote node host is missing, disconnected, or shut down"
		remote = true
	case 0x40:
		str = "host could not complete function due to hardware fault"
		remote = true
	case 0x50:
		str = "addressing problem or memory protect rungs"
		remote = true
	case 0x60:
		str = "function not allowed due to command protection selection"
		remote = true
	case 0x70:
		str = "processor is in program mode"
		remote = true
	case 0x80:
		str = "compatibility mode file missing or communication zone problem"
		remote = true
	case 0x90:
		str = "remote node cannot buffer command"
		remote = true
	case 0xA0, 0xC0:
		str = "wait ACK"
		remote = true
	case 0xB0:
		str = "remote node problem due to download"
		remote = true
	case 0xF0: // EXT STS present
		str = extSTS(msg)
		remote = true
	default:
		str = fmt.Sprintf("undefined STS 0x%02X", sts)
	}
	side := "local"
	if remote {
		side = "remote"
	}
	return codeErr(ReplyError, "%s node %d error: %s", side, msgSrc(msg), str)
}

// extSTS describes the extended status byte. Its meaning depends on the
// originating command opcode.
func extSTS(msg []byte) string {
	if len(msg) < 7 {
		return "EXT STS byte missing from reply"
	}
	cmd := msgCmd(msg)
	es := msgExtSTS(msg)
	switch cmd {
	case 0x0F: // DH/DH+ error codes
		return extSTSDataTable(msg, es)
	case 0x0B, 0x1A, 0x1B: // DH-485 error codes
		return extSTS485(msg, es, cmd)
	default: // other commands shouldn't return EXT STS values
		return fmt.Sprintf("CMD 0x%02X returned unexpected EXT STS 0x%02X", cmd, es)
	}
}

func extSTSDataTable(msg []byte, es byte) string {
	switch es {
	case 0x01:
		return "a field has an illegal value"
	case 0x02:
		return "less levels specified in address than minimum for any address"
	case 0x03:
		return "more levels specified in address than system supports"
	case 0x04:
		return "symbol not found"
	case 0x05:
		return "symbol is of improper format"
	case 0x06:
		return "address doesn't point to something usable"
	case 0x07:
		return "file is wrong size"
	case 0x08:
		return "cannot complete request, situation has changed since start of the command"
	case 0x09:
		return "data or file is too large"
	case 0x0A:
		return "transaction size plus word address is too large"
	case 0x0B:
		return "access denied, improper privilege"
	case 0x0C:
		return "condition cannot be generated, resource is not available"
	case 0x0D:
		return "condition already exists, resource is already available"
	case 0x0E:
		return "command cannot be executed"
	case 0x0F:
		return "histogram overflow"
	case 0x10:
		return "no access"
	case 0x11:
		return "illegal data type"
	case 0x12:
		return "invalid parameter or invalid data"
	case 0x13:
		return "address reference exists to deleted area"
	case 0x14:
		return "command execution failure for unknown reason"
	case 0x15:
		return "data conversion error"
	case 0x16:
		return "scanner not able to communicate with 1771 rack adapter"
	case 0x17:
		return "type mismatch"
	case 0x18:
		return "1771 module response was not valid"
	case 0x19:
		return "duplicate label"
	case 0x1A:
		return extSTSFileOpen(msg)
	case 0x1B:
		return extSTSProgramOwner(msg)
	case 0x1E:
		return "data table element protection violation"
	case 0x1F:
		return "temporary internal problem"
	case 0x22:
		return "remote rack fault"
	case 0x23:
		return "timeout"
	case 0x24:
		return "unknown error"
	default:
		return fmt.Sprintf("Undefined EXT STS 0x%02X for CMD 0x0F", es)
	}
}

func extSTS485(msg []byte, es, cmd byte) string {
	switch es {
	case 0x07:
		return "insufficient memory module size"
	case 0x0B:
		return "access denied, privilege violation"
	case 0x0C:
		return "resource not available or cannot do"
	case 0x0E:
		return "command cannot be executed"
	case 0x12:
		return "invalid parameter"
	case 0x14:
		return "failure during processing"
	case 0x19:
		return "duplicate label"
	case 0x1A:
		return extSTSFileOpen(msg)
	case 0x1B:
		return extSTSProgramOwner(msg)
	default:
		return fmt.Sprintf("Undefined EXT STS 0x%02X for CMD 0x%02X", es, cmd)
	}
}

func extSTSFileOpen(msg []byte) string {
	if on, ok := msgOwnerNode(msg); ok {
		return fmt.Sprintf("file is open; node %d owns it (for SLC 5/05 node 256 indicates the Ethernet port)", on)
	}
	return "file is open; another node owns it"
}

func extSTSProgramOwner(msg []byte) string {
	if on, ok := msgOwnerNode(msg); ok {
		return fmt.Sprintf("node %d is the program owner (for SLC 5/05 node 256 indicates the Ethernet port)", on)
	}
	return "another node is the program owner"
}
