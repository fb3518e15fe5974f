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
	"bytes"

	"github.com/edgeo-scada/df1/wire"
)

// replyEcho verifies the echoed data matches what was sent.
func replyEcho(reply *wire.Buf, cmd *slot) error {
	sent := cmd.udata.([]byte)
	data := reply.Bytes()[6:]
	if len(data) != cmd.bytes {
		return codeErr(ReplyError, "number of received bytes doesn't match number of bytes sent")
	}
	if !bytes.Equal(sent, data) {
		return codeErr(ReplyError, "received data mismatch")
	}
	return nil
}

// replyProtectedTypedLogicalRead decodes the read data into the caller's
// slice.
func replyProtectedTypedLogicalRead(reply *wire.Buf, cmd *slot) error {
	if msgDataLen(reply.Bytes()) != cmd.bytes {
		return codeErr(ReplyError, "received unexpected amount of data")
	}
	return decodeArray(reply, cmd.fileType, cmd.value)
}

// replyReadSLCFileInfo parses a file's size, element count, and type.
func replyReadSLCFileInfo(reply *wire.Buf, cmd *slot) error {
	info := cmd.udata.(*SLCFileInfo)
	if msgDataLen(reply.Bytes()) != 8 {
		return codeErr(ReplyError, "received unexpected amount of data")
	}
	b, _ := reply.GetLong()
	e, _ := reply.GetWord()
	info.Bytes = int(b)
	info.Elements = int(e)
	reply.GetByte() // reserved
	code, _ := reply.GetByte()
	ft, ok := fileTypeFromCode(code)
	if !ok {
		return codeErr(ReplyError, "received unknown file type 0x%02X", code)
	}
	info.Type = ft
	return nil
}

// replyReadLinkParam stores the single returned parameter byte.
func replyReadLinkParam(reply *wire.Buf, cmd *slot) error {
	if msgDataLen(reply.Bytes()) != 1 {
		return codeErr(ReplyError, "received unexpected amount of data")
	}
	b, _ := reply.GetByte()
	*cmd.udata.(*uint8) = b
	return nil
}
