// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "encoding/binary"

// Command tags, carried in the 4th byte of the [0x00 0x00 0x00 cmd] command
// buffer prefix (spec §4.1).
const (
	cmdPing             byte = 0x11
	cmdDatapointRead    byte = 0x2D
	cmdSetpointRead     byte = 0x2A
	cmdSetpointWrite    byte = 0x2B
	listTerminator      byte = 0x01
	pingBody                 = "ping"
)

// RegisterAddr pairs an object id byte with the register's numeric address,
// as sent positionally in a read-list request.
type RegisterAddr struct {
	Obj     byte
	Address uint32
}

// SetpointWrite is one entry of a CMD_SETPOINT_WRITELIST request.
type SetpointWrite struct {
	ID    byte
	Value int32
	Param uint16
}

func commandHeader(cmd byte) []byte {
	return []byte{0x00, 0x00, 0x00, cmd}
}

// BuildPingCommand builds a CMD_PING command buffer.
func BuildPingCommand() []byte {
	b := commandHeader(cmdPing)
	return append(b, []byte(pingBody)...)
}

// BuildDatapointReadCommand builds a CMD_DATAPOINT_READLIST command buffer:
// count:2, then count entries of [obj:1][address:4 big-endian], terminated
// by one byte 0x01. Addresses are truncated to 32 bits.
func BuildDatapointReadCommand(regs []RegisterAddr) []byte {
	b := commandHeader(cmdDatapointRead)
	b = binary.BigEndian.AppendUint16(b, uint16(len(regs)))
	for _, r := range regs {
		b = append(b, r.Obj)
		b = binary.BigEndian.AppendUint32(b, r.Address)
	}
	return append(b, listTerminator)
}

// BuildSetpointReadCommand builds a CMD_SETPOINT_READLIST command buffer:
// same shape as the datapoint read, but each entry's address is 16 bits.
func BuildSetpointReadCommand(regs []RegisterAddr) []byte {
	b := commandHeader(cmdSetpointRead)
	b = binary.BigEndian.AppendUint16(b, uint16(len(regs)))
	for _, r := range regs {
		b = append(b, r.Obj)
		b = binary.BigEndian.AppendUint16(b, uint16(r.Address))
	}
	return append(b, listTerminator)
}

// BuildSetpointWriteCommand builds a CMD_SETPOINT_WRITELIST command buffer:
// count:2, then count entries of [id:1][value:4 big-endian][param:2
// big-endian], terminated by 0x01.
func BuildSetpointWriteCommand(writes []SetpointWrite) []byte {
	b := commandHeader(cmdSetpointWrite)
	b = binary.BigEndian.AppendUint16(b, uint16(len(writes)))
	for _, w := range writes {
		b = append(b, w.ID)
		b = binary.BigEndian.AppendUint32(b, uint32(w.Value))
		b = binary.BigEndian.AppendUint16(b, w.Param)
	}
	return append(b, listTerminator)
}

// ParseDatapointValues parses the command bytes of a datapoint read
// response: count:2 followed by count signed 16-bit big-endian values, in
// request order. If the response carries fewer values than requested the
// returned slice is simply shorter; the caller re-associates by index
// against the key list it originally sent (spec §4.1, §8 positional demux).
func ParseDatapointValues(cmd []byte) ([]int16, error) {
	if len(cmd) < 2 {
		return nil, errProtocolf("short datapoint response: %d bytes", len(cmd))
	}
	count := binary.BigEndian.Uint16(cmd[0:2])
	cmd = cmd[2:]
	out := make([]int16, 0, count)
	for i := 0; i < int(count) && len(cmd) >= 2; i++ {
		out = append(out, int16(binary.BigEndian.Uint16(cmd[0:2])))
		cmd = cmd[2:]
	}
	return out, nil
}

// ParseSetpointValues parses the command bytes of a setpoint read response:
// skip:1, count:2, then count unsigned 16-bit big-endian values, in request
// order.
func ParseSetpointValues(cmd []byte) ([]uint16, error) {
	if len(cmd) < 3 {
		return nil, errProtocolf("short setpoint response: %d bytes", len(cmd))
	}
	count := binary.BigEndian.Uint16(cmd[1:3])
	cmd = cmd[3:]
	out := make([]uint16, 0, count)
	for i := 0; i < int(count) && len(cmd) >= 2; i++ {
		out = append(out, binary.BigEndian.Uint16(cmd[0:2]))
		cmd = cmd[2:]
	}
	return out, nil
}

// ModelInfo is the device/model identification extracted from the first
// ping response issued right after session establishment.
type ModelInfo struct {
	DeviceNumber      uint32
	DeviceModel       uint32
	SlaveDeviceNumber uint32
	SlaveDeviceModel  uint32
}

// ParsePingResponse extracts the four model-info fields at byte offsets 0,
// 4, 12, 16 of the command bytes, defaulting any field the buffer is too
// short to cover to 0.
func ParsePingResponse(cmd []byte) ModelInfo {
	field := func(offset int) uint32 {
		if offset+4 > len(cmd) {
			return 0
		}
		return binary.BigEndian.Uint32(cmd[offset : offset+4])
	}
	return ModelInfo{
		DeviceNumber:      field(0),
		DeviceModel:       field(4),
		SlaveDeviceNumber: field(12),
		SlaveDeviceModel:  field(16),
	}
}
