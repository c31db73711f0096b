// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "encoding/binary"

// Legacy discovery header: a 4-byte big-endian type word followed by 8 zero
// bytes (spec §4.1).
const (
	discoveryTypeRequest  uint32 = 0x00000001
	discoveryResponseFlag uint32 = 0x00800001

	legacyHeaderSize  = 12
	discoveryIDOffset = 19 // offset of the null-terminated device id in a reply
)

// BuildDiscoveryPacket builds a discovery request frame for deviceID (use
// Wildcard to discover every device on the segment).
func BuildDiscoveryPacket(deviceID string) []byte {
	b := make([]byte, legacyHeaderSize, legacyHeaderSize+len(deviceID)+1)
	binary.BigEndian.PutUint32(b[0:4], discoveryTypeRequest)
	b = append(b, []byte(deviceID)...)
	b = append(b, 0)
	return b
}

// DiscoveryReply is one parsed discovery response.
type DiscoveryReply struct {
	DeviceID string
}

// ParseDiscoveryReply parses a discovery response frame. It returns
// ErrProtocol if the frame is too short, not a response, or carries an empty
// device id. A device id that runs to the end of the frame without a null
// byte is accepted as is.
func ParseDiscoveryReply(b []byte) (DiscoveryReply, error) {
	if len(b) < discoveryIDOffset+1 {
		return DiscoveryReply{}, errProtocolf("short discovery reply: %d bytes", len(b))
	}
	typ := binary.BigEndian.Uint32(b[0:4])
	if typ != discoveryResponseFlag {
		return DiscoveryReply{}, errProtocolf("not a discovery response: type=%#x", typ)
	}
	end := discoveryIDOffset
	for end < len(b) && b[end] != 0 {
		end++
	}
	if end == discoveryIDOffset {
		return DiscoveryReply{}, errProtocolf("empty device id in discovery reply")
	}
	return DiscoveryReply{DeviceID: string(b[discoveryIDOffset:end])}, nil
}
