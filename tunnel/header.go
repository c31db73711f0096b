// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package tunnel implements the wire codec for the Genvex "tunnel"
// peer-to-peer UDP protocol: legacy discovery frames, the regular 16-byte
// session header, TLV payloads and command buffers, and the checksum that
// terminates every DATA packet. All functions here are pure over byte
// buffers; nothing in this package touches a socket or a clock.
package tunnel

import "encoding/binary"

// DefaultPort is the UDP port the tunnel protocol listens on, both for
// discovery and for established sessions.
const DefaultPort uint16 = 5570

// Wildcard is the device id that selects every device during discovery.
const Wildcard = "*"

// Regular header packet types (offset 8 of a 16-byte header).
const (
	PacketConnect byte = 0x83 // U_CONNECT
	PacketData    byte = 0x16 // DATA
	PacketAlive   byte = 0x82 // U_ALIVE
)

// ProtocolVersion is the fixed version byte at header offset 9.
const ProtocolVersion byte = 0x02

// Regular header flag bits (offset 11 of a 16-byte header).
const (
	FlagResponse  byte = 0x01
	FlagException byte = 0x02
	FlagTag       byte = 0x40
	FlagNsiCo     byte = 0x80
)

// headerSize is the size in bytes of the regular (non-discovery) header.
const headerSize = 16

// Header is the 16-byte regular session header described in spec §4.1.
type Header struct {
	ClientID   uint32
	ServerID   uint32
	PacketType byte
	Version    byte
	Retransmit byte
	Flags      byte
	SeqID      uint16
	Length     uint16 // total length including this header
}

// buildHeader writes h to the first 16 bytes of a new buffer and returns it.
// Callers append payload bytes after the returned slice's length.
func buildHeader(h Header) []byte {
	b := make([]byte, headerSize)
	binary.BigEndian.PutUint32(b[0:4], h.ClientID)
	binary.BigEndian.PutUint32(b[4:8], h.ServerID)
	b[8] = h.PacketType
	b[9] = h.Version
	b[10] = h.Retransmit
	b[11] = h.Flags
	binary.BigEndian.PutUint16(b[12:14], h.SeqID)
	binary.BigEndian.PutUint16(b[14:16], h.Length)
	return b
}

// parseHeader reads the first 16 bytes of b as a Header. It returns an error
// if b is too short; buildHeader/parseHeader round-trip for any value
// (codec law, spec §8).
func parseHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, errProtocolf("short header: %d bytes", len(b))
	}
	return Header{
		ClientID:   binary.BigEndian.Uint32(b[0:4]),
		ServerID:   binary.BigEndian.Uint32(b[4:8]),
		PacketType: b[8],
		Version:    b[9],
		Retransmit: b[10],
		Flags:      b[11],
		SeqID:      binary.BigEndian.Uint16(b[12:14]),
		Length:     binary.BigEndian.Uint16(b[14:16]),
	}, nil
}
