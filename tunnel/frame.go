// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "encoding/binary"

// connectOKStatus is the 32-bit status value (bytes 20-23 of a U_CONNECT
// response) that means the session was accepted.
const connectOKStatus uint32 = 0x00000001

// keepAliveTag is the 2-byte frame-control tag inserted between the header
// and the first payload on TAG-flagged (keep-alive) DATA packets. Those
// bytes are included in the declared length and the checksum.
var keepAliveTag = [2]byte{0x00, 0x03}

// BuildConnectFrame builds the U_CONNECT request: header (serverId=0,
// seq=0) followed by the IPX payload then the CP_ID payload carrying email.
// No checksum.
func BuildConnectFrame(clientID uint32, email string) []byte {
	ipx := buildIPXPayload()
	cpid := buildCPIDPayload(email)

	h := Header{
		ClientID:   clientID,
		ServerID:   0,
		PacketType: PacketConnect,
		Version:    ProtocolVersion,
		Flags:      0,
		SeqID:      0,
		Length:     uint16(headerSize + len(ipx) + len(cpid)),
	}
	b := buildHeader(h)
	b = append(b, ipx...)
	b = append(b, cpid...)
	return b
}

// ConnectResponse is the result of a successful U_CONNECT handshake.
type ConnectResponse struct {
	ServerID uint32
}

// ParseConnectResponse validates and parses a U_CONNECT response: type must
// be PacketConnect with FlagResponse set and length >= 28; bytes 20-23 carry
// the status (must equal connectOKStatus), bytes 24-27 the server nonce.
func ParseConnectResponse(b []byte) (ConnectResponse, error) {
	h, err := parseHeader(b)
	if err != nil {
		return ConnectResponse{}, err
	}
	if h.PacketType != PacketConnect || h.Flags&FlagResponse == 0 {
		return ConnectResponse{}, errProtocolf("not a U_CONNECT response: type=%#x flags=%#x", h.PacketType, h.Flags)
	}
	if h.Length < 28 {
		return ConnectResponse{}, errProtocolf("U_CONNECT response too short: length=%d", h.Length)
	}
	if len(b) < 28 {
		return ConnectResponse{}, errProtocolf("U_CONNECT response truncated: %d bytes", len(b))
	}
	status := binary.BigEndian.Uint32(b[20:24])
	if status != connectOKStatus {
		return ConnectResponse{}, errProtocolf("U_CONNECT rejected: status=%#x", status)
	}
	return ConnectResponse{ServerID: binary.BigEndian.Uint32(b[24:28])}, nil
}

// BuildDataFrame builds a DATA packet carrying command wrapped in a CRYPT
// payload, terminated by a checksum. When keepAlive is true the 2-byte TAG
// frame-control prefix is inserted between the header and the payload and
// FlagTag is set (spec §4.1).
func BuildDataFrame(clientID, serverID uint32, seqID uint16, command []byte, keepAlive bool) []byte {
	crypt := buildCryptPayload(command)

	flags := byte(0)
	extra := 0
	if keepAlive {
		flags |= FlagTag
		extra = len(keepAliveTag)
	}

	h := Header{
		ClientID:   clientID,
		ServerID:   serverID,
		PacketType: PacketData,
		Version:    ProtocolVersion,
		Flags:      flags,
		SeqID:      seqID,
		// +2 accounts for the trailing checksum, included in the declared length.
		Length: uint16(headerSize + extra + len(crypt) + 2),
	}
	b := buildHeader(h)
	if keepAlive {
		b = append(b, keepAliveTag[:]...)
	}
	b = append(b, crypt...)
	return appendChecksum(b)
}

// DataResponse is the demultiplexed result of parsing a DATA packet.
type DataResponse struct {
	SeqID   uint16
	Command []byte
}

// ParseDataFrame locates the CRYPT payload of a DATA packet (at offset 16,
// or 18 if FlagTag is set), extracts its command bytes, and returns them
// together with the packet's sequence id. The checksum is not re-verified
// here; callers that care call VerifyChecksum first.
func ParseDataFrame(b []byte) (DataResponse, error) {
	h, err := parseHeader(b)
	if err != nil {
		return DataResponse{}, err
	}
	if h.PacketType != PacketData {
		return DataResponse{}, errProtocolf("not a DATA packet: type=%#x", h.PacketType)
	}

	offset := headerSize
	if h.Flags&FlagTag != 0 {
		offset += len(keepAliveTag)
	}
	if offset >= len(b) {
		return DataResponse{}, errProtocolf("DATA packet too short for payload at offset %d", offset)
	}

	_, payloadLen, err := parsePayloadHeader(b[offset:])
	if err != nil {
		return DataResponse{}, err
	}
	cmd, err := parseCryptPayload(b, offset, int(payloadLen))
	if err != nil {
		return DataResponse{}, err
	}
	return DataResponse{SeqID: h.SeqID, Command: cmd}, nil
}

// VerifyChecksum reports whether a full DATA packet's trailing checksum
// matches the preceding bytes.
func VerifyChecksum(b []byte) bool { return verifyChecksum(b) }
