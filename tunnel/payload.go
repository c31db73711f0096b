// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package tunnel

import "encoding/binary"

// Payload type tags (byte 0 of a TLV payload block).
const (
	payloadIPX   byte = 0x35
	payloadCPID  byte = 0x3F
	payloadCrypt byte = 0x36
)

// cryptoCodeCleartext is the only supported CRYPT payload crypto code. The
// protocol reserves room for encrypted payloads but no firmware in the wild
// uses anything but cleartext on the LAN; anything else is ErrProtocol.
const cryptoCodeCleartext uint16 = 0x000A

// emailIDType selects "email" as the CP_ID identifier kind.
const emailIDType byte = 0x01

// payloadHeaderSize is the [type:1][flags:1][len:2] prefix common to every
// TLV payload block. len counts these 4 bytes plus the body.
const payloadHeaderSize = 4

// buildPayload wraps body in a TLV block of the given type with flags 0.
func buildPayload(typ byte, body []byte) []byte {
	b := make([]byte, payloadHeaderSize, payloadHeaderSize+len(body))
	b[0] = typ
	b[1] = 0
	binary.BigEndian.PutUint16(b[2:4], uint16(payloadHeaderSize+len(body)))
	return append(b, body...)
}

// buildIPXPayload builds the fixed 17-byte IPX payload (4-byte TLV prefix
// plus 13-byte body): all zero except a trailing 0x80 signalling
// rendezvous-disabled.
func buildIPXPayload() []byte {
	body := make([]byte, 17-payloadHeaderSize)
	body[len(body)-1] = 0x80
	return buildPayload(payloadIPX, body)
}

// buildCPIDPayload builds the CP_ID payload carrying the client's email.
func buildCPIDPayload(email string) []byte {
	body := make([]byte, 0, 1+len(email))
	body = append(body, emailIDType)
	body = append(body, []byte(email)...)
	return buildPayload(payloadCPID, body)
}

// buildCryptPayload wraps a command buffer in a cleartext CRYPT payload:
// [cryptoCode:2][command bytes][0x02].
func buildCryptPayload(command []byte) []byte {
	body := make([]byte, 2, 2+len(command)+1)
	binary.BigEndian.PutUint16(body[0:2], cryptoCodeCleartext)
	body = append(body, command...)
	body = append(body, 0x02)
	return buildPayload(payloadCrypt, body)
}

// parsePayloadHeader reads the [type:1][flags:1][len:2] prefix at b[0:4].
func parsePayloadHeader(b []byte) (typ byte, length uint16, err error) {
	if len(b) < payloadHeaderSize {
		return 0, 0, errProtocolf("short payload header: %d bytes", len(b))
	}
	return b[0], binary.BigEndian.Uint16(b[2:4]), nil
}

// parseCryptPayload extracts the command bytes from a CRYPT payload whose
// [type:1][flags:1][len:2] prefix starts at offset in b. payloadLen is the
// declared length (header+body, i.e. already measured from offset), so the
// block ends at offset+payloadLen; the trailing terminator byte is stripped
// so the returned slice round-trips exactly against the command buffer
// BuildDataFrame was given. A truncated packet clamps to len(b) rather than
// trusting payloadLen outright (spec §4.1, §9).
func parseCryptPayload(b []byte, offset int, payloadLen int) ([]byte, error) {
	typ, length, err := parsePayloadHeader(b[offset:])
	if err != nil {
		return nil, err
	}
	if typ != payloadCrypt {
		return nil, errProtocolf("expected CRYPT payload, got type=%#x", typ)
	}
	if int(length) < payloadHeaderSize+2 {
		return nil, errProtocolf("CRYPT payload too short: declared len=%d", length)
	}
	codeOffset := offset + payloadHeaderSize
	if codeOffset+2 > len(b) {
		return nil, errProtocolf("truncated CRYPT crypto code at offset %d", codeOffset)
	}
	cryptoCode := binary.BigEndian.Uint16(b[codeOffset : codeOffset+2])
	if cryptoCode != cryptoCodeCleartext {
		return nil, errProtocolf("unsupported crypto code %#x", cryptoCode)
	}

	start := offset + payloadHeaderSize + 2
	end := offset + payloadLen - 1 // -1 drops the trailing terminator byte
	if end > len(b) {
		end = len(b)
	}
	if start > end {
		return nil, errProtocolf("CRYPT payload bounds invalid: start=%d end=%d", start, end)
	}
	return b[start:end], nil
}
