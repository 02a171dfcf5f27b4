package websocket

import (
	"bytes"
	"crypto/md5" //nolint:gosec // MD5 challenge/response is mandated by the Hixie-76 draft
	"encoding/binary"
)

// DecodeHixie scans buf for complete "0x00 <base64> 0xFF" frames,
// decoding the Base64 payload between the sentinels. As with
// DecodeHyBi, the return value is (messages, consumed, err): bytes at
// buf[consumed:] are an incomplete trailing frame and are not an error.
//
// Grounded on the original websockify decode()/gen_md5 envelope
// (original_source/other/websocket.c) reworked into the pack's
// buffer-oriented restartable shape (pepnova's parseFrames).
func DecodeHixie(buf []byte) ([][]byte, int, error) {
	var messages [][]byte
	offset := 0

	for offset < len(buf) {
		if buf[offset] != 0x00 {
			return messages, offset, ErrHixieFraming
		}

		end := bytes.IndexByte(buf[offset+1:], 0xFF)
		if end < 0 {
			// Terminator not yet seen: need more data.
			break
		}

		payload := buf[offset+1 : offset+1+end]
		decoded, err := base64Decode(payload)
		if err != nil {
			return messages, offset, err
		}

		messages = append(messages, decoded)
		offset += 1 + end + 1
	}

	return messages, offset, nil
}

// EncodeHixie wraps payload as "0x00 <base64> 0xFF".
func EncodeHixie(payload []byte) []byte {
	encoded := base64Encode(payload)
	out := make([]byte, 0, len(encoded)+2)
	out = append(out, 0x00)
	out = append(out, encoded...)
	out = append(out, 0xFF)
	return out
}

// ParseHixieKey applies the Hixie-76 draft rule to a Sec-WebSocket-Key1
// or -Key2 header value: the integer is the decimal digits appearing
// anywhere in the value, divided by the count of space characters.
func ParseHixieKey(value string) (uint32, error) {
	var sum uint64
	var spaces uint64

	for _, ch := range value {
		switch {
		case ch >= '0' && ch <= '9':
			sum = sum*10 + uint64(ch-'0')
		case ch == ' ':
			spaces++
		}
	}

	if spaces == 0 {
		return 0, ErrBadKeyFormat
	}

	return uint32(sum / spaces), nil
}

// HixieChallengeResponse computes the Hixie-76 MD5 challenge response:
// MD5(be32(key1) || be32(key2) || key3), where key3 is the 8 raw bytes
// read from the request body immediately after the blank line
// terminating the headers.
//
// Grounded on original_source/wsproxy.c's calcresponse.
func HixieChallengeResponse(key1, key2 uint32, key3 [8]byte) [16]byte {
	var in [16]byte
	binary.BigEndian.PutUint32(in[0:4], key1)
	binary.BigEndian.PutUint32(in[4:8], key2)
	copy(in[8:16], key3[:])

	return md5.Sum(in[:]) //nolint:gosec // mandated by the Hixie-76 draft, not a security boundary
}
