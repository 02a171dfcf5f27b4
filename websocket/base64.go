package websocket

import (
	"bytes"
	"encoding/base64"
)

// base64Encode returns the canonical RFC 4648 Base64 encoding of src,
// with "=" padding. Output length is always 4*ceil(n/3).
//
// Used by the Hixie frame envelope and by the HyBi "base64"
// subprotocol, where message payloads carry arbitrary binary bytes as
// ASCII text.
func base64Encode(src []byte) []byte {
	dst := make([]byte, base64.StdEncoding.EncodedLen(len(src)))
	base64.StdEncoding.Encode(dst, src)
	return dst
}

// base64Decode decodes Base64 text with "=" padding, rejecting any byte
// outside the alphabet [A-Za-z0-9+/=] with ErrNonBase64Byte. Callers
// always present complete blocks; there is no streaming variant.
func base64Decode(src []byte) ([]byte, error) {
	// StdEncoding silently skips CR and LF, so reject them explicitly.
	if bytes.ContainsAny(src, "\r\n") {
		return nil, ErrNonBase64Byte
	}
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(dst, src)
	if err != nil {
		return nil, ErrNonBase64Byte
	}
	return dst[:n], nil
}
