package websocket

import (
	"errors"
	"io"
)

// Protocol error types. A post-handshake frame error is connection-fatal:
// on a HyBi connection the handler answers with a 1002 close frame, and
// on any connection it closes the socket.
// Handshake errors never get a close frame — there is no WebSocket
// connection yet to send one on — they just close the raw TCP connection.

var (
	// ErrProtocolError is a generic framing violation.
	// RFC 6455 Section 7.4.1: status code 1002.
	ErrProtocolError = errors.New("websocket: protocol error")

	// ErrReservedBits indicates RSV1/RSV2/RSV3 bits are set.
	// RFC 6455 Section 5.2: reserved bits must be 0 (no extensions).
	ErrReservedBits = errors.New("websocket: reserved bits must be 0")

	// ErrInvalidOpcode indicates an unknown or reserved opcode.
	ErrInvalidOpcode = errors.New("websocket: invalid opcode")

	// ErrFragmentationUnsupported indicates fin=0 or opcode=continuation:
	// this bridge only relays single-frame messages.
	ErrFragmentationUnsupported = errors.New("websocket: fragmented messages are not supported")

	// ErrControlTooLarge indicates control frame payload > 125 bytes.
	ErrControlTooLarge = errors.New("websocket: control frame payload too large")

	// ErrMaskRequired indicates a client frame arrived without the mask
	// bit set. RFC 6455 Section 5.3: client-to-server frames MUST be
	// masked; this is always a ProtocolError, never tolerated.
	ErrMaskRequired = errors.New("websocket: client frames must be masked")

	// ErrOversizedLength indicates a 64-bit length field with its high
	// bit set, which RFC 6455 forbids.
	ErrOversizedLength = errors.New("websocket: payload length high bit set")

	// ErrNonBase64Byte indicates a byte outside [A-Za-z0-9+/=] was found
	// where the negotiated subprotocol requires Base64 payload.
	ErrNonBase64Byte = errors.New("websocket: non-Base64 byte in payload")

	// ErrHixieFraming indicates a Hixie frame missing its 0x00 header
	// byte, or other envelope malformation.
	ErrHixieFraming = errors.New("websocket: malformed hixie frame")

	// Handshake error types (RFC 6455 Section 4, and the Hixie drafts).

	// ErrInvalidRequestLine indicates the request line was not
	// "GET <path> HTTP/1.1".
	ErrInvalidRequestLine = errors.New("websocket: malformed request line")

	// ErrMissingUpgrade indicates a missing or invalid Upgrade header.
	ErrMissingUpgrade = errors.New("websocket: missing or invalid Upgrade header")

	// ErrMissingSecKey indicates a missing Sec-WebSocket-Key header
	// under HyBi.
	ErrMissingSecKey = errors.New("websocket: missing Sec-WebSocket-Key header")

	// ErrSubprotocolRejected indicates the client did not offer a
	// subprotocol this bridge supports ("base64" or "binary").
	ErrSubprotocolRejected = errors.New("websocket: no acceptable subprotocol offered")

	// ErrBadKeyFormat indicates Sec-WebSocket-Key1/Key2 had zero spaces
	// (draft rule: sum / spaces, spaces == 0 is a hard failure).
	ErrBadKeyFormat = errors.New("websocket: malformed Sec-WebSocket-Key")

	// ErrPortNotAllowed indicates the requested path's port is not in
	// the configured whitelist.
	ErrPortNotAllowed = errors.New("websocket: target port not allowed")

	// ErrSSLRequired indicates a plaintext connection arrived while
	// ListenerConfig.SSLOnly is set.
	ErrSSLRequired = errors.New("websocket: plaintext connections disallowed")

	// ErrOriginDenied indicates a caller-supplied CheckOrigin callback
	// rejected the Origin header.
	ErrOriginDenied = errors.New("websocket: origin denied")

	// ErrEmptyHandshake indicates the client closed the connection
	// before sending any bytes.
	ErrEmptyHandshake = errors.New("websocket: empty handshake")

	// ErrHandledInline indicates the request was fully answered during
	// negotiation itself (a Flash policy probe or the monitoring
	// short-circuit) and the connection should simply be closed — it is
	// not a failure.
	ErrHandledInline = errors.New("websocket: request handled inline")

	// Connection / relay error types.

	// ErrClosed indicates a relay pump's connection was closed by the
	// relay's own teardown (after the other pump exited) rather than by
	// the peer.
	ErrClosed = errors.New("websocket: connection closed")
)

// IsCloseError reports whether err represents an orderly close (a close
// frame relayed as io.EOF, or ErrClosed) rather than a genuine
// transport/protocol failure worth logging loudly.
func IsCloseError(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, io.EOF)
}
