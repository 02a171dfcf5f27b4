package websocket

// Version identifies which WebSocket draft a connection negotiated.
// Decided once during the handshake (C3) and then fixed for the life
// of the connection; it selects which frame codec the relay (C5) uses.
type Version int

const (
	// VersionHixie75 is the original 2010 draft: no challenge/response,
	// no documented response body.
	VersionHixie75 Version = iota

	// VersionHixie76 adds the three-key MD5 challenge/response.
	VersionHixie76

	// VersionHyBi is RFC 6455: SHA-1+GUID accept token, masked client
	// frames, variable-length framing.
	VersionHyBi
)

// String returns a short, log-friendly name for the version.
func (v Version) String() string {
	switch v {
	case VersionHixie75:
		return "hixie75"
	case VersionHixie76:
		return "hixie76"
	case VersionHyBi:
		return "hybi"
	default:
		return "unknown"
	}
}

// Subprotocol identifies the application-level payload convention
// negotiated for a connection. Binary is only valid with VersionHyBi;
// Hixie connections are always Base64 (Hixie has no binary frame type).
type Subprotocol int

const (
	// SubprotocolBase64 carries arbitrary binary bytes as ASCII Base64
	// text. Required for Hixie, optional for HyBi.
	SubprotocolBase64 Subprotocol = iota

	// SubprotocolBinary carries binary payloads directly in HyBi binary
	// frames. Only valid with VersionHyBi.
	SubprotocolBinary
)

// String returns the wire name used in Sec-WebSocket-Protocol.
func (s Subprotocol) String() string {
	switch s {
	case SubprotocolBase64:
		return "base64"
	case SubprotocolBinary:
		return "binary"
	default:
		return "unknown"
	}
}
