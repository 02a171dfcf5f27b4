package websocket

import (
	"bufio"
	"crypto/tls"
	"net"
)

// NewTLSConfig builds the server-side TLS configuration shared
// read-only across every accepted connection, loading the certificate
// and key once at startup. TLS 1.2 is the floor; there is no
// client-certificate validation — this bridge authenticates at the
// application layer (Origin, path whitelist), not at the transport
// layer.
func NewTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// DetectTLS peeks the first byte of the connection, without consuming
// it, to tell a TLS record apart from plaintext HTTP. A TLS record
// opens with content type 0x16 (handshake); an SSLv2 ClientHello
// (still sent by some old clients the original websockify had to
// tolerate) opens with the high bit of its record length set, 0x80.
//
// Grounded on wsproxy.c's do_handshake, which peeks this same byte
// before deciding whether to call SSL_accept.
func DetectTLS(br *bufio.Reader) (bool, error) {
	peek, err := br.Peek(1)
	if len(peek) == 0 {
		if err != nil {
			return false, ErrEmptyHandshake
		}
		return false, nil
	}
	return peek[0] == 0x16 || peek[0] == 0x80, nil
}

// bufConn adapts a net.Conn plus a bufio.Reader already wrapping it
// back into a net.Conn whose Read drains the reader's internal buffer
// first. DetectTLS's Peek does not consume bytes from the connection,
// but it does pull them into br's internal buffer; AcceptTLS needs
// those same bytes replayed to crypto/tls's handshake reader, so the
// raw conn cannot be handed to tls.Server directly.
type bufConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// AcceptTLS wraps conn in a server-side TLS connection and performs the
// handshake immediately, so a malformed ClientHello is reported here
// rather than surfacing later as a confusing read error. br must be the
// same reader DetectTLS peeked from, so buffered handshake bytes are
// not lost.
func AcceptTLS(conn net.Conn, br *bufio.Reader, cfg *tls.Config) (net.Conn, error) {
	tlsConn := tls.Server(&bufConn{Conn: conn, r: br}, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}
