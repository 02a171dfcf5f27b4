package websocket

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// readChunk is the buffer size for each Read off either side of the
// relay; also the initial capacity of a pump's pending decode buffer.
const readChunk = 64 * 1024

// clientWriter serializes frame writes to the client connection: the
// client->target pump answers pings and close frames while the
// target->client pump is concurrently writing data frames, and
// bufio.Writer is not safe for concurrent use.
type clientWriter struct {
	mu sync.Mutex
	bw *bufio.Writer
}

func (w *clientWriter) writeHyBi(opcode byte, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(EncodeHyBi(opcode, payload)); err != nil {
		return err
	}
	return w.bw.Flush()
}

func (w *clientWriter) writeHixie(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(EncodeHixie(payload)); err != nil {
		return err
	}
	return w.bw.Flush()
}

// Relay drives bytes bidirectionally between the negotiated client
// connection (through sess) and target until either side closes,
// errors, or ctx is canceled. It returns the error of the pump that
// exits first, unless that was an orderly close (nil, io.EOF or
// ErrClosed), in which case the other pump's error is returned; a
// context cancellation is reported as io.EOF. An orderly close therefore
// comes back as io.EOF or ErrClosed, both recognized by IsCloseError.
//
// Grounded in the pack's novnc-proxy-websocket.go: two goroutines per
// connection, a buffered two-slot error channel, and a clientWriter
// mutex in place of a manual select()/poll() readiness loop — the
// idiomatic Go replacement for a single-threaded event loop.
func Relay(ctx context.Context, sess *Session, target net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cw := &clientWriter{bw: sess.Writer}
	errCh := make(chan error, 2)

	go func() { errCh <- pumpClientToTarget(ctx, sess, target, cw) }()
	go func() { errCh <- pumpTargetToClient(ctx, target, cw, sess.Version, sess.Subprotocol) }()

	first := <-errCh
	cancel()
	_ = target.Close()
	// ctx cancellation alone never interrupts a blocking net.Conn.Read,
	// so whichever pump is still parked in sess.Reader.Read (or its own
	// target.Read) needs its connection closed out from under it to
	// ever return; otherwise the first pump's exit leaves the second one
	// blocked forever.
	if sess.Conn != nil {
		_ = sess.Conn.Close()
	}

	second := <-errCh
	if first == nil || errors.Is(first, io.EOF) || errors.Is(first, ErrClosed) {
		first = second
	}
	if errors.Is(first, context.Canceled) {
		first = io.EOF
	}
	return first
}

// pumpClientToTarget reads WebSocket frames from the client, decodes
// them per sess.Version/Subprotocol, and writes the decoded payload to
// target. Ping frames are answered with a pong carrying the same
// payload (Open Question (a): interoperability over strict silence);
// a close frame is echoed and ends the pump with io.EOF.
func pumpClientToTarget(ctx context.Context, sess *Session, target net.Conn, cw *clientWriter) error {
	buf := make([]byte, 0, readChunk)
	tmp := make([]byte, readChunk)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch sess.Version {
		case VersionHyBi:
			frames, consumed, err := DecodeHyBi(buf)
			if err != nil {
				_ = cw.writeHyBi(opcodeClose, encodeCloseBody(CloseProtocolError))
				return err
			}
			buf = consumeBuf(buf, consumed)

			for _, f := range frames {
				switch f.Opcode {
				case opcodeText, opcodeBinary:
					payload := f.Payload
					if sess.Subprotocol == SubprotocolBase64 {
						payload, err = base64Decode(payload)
						if err != nil {
							_ = cw.writeHyBi(opcodeClose, encodeCloseBody(CloseProtocolError))
							return err
						}
					}
					if len(payload) > 0 {
						if _, err := target.Write(payload); err != nil {
							return err
						}
					}
				case opcodePing:
					if err := cw.writeHyBi(opcodePong, f.Payload); err != nil {
						return err
					}
				case opcodePong:
					// Unsolicited pong: nothing to do.
				case opcodeClose:
					_ = cw.writeHyBi(opcodeClose, f.Payload)
					return io.EOF
				}
			}
		default: // VersionHixie75, VersionHixie76
			messages, consumed, err := DecodeHixie(buf)
			if err != nil {
				return err
			}
			buf = consumeBuf(buf, consumed)

			for _, payload := range messages {
				if len(payload) == 0 {
					continue
				}
				if _, err := target.Write(payload); err != nil {
					return err
				}
			}
		}

		n, err := sess.Reader.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				// The other pump's exit already tore down this
				// connection (see Relay); that is an orderly shutdown,
				// not a transport failure.
				return ErrClosed
			}
			return err
		}
	}
}

// pumpTargetToClient reads raw bytes from target and re-encodes them as
// WebSocket frames (or Hixie envelopes) written to the client. Each
// Read is forwarded as its own frame rather than aggregated, matching
// the relay's one-frame-per-arrival policy used throughout this
// bridge.
func pumpTargetToClient(ctx context.Context, target net.Conn, cw *clientWriter, version Version, subprotocol Subprotocol) error {
	buf := make([]byte, readChunk)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := target.Read(buf)
		if n > 0 {
			if writeErr := forwardToClient(cw, version, subprotocol, buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if version == VersionHyBi {
					_ = cw.writeHyBi(opcodeClose, encodeCloseBody(CloseNormalClosure))
				}
				return io.EOF
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				// The other pump's exit already tore down this
				// connection (see Relay); that is an orderly shutdown,
				// not a transport failure.
				return ErrClosed
			}
			return err
		}
	}
}

func forwardToClient(cw *clientWriter, version Version, subprotocol Subprotocol, payload []byte) error {
	switch version {
	case VersionHyBi:
		if subprotocol == SubprotocolBase64 {
			return cw.writeHyBi(opcodeText, base64Encode(payload))
		}
		return cw.writeHyBi(opcodeBinary, payload)
	default:
		return cw.writeHixie(payload)
	}
}

func encodeCloseBody(code CloseCode) []byte {
	return []byte{byte(code >> 8), byte(code)}
}

// consumeBuf drops the first n consumed bytes from buf, retaining
// whatever trailing partial frame remains for the next Read.
func consumeBuf(buf []byte, n int) []byte {
	if n == 0 {
		return buf
	}
	remaining := len(buf) - n
	copy(buf[:remaining], buf[n:])
	return buf[:remaining]
}
