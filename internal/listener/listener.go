// Package listener implements the accept loop: one isolated goroutine
// per connection, each running the full handshake-then-relay lifecycle
// before the goroutine exits.
package listener

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coregx/wsbridge/internal/config"
	wslogger "github.com/coregx/wsbridge/internal/logger"
	"github.com/coregx/wsbridge/websocket"
)

// dialTimeout bounds how long connecting to the relay target may take
// before the client handshake is abandoned.
const dialTimeout = 10 * time.Second

// Listener accepts connections for one ListenerConfig and dispatches
// each to its own handler goroutine.
type Listener struct {
	cfg       config.ListenerConfig
	tlsConfig *tls.Config
	whitelist map[int]bool

	ln      net.Listener
	nextID  atomic.Uint64
	handler func(context.Context, net.Conn, string)
}

// New resolves TLS and the port whitelist once and binds the listening
// socket. Both errors are the kind of ConfigurationError that should
// exit the process before ever accepting a connection.
func New(cfg config.ListenerConfig) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	whitelist, err := config.LoadWhitelist(cfg.WhitelistFile)
	if err != nil {
		return nil, err
	}

	var tlsConfig *tls.Config
	if cfg.TLSCert != "" {
		tlsConfig, err = websocket.NewTLSConfig(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, &config.ConfigurationError{Field: "tls_cert", Err: err}
		}
	}

	addr := net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.ListenPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "listen_port", Err: err}
	}

	l := &Listener{cfg: cfg, tlsConfig: tlsConfig, whitelist: whitelist, ln: ln}
	l.handler = l.handle
	return l, nil
}

// Addr returns the bound local address, mainly useful in tests that
// bind to port 0.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is canceled or the listener is
// closed. Each accepted connection is dispatched to its own goroutine:
// an isolated, lightweight task per connection rather than a shared
// worker pool or a process fork, which Go has no equivalent of.
//
// There is no SIGPIPE handling here: unlike the original C bridge,
// which had to install signal(SIGPIPE, SIG_IGN) to keep a broken-pipe
// write from killing the whole process, Go already reports a
// broken-pipe write as a plain error return from Write.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsTemporaryError(err) {
				log.Warn().Err(err).Msg("transient accept error, retrying")
				continue
			}
			return err
		}

		id := strconv.FormatUint(l.nextID.Add(1), 10)
		go l.handler(ctx, conn, id)
	}
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// handle runs one connection's full lifecycle: TLS (if negotiated),
// handshake negotiation, dialing the relay target, and then the
// bidirectional relay, logging its outcome and always closing the
// client connection on the way out.
func (l *Listener) handle(ctx context.Context, conn net.Conn, id string) {
	logger := wslogger.ForConnection(id, conn.RemoteAddr())
	defer conn.Close()

	br := bufio.NewReader(conn)

	isTLS, err := websocket.DetectTLS(br)
	if err != nil {
		logger.Debug().Err(err).Msg("handshake aborted before any bytes arrived")
		return
	}

	if isTLS {
		if l.tlsConfig == nil {
			logger.Warn().Msg("rejecting TLS connection: no certificate configured")
			return
		}
		tlsConn, err := websocket.AcceptTLS(conn, br, l.tlsConfig)
		if err != nil {
			logger.Warn().Err(err).Msg("TLS handshake failed")
			return
		}
		conn = tlsConn
		br = bufio.NewReader(conn)
	} else if l.cfg.SSLOnly {
		logger.Warn().Err(websocket.ErrSSLRequired).Msg("rejecting plaintext connection: ssl_only is set")
		return
	}

	bw := bufio.NewWriter(conn)
	opts := websocket.Options{
		SSLOnly:        l.cfg.SSLOnly,
		MonitoringPath: l.cfg.MonitoringPath,
		PathPattern:    l.cfg.PathPattern,
		PortWhitelist:  l.whitelist,
		TargetHost:     l.cfg.TargetHost,
		IsTLS:          isTLS,
	}
	if l.cfg.TargetPort != 0 {
		opts.StaticTarget = net.JoinHostPort(l.cfg.TargetHost, strconv.Itoa(l.cfg.TargetPort))
	}

	sess, err := websocket.Negotiate(br, bw, opts)
	if err != nil {
		if errors.Is(err, websocket.ErrHandledInline) {
			logger.Debug().Msg("handled inline (flash policy or monitoring probe)")
		} else {
			logger.Warn().Err(err).Msg("handshake failed")
		}
		return
	}
	sess.Conn = conn

	logger = logger.With().
		Str("version", sess.Version.String()).
		Str("subprotocol", sess.Subprotocol.String()).
		Str("target", sess.TargetAddr).
		Str("path", sess.RequestPath).
		Logger()
	logger.Info().Msg("handshake complete")

	dialer := net.Dialer{Timeout: dialTimeout}
	target, err := dialer.DialContext(ctx, "tcp", sess.TargetAddr)
	if err != nil {
		logger.Warn().Err(err).Msg("could not reach relay target")
		return
	}

	err = websocket.Relay(ctx, sess, target)
	if websocket.IsCloseError(err) {
		logger.Info().Msg("relay ended cleanly")
	} else {
		logger.Info().Err(err).Msg("relay ended")
	}
}
