// Command wsbridge listens for WebSocket connections (Hixie-75,
// Hixie-76, or RFC 6455) and relays each one to a plain TCP target,
// optionally terminating TLS itself.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/coregx/wsbridge/internal/config"
	"github.com/coregx/wsbridge/internal/listener"
	"github.com/coregx/wsbridge/internal/logger"
)

func main() {
	cmd := &cli.Command{
		Name:      "wsbridge",
		Usage:     "bridge WebSocket clients to a plain TCP service",
		ArgsUsage: "[listen_host:]listen_port target_host[:target_port]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cert", Usage: "TLS certificate PEM file"},
			&cli.StringFlag{Name: "key", Usage: "TLS private key PEM file"},
			&cli.BoolFlag{Name: "ssl-only", Usage: "reject plaintext connections"},
			&cli.StringFlag{Name: "whitelist", Usage: "YAML file listing target ports a dynamic path may resolve to"},
			&cli.StringFlag{Name: "pattern", Usage: "Sscanf-style request path pattern used to recover the target port", Value: "/%d"},
			&cli.StringFlag{Name: "monitoring-path", Usage: "path that short-circuits to a 200 OK health response", Value: "/wsproxy-monitoring/"},
			&cli.BoolFlag{Name: "daemon", Usage: "accepted for compatibility; wsbridge does not detach and only logs a warning"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug-level, human-readable logging"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		// Both a usage/configuration error and a fatal I/O error exit 1;
		// only the logged message tells them apart.
		fmt.Fprintf(os.Stderr, "wsbridge: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := parseArgs(cmd)
	if err != nil {
		return err
	}

	logger.Init(cfg.Verbose)

	if cmd.Bool("daemon") {
		log.Warn().Msg("--daemon requested: wsbridge does not fork itself; run it under a process supervisor instead")
	}

	l, err := listener.New(*cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", l.Addr().String()).Str("target", cfg.TargetHost).Msg("wsbridge listening")

	if err := l.Serve(ctx); err != nil {
		return err
	}

	log.Info().Msg("wsbridge shut down")
	return nil
}

// parseArgs resolves the positional "[listen_host:]listen_port
// target_host[:target_port]" arguments against the CLI flags into a
// ListenerConfig.
func parseArgs(cmd *cli.Command) (*config.ListenerConfig, error) {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return nil, &config.ConfigurationError{Field: "args", Err: fmt.Errorf("expected [listen_host:]listen_port target_host[:target_port], got %d arguments", len(args))}
	}

	listenHost, listenPort, err := splitHostPort(args[0], "")
	if err != nil {
		return nil, &config.ConfigurationError{Field: "listen_port", Err: err}
	}
	if listenPort == 0 {
		return nil, &config.ConfigurationError{Field: "listen_port", Err: fmt.Errorf("required")}
	}

	targetHost, targetPort, err := splitHostPort(args[1], "target_port")
	if err != nil {
		return nil, &config.ConfigurationError{Field: "target", Err: err}
	}

	cfg := &config.ListenerConfig{
		ListenHost:     listenHost,
		ListenPort:     listenPort,
		TargetHost:     targetHost,
		TargetPort:     targetPort,
		TLSCert:        cmd.String("cert"),
		TLSKey:         cmd.String("key"),
		SSLOnly:        cmd.Bool("ssl-only"),
		PathPattern:    cmd.String("pattern"),
		WhitelistFile:  cmd.String("whitelist"),
		MonitoringPath: cmd.String("monitoring-path"),
		Verbose:        cmd.Bool("verbose"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitHostPort parses "host:port" or, when optionalPortField is empty,
// a bare "port". The target form "host" with no port (relying entirely
// on --pattern/--whitelist) is also accepted, returning port 0.
func splitHostPort(s, optionalPortField string) (string, int, error) {
	if !strings.Contains(s, ":") {
		if optionalPortField != "" {
			// Bare target host: the port comes from the request path.
			return s, 0, nil
		}
		port, err := strconv.Atoi(s)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port %q", s)
		}
		return "", port, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	if portStr == "" {
		return host, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}
