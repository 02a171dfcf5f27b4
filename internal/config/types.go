// Package config loads and validates the settings needed to start one
// listener: where to bind, where to relay, and which ports a dynamic
// path may name.
package config

import "fmt"

// ListenerConfig is the fully resolved configuration for one bridge
// listener. It is built once at startup and then shared read-only
// across every accepted connection — mirroring balookrd-outline-cli-ws's
// ServerConfig/GlobalConfig split between "loaded once" and "used by
// every subsequent operation".
type ListenerConfig struct {
	ListenHost string `yaml:"listen_host"`
	ListenPort int    `yaml:"listen_port"`

	TargetHost string `yaml:"target_host"`
	TargetPort int    `yaml:"target_port"`

	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
	SSLOnly bool   `yaml:"ssl_only"`

	// PathPattern is a Sscanf-style pattern with one %d verb used to
	// recover a target port from the request path; ignored once
	// TargetPort is non-zero, since a fixed target needs no per-request
	// resolution.
	PathPattern   string `yaml:"path_pattern"`
	WhitelistFile string `yaml:"whitelist_file"`

	MonitoringPath string `yaml:"monitoring_path"`
	Verbose        bool   `yaml:"verbose"`
}

// ConfigurationError wraps a startup-time configuration failure: bad
// flags, an unreadable cert, a malformed whitelist file. It is always
// fatal — the process exits before accepting a single connection.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Validate checks the fields Negotiate and the listener actually rely
// on; it does not touch the filesystem (certs and the whitelist file
// are validated when they are loaded).
func (c *ListenerConfig) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return &ConfigurationError{Field: "listen_port", Err: fmt.Errorf("invalid port %d", c.ListenPort)}
	}
	if c.TargetHost == "" {
		return &ConfigurationError{Field: "target_host", Err: fmt.Errorf("required")}
	}
	if c.TargetPort == 0 && c.PathPattern == "" {
		return &ConfigurationError{Field: "path_pattern", Err: fmt.Errorf("required when target_port is not fixed")}
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return &ConfigurationError{Field: "tls_cert/tls_key", Err: fmt.Errorf("both or neither must be set")}
	}
	if c.SSLOnly && c.TLSCert == "" {
		return &ConfigurationError{Field: "ssl_only", Err: fmt.Errorf("requires tls_cert/tls_key")}
	}
	return nil
}
