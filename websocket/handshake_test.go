package websocket

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func negotiate(t *testing.T, request string, opts Options) (*Session, string, error) {
	t.Helper()
	in := bufio.NewReader(strings.NewReader(request))
	var out bytes.Buffer
	bw := bufio.NewWriter(&out)

	sess, err := Negotiate(in, bw, opts)
	return sess, out.String(), err
}

func TestNegotiateHyBi(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"Sec-WebSocket-Protocol: binary, base64\r\n\r\n"

	sess, response, err := negotiate(t, request, Options{TargetHost: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if sess.Version != VersionHyBi {
		t.Errorf("expected HyBi, got %v", sess.Version)
	}
	if sess.Subprotocol != SubprotocolBase64 {
		t.Errorf("expected base64 (server's default preference), got %v", sess.Subprotocol)
	}
	if sess.TargetAddr != "127.0.0.1:5900" {
		t.Errorf("expected target 127.0.0.1:5900, got %s", sess.TargetAddr)
	}
	if !strings.Contains(response, "101 Switching Protocols") {
		t.Errorf("expected a 101 response, got %q", response)
	}
	if !strings.Contains(response, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=") {
		t.Errorf("expected the RFC 6455 worked-example accept token, got %q", response)
	}
}

func TestNegotiateHixie76(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key1: 4 @1  46546xW%0l 1 5\r\n" +
		"Sec-WebSocket-Key2: 12998 5 Y3 1  .P00\r\n" +
		"Origin: http://example.com\r\n\r\n" +
		"^n:ds[4U"

	sess, response, err := negotiate(t, request, Options{TargetHost: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if sess.Version != VersionHixie76 {
		t.Errorf("expected Hixie-76, got %v", sess.Version)
	}
	if !strings.Contains(response, "101 WebSocket Protocol Handshake") {
		t.Errorf("expected a Hixie-76 101 response, got %q", response)
	}
}

func TestNegotiateHixie76UsesWSSWhenTLSTerminated(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key1: 4 @1  46546xW%0l 1 5\r\n" +
		"Sec-WebSocket-Key2: 12998 5 Y3 1  .P00\r\n" +
		"Origin: http://example.com\r\n\r\n" +
		"^n:ds[4U"

	_, response, err := negotiate(t, request, Options{TargetHost: "127.0.0.1", IsTLS: true})
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if !strings.Contains(response, "Sec-WebSocket-Location: wss://example.com/5900") {
		t.Errorf("expected a wss:// location when TLS-terminated, got %q", response)
	}
}

func TestNegotiateHixie75(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Origin: http://example.com\r\n\r\n"

	sess, response, err := negotiate(t, request, Options{TargetHost: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if sess.Version != VersionHixie75 {
		t.Errorf("expected Hixie-75, got %v", sess.Version)
	}
	if !strings.Contains(response, "101 Web Socket Protocol Handshake") {
		t.Errorf("expected a Hixie-75 101 response, got %q", response)
	}
	if !strings.Contains(response, "WebSocket-Location: ws://example.com/5900") {
		t.Errorf("expected a plain ws:// location for a non-TLS connection, got %q", response)
	}
}

func TestNegotiateFlashPolicyProbe(t *testing.T) {
	_, response, err := negotiate(t, flashPolicyRequest, Options{TargetHost: "127.0.0.1"})
	if err != ErrHandledInline {
		t.Fatalf("expected ErrHandledInline, got %v", err)
	}
	if !strings.Contains(response, `<cross-domain-policy>`) {
		t.Errorf("expected a cross-domain-policy response, got %q", response)
	}
}

func TestNegotiateMonitoringPath(t *testing.T) {
	request := "GET /wsproxy-monitoring/ HTTP/1.1\r\nHost: example.com\r\n\r\n"
	_, response, err := negotiate(t, request, Options{TargetHost: "127.0.0.1"})
	if err != ErrHandledInline {
		t.Fatalf("expected ErrHandledInline, got %v", err)
	}
	if !strings.Contains(response, "200 OK") || !strings.Contains(response, "RUNNING") {
		t.Errorf("expected a 200 OK RUNNING response, got %q", response)
	}
}

func TestNegotiateRejectsPortOutsideWhitelist(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	_, _, err := negotiate(t, request, Options{
		TargetHost:    "127.0.0.1",
		PortWhitelist: map[int]bool{5901: true},
	})
	if err != ErrPortNotAllowed {
		t.Errorf("expected ErrPortNotAllowed, got %v", err)
	}
}

func TestNegotiateRejectsMissingSecKey(t *testing.T) {
	request := "GET /5900 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	_, _, err := negotiate(t, request, Options{TargetHost: "127.0.0.1"})
	if err != ErrMissingSecKey {
		t.Errorf("expected ErrMissingSecKey, got %v", err)
	}
}

func TestNegotiateStaticTargetIgnoresPath(t *testing.T) {
	request := "GET /anything HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	sess, _, err := negotiate(t, request, Options{StaticTarget: "10.0.0.1:22"})
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if sess.TargetAddr != "10.0.0.1:22" {
		t.Errorf("expected static target to win, got %s", sess.TargetAddr)
	}
}

func TestCheckSameOrigin(t *testing.T) {
	if !CheckSameOrigin("", "example.com") {
		t.Error("empty origin should be accepted")
	}
	if !CheckSameOrigin("https://example.com", "example.com") {
		t.Error("matching origin should be accepted")
	}
	if CheckSameOrigin("https://evil.com", "example.com") {
		t.Error("mismatched origin should be rejected")
	}
}
