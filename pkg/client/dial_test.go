package client

import (
	"strings"
	"testing"
)

func TestParseTargetTCP(t *testing.T) {
	cfg, err := parseTarget("example.com:9001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.display != "example.com:9001" {
		t.Fatalf("expected display example.com:9001, got %s", cfg.display)
	}

	if cfg.dial == nil {
		t.Fatal("expected dial function to be set")
	}
}

func TestParseTargetTCPScheme(t *testing.T) {
	cfg, err := parseTarget("tcp://127.0.0.1:9001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.display != "127.0.0.1:9001" {
		t.Fatalf("expected display 127.0.0.1:9001, got %s", cfg.display)
	}
}

func TestParseTargetTCPWithoutPort(t *testing.T) {
	// mpv has no conventional IPC port, so a bare host is an error.
	if _, err := parseTarget("example.com"); err == nil {
		t.Fatal("expected error for TCP target without port")
	}
}

func TestParseTargetUnixScheme(t *testing.T) {
	cfg, err := parseTarget("unix:///tmp/mpv.sock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.display != "/tmp/mpv.sock" {
		t.Fatalf("expected display /tmp/mpv.sock, got %s", cfg.display)
	}
}

func TestParseTargetBarePath(t *testing.T) {
	for _, target := range []string{"/tmp/mpv.sock", "./mpv.sock"} {
		cfg, err := parseTarget(target)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", target, err)
		}
		if cfg.display != target {
			t.Fatalf("expected display %q, got %q", target, cfg.display)
		}
	}
}

func TestParseTargetSSH(t *testing.T) {
	t.Setenv("USER", "tester")

	cfg, err := parseTarget("ssh://media-host/tmp/mpv.sock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expected := "ssh://tester@media-host:22/tmp/mpv.sock"; cfg.display != expected {
		t.Fatalf("expected display %s, got %s", expected, cfg.display)
	}

	if cfg.dial == nil {
		t.Fatal("expected dial function for SSH")
	}
}

func TestParseTargetSSHExplicitUserAndPort(t *testing.T) {
	cfg, err := parseTarget("ssh://media@example.com:2222/run/mpv.sock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expected := "ssh://media@example.com:2222/run/mpv.sock"; cfg.display != expected {
		t.Fatalf("expected display %s, got %s", expected, cfg.display)
	}
}

func TestParseTargetSSHWithoutPath(t *testing.T) {
	if _, err := parseTarget("ssh://example.com"); err == nil {
		t.Fatal("expected error for SSH target without a socket path")
	}
}

func TestParseTargetInvalidScheme(t *testing.T) {
	if _, err := parseTarget("udp://example.com:9001"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	} else if !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseTargetEmpty(t *testing.T) {
	if _, err := parseTarget("   "); err == nil {
		t.Fatal("expected error for empty target")
	}
}
