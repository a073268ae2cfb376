// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
)

// staticLookup resolves every host from a fixed table.
func staticLookup(table map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]netip.Addr, error) {
		raw, ok := table[host]
		if !ok {
			return nil, errors.New("no such host")
		}
		addrs := make([]netip.Addr, 0, len(raw))
		for _, r := range raw {
			addrs = append(addrs, netip.MustParseAddr(r))
		}
		return addrs, nil
	}
}

var hookHosts = map[string][]string{
	"builds.example.net":  {"93.184.216.34"},
	"dual.example.net":    {"93.184.216.34", "2606:2800:220:1::1"},
	"rebound.example.net": {"93.184.216.34", "10.1.2.3"},
	"metadata.internal":   {"169.254.169.254"},
	"mapped.example.net":  {"::ffff:192.168.0.10"},
}

func TestIsReserved(t *testing.T) {
	tests := []struct {
		addr     string
		reserved bool
	}{
		{"127.0.0.1", true},
		{"10.20.30.40", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"198.18.0.1", true},
		{"224.0.0.251", true},
		{"240.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd12:3456::1", true},
		{"::ffff:10.0.0.1", true},
		{"93.184.216.34", false},
		{"172.15.255.255", false},
		{"172.32.0.1", false},
		{"2606:2800:220:1::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := isReserved(netip.MustParseAddr(tt.addr)); got != tt.reserved {
				t.Errorf("isReserved(%s) = %v, want %v", tt.addr, got, tt.reserved)
			}
		})
	}

	if !isReserved(netip.Addr{}) {
		t.Error("isReserved(zero Addr) = false, want true")
	}
}

func TestEndpointGuardCheck(t *testing.T) {
	public := EndpointGuard{Lookup: staticLookup(hookHosts)}
	private := EndpointGuard{AllowPrivate: true, Lookup: staticLookup(hookHosts)}

	tests := []struct {
		name    string
		guard   EndpointGuard
		url     string
		wantErr string
		blocked bool
	}{
		{name: "public rebuild hook", guard: public, url: "https://builds.example.net/hooks/folio?token=abc"},
		{name: "public host with port", guard: public, url: "http://builds.example.net:8443/rebuild"},
		{name: "dual stack host", guard: public, url: "https://dual.example.net/rebuild"},
		{name: "public literal", guard: public, url: "https://93.184.216.34/rebuild"},
		{name: "empty", guard: public, url: "", wantErr: "empty"},
		{name: "ftp scheme", guard: public, url: "ftp://builds.example.net/rebuild", wantErr: "http or https"},
		{name: "file scheme", guard: public, url: "file:///etc/passwd", wantErr: "http or https"},
		{name: "no host", guard: public, url: "http:///rebuild", wantErr: "hostname"},
		{name: "too long", guard: public, url: "https://builds.example.net/" + strings.Repeat("a", MaxHookURLLength), wantErr: "maximum length"},
		{name: "loopback literal", guard: public, url: "http://127.0.0.1:4000/rebuild", blocked: true},
		{name: "ipv6 loopback", guard: public, url: "http://[::1]/rebuild", blocked: true},
		{name: "localhost", guard: public, url: "http://localhost:4000/rebuild", blocked: true},
		{name: "localhost subdomain", guard: public, url: "http://builder.localhost/rebuild", blocked: true},
		{name: "cloud metadata", guard: public, url: "http://metadata.internal/latest", blocked: true},
		{name: "one private answer", guard: public, url: "https://rebound.example.net/rebuild", blocked: true},
		{name: "v4-mapped private", guard: public, url: "https://mapped.example.net/rebuild", blocked: true},
		{name: "unresolvable", guard: public, url: "https://missing.example.net/rebuild", wantErr: "resolve"},
		{name: "sidecar allowed", guard: private, url: "http://127.0.0.1:4000/rebuild"},
		{name: "localhost allowed", guard: private, url: "http://localhost:4000/rebuild"},
		{name: "scheme still checked", guard: private, url: "ftp://127.0.0.1/rebuild", wantErr: "http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := tt.guard.Check(t.Context(), tt.url)
			switch {
			case tt.blocked:
				if !errors.Is(err, ErrBlockedAddress) {
					t.Errorf("Check(%q) = %v, want ErrBlockedAddress", tt.url, err)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Check(%q) = %v, want error containing %q", tt.url, err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("Check(%q) = %v", tt.url, err)
				}
				if u.String() != tt.url {
					t.Errorf("Check(%q) returned %q", tt.url, u.String())
				}
			}
		})
	}
}

func TestEndpointGuardDialBlocksPrivate(t *testing.T) {
	dial := EndpointGuard{Lookup: staticLookup(hookHosts)}.DialContext(&net.Dialer{})

	for _, addr := range []string{"127.0.0.1:80", "10.0.0.1:80", "[fe80::1]:80", "rebound.example.net:443", "metadata.internal:80"} {
		t.Run(addr, func(t *testing.T) {
			conn, err := dial(t.Context(), "tcp", addr)
			if conn != nil {
				_ = conn.Close()
			}
			if !errors.Is(err, ErrBlockedAddress) {
				t.Errorf("dial(%s) = %v, want ErrBlockedAddress", addr, err)
			}
		})
	}

	if _, err := dial(t.Context(), "tcp", "no-port"); err == nil {
		t.Error("dial without port succeeded")
	}
}

func TestEndpointGuardDialAllowsSidecar(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	go func() {
		if c, err := ln.Accept(); err == nil {
			_ = c.Close()
		}
	}()

	dial := EndpointGuard{AllowPrivate: true}.DialContext(&net.Dialer{})
	conn, err := dial(t.Context(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial sidecar: %v", err)
	}
	_ = conn.Close()
}
