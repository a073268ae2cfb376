// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// MaxHookURLLength bounds the rebuild hook URL.
const MaxHookURLLength = 2048

// ErrBlockedAddress is returned when an endpoint resolves to a private or
// reserved address and the guard does not allow that.
var ErrBlockedAddress = errors.New("private or reserved address")

// reservedPrefixes lists loopback, private, link-local, shared, documentation,
// benchmarking, multicast and reserved ranges for both families.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// isReserved reports whether a is outside the public unicast space.
// Invalid addresses count as reserved.
func isReserved(a netip.Addr) bool {
	if !a.IsValid() {
		return true
	}
	a = a.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// EndpointGuard checks outbound hook endpoints. The zero value rejects
// private and reserved addresses and resolves through the system resolver.
type EndpointGuard struct {
	// AllowPrivate accepts endpoints on loopback and private networks, e.g.
	// a rebuild service running next to the portfolio server.
	AllowPrivate bool

	// Lookup overrides name resolution. Nil means net.DefaultResolver.
	Lookup LookupFunc

	// LookupTimeout bounds resolution in Check. Zero means five seconds.
	LookupTimeout time.Duration
}

func (g EndpointGuard) lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	if g.Lookup != nil {
		return g.Lookup(ctx, host)
	}
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// Check parses raw as an http or https URL with a host. Unless AllowPrivate
// is set, the host must not be localhost and every address it resolves to
// must be public.
func (g EndpointGuard) Check(ctx context.Context, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("URL is empty")
	}
	if len(raw) > MaxHookURLLength {
		return nil, fmt.Errorf("URL exceeds maximum length of %d characters", MaxHookURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL must use http or https scheme, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, errors.New("URL must have a hostname")
	}
	if g.AllowPrivate {
		return u, nil
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return nil, fmt.Errorf("%w: localhost", ErrBlockedAddress)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if isReserved(addr) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
		}
		return u, nil
	}

	timeout := g.LookupTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := g.lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %q: no addresses", host)
	}
	for _, a := range addrs {
		if isReserved(a) {
			return nil, fmt.Errorf("%w: %q resolves to %s", ErrBlockedAddress, host, a)
		}
	}
	return u, nil
}

// DialContext wraps d for use in http.Transport. Unless AllowPrivate is set,
// the host is resolved once, every address is checked, and the connection
// goes to a checked address so a later DNS answer cannot redirect it.
func (g EndpointGuard) DialContext(d *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if g.AllowPrivate {
		return d.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		var addrs []netip.Addr
		if a, perr := netip.ParseAddr(host); perr == nil {
			addrs = []netip.Addr{a}
		} else if addrs, err = g.lookup(ctx, host); err != nil {
			return nil, fmt.Errorf("resolve %q: %w", host, err)
		}
		for _, a := range addrs {
			if isReserved(a) {
				return nil, fmt.Errorf("dial %q: %w: %s", host, ErrBlockedAddress, a)
			}
		}

		err = fmt.Errorf("resolve %q: no addresses", host)
		for _, a := range addrs {
			conn, dialErr := d.DialContext(ctx, network, net.JoinHostPort(a.Unmap().String(), port))
			if dialErr == nil {
				return conn, nil
			}
			err = dialErr
		}
		return nil, fmt.Errorf("dial %q: %w", host, err)
	}
}
