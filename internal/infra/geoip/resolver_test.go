package geoip

import (
	"errors"
	"net"
	"testing"
)

func TestNewResolverWithoutPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("expected nil resolver and no error, got %v %v", r, err)
	}
	if r.Lookup() != nil {
		t.Fatalf("disabled resolver must not provide a lookup")
	}
	if _, err := r.CountryCode("8.8.8.8"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil resolver: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatalf("expected error for missing database")
	}
}

func TestRoutable(t *testing.T) {
	tests := map[string]bool{
		"127.0.0.1":   false,
		"10.1.2.3":    false,
		"192.168.0.9": false,
		"::1":         false,
		"fe80::1":     false,
		"203.0.113.5": true,
		"2001:db8::1": true,
	}
	for ip, want := range tests {
		if got := routable(net.ParseIP(ip)); got != want {
			t.Fatalf("routable(%s) = %v, want %v", ip, got, want)
		}
	}
}
