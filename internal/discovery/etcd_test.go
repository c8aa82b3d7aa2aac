package discovery

import (
	"errors"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		prefix, id, want string
	}{
		{"/rdata/nodes", "abc", "/rdata/nodes/abc"},
		{"/rdata/nodes/", "abc", "/rdata/nodes/abc"},
		{"", "abc", "/abc"},
	}
	for _, tt := range tests {
		if got := Key(tt.prefix, tt.id); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.prefix, tt.id, got, tt.want)
		}
	}
}

func TestAdvertiseURL(t *testing.T) {
	tests := []struct {
		name     string
		override string
		address  string
		port     string
		path     string
		tls      bool
		want     string
	}{
		{"override", "wss://edge/ws", "0.0.0.0", "8080", "/ws", false, "wss://edge/ws"},
		{"wildcard", "", "0.0.0.0", "8080", "/ws", false, "ws://node-1:8080/ws"},
		{"empty address", "", "", "8080", "ws", false, "ws://node-1:8080/ws"},
		{"explicit", "", "10.0.0.5", "443", "/rpc", true, "wss://10.0.0.5:443/rpc"},
		{"ipv6", "", "::1", "8080", "/ws", false, "ws://[::1]:8080/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvertiseURL(tt.override, tt.address, tt.port, tt.path, tt.tls, "node-1")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_NoEndpoints(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoEndpoints) {
		t.Fatalf("err = %v, want ErrNoEndpoints", err)
	}
}
