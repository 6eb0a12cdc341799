package common

import (
	"strings"
	"testing"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		scheme   string
		addr     string
		wantErr  bool
	}{
		{"tcp://localhost:8080", "tcp", "localhost:8080", false},
		{"unix:///tmp/kanal.sock", "unix", "/tmp/kanal.sock", false},
		{"ws://localhost:8080/rpc", "ws", "localhost:8080/rpc", false},
		{"localhost:8080", "tcp", "localhost:8080", false}, // scheme defaults to tcp
		{"", "", "", true},
		{"://addr", "", "", true},
		{"tcp://", "", "", true},
	}

	for _, tt := range tests {
		scheme, addr, err := SplitEndpoint(tt.endpoint)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.endpoint)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.endpoint, err)
			continue
		}
		if scheme != tt.scheme || addr != tt.addr {
			t.Errorf("%q: got (%s, %s), want (%s, %s)", tt.endpoint, scheme, addr, tt.scheme, tt.addr)
		}
	}
}

func TestClientConfigValidate(t *testing.T) {
	conf := DefaultClientConfig("tcp://localhost:8080")
	if err := conf.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	breakages := []func(c *ClientConfig){
		func(c *ClientConfig) { c.Endpoint = "" },
		func(c *ClientConfig) { c.Pool.MaxConnections = 0 },
		func(c *ClientConfig) { c.Pool.MinIdle = c.Pool.MaxConnections + 1 },
		func(c *ClientConfig) { c.Pool.MaxIdleTimeMs = 0 },
		func(c *ClientConfig) { c.Pool.AcquireTimeoutMs = 0 },
		func(c *ClientConfig) { c.Pool.ConnectTimeoutMs = 0 },
		func(c *ClientConfig) { c.Reconnect.Multiplier = 0.5 },
		func(c *ClientConfig) { c.Heartbeat.IntervalMs = 0 },
		func(c *ClientConfig) { c.Request.DefaultTimeoutMs = 0 },
		func(c *ClientConfig) { c.Request.SweepIntervalMs = 0 },
	}

	for i, breakage := range breakages {
		broken := DefaultClientConfig("tcp://localhost:8080")
		breakage(&broken)
		if err := broken.Validate(); err == nil {
			t.Errorf("breakage %d: expected validation error", i)
		}
	}
}

func TestClientConfigString(t *testing.T) {
	conf := DefaultClientConfig("tcp://localhost:8080")
	s := conf.String()

	for _, want := range []string{"tcp://localhost:8080", "POOL", "RECONNECT", "HEARTBEAT", "unlimited"} {
		if !strings.Contains(s, want) {
			t.Errorf("config string missing %q:\n%s", want, s)
		}
	}
}
