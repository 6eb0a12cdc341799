package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/kanal-io/kanal/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialerSelectsTransportByScheme(t *testing.T) {
	socket := common.SocketConf{}

	tests := []struct {
		endpoint string
		name     string
	}{
		{"tcp://localhost:5000", "tcp"},
		{"localhost:5000", "tcp"}, // scheme defaults to tcp
		{"unix:///tmp/kanal.sock", "unix"},
		{"udp://localhost:5000", "udp"},
		{"ws://localhost:5000/rpc", "ws"},
	}

	for _, tt := range tests {
		dialer, err := NewDialer(tt.endpoint, socket)
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.name, dialer.GetName(), tt.endpoint)
	}

	_, err := NewDialer("carrier-pigeon://coop", socket)
	assert.Error(t, err)
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	conf := common.DefaultClientConfig("tcp://localhost:5000")
	conf.Pool.MaxConnections = 0

	_, err := NewClient(conf, serializer.NewJSONSerializer())
	require.Error(t, err)
}

// TestClientCallOverUnixSocket exercises the full stack: client runtime,
// json serializer, length-prefix framing and the unix stream transport
// against an echoing in-process server.
func TestClientCallOverUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "kanal-test.sock")

	server := unix.NewUnixServerTransport()
	server.RegisterHandler(func(data []byte) []byte {
		// Echo the request back verbatim, correlation id included
		return data
	})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Listen(common.ServerConfig{
			TimeoutSecond:     5,
			MaxWorkersPerConn: 4,
		}, sock)
	}()
	defer func() {
		require.NoError(t, server.Shutdown())
		select {
		case err := <-serverDone:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down")
		}
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	conf := common.DefaultClientConfig("unix://" + sock)
	conf.Pool.MaxConnections = 2
	conf.Pool.MinIdle = 0
	conf.Heartbeat.Enabled = false

	c, err := NewClient(conf, serializer.NewJSONSerializer())
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Call("echo", map[string]any{"msg": "hello"}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Type())
	assert.Equal(t, "hello", resp["msg"])

	// Concurrent calls multiplex over the pooled connections
	futures := make([]*Future, 8)
	for i := range futures {
		f, err := c.CallAsync("echo", map[string]any{"n": i}, 2*time.Second)
		require.NoError(t, err)
		futures[i] = f
	}
	for _, f := range futures {
		frame, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, "echo", frame.Type())
	}

	assert.Equal(t, 0, c.Invoker().PendingRequestCount())
	assert.LessOrEqual(t, c.Pool().TotalConnections(), 2)
}
